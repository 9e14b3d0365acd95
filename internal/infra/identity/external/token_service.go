// Package external implements the token-based identity strategy backed by
// a third-party identity service.
package external

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// EventKind classifies sign-in state changes reported by the identity
// service.
type EventKind int

const (
	EventSignedIn EventKind = iota
	EventSignedOut
)

// Event is one sign-in state change.
type Event struct {
	Kind EventKind
}

// TokenService is the narrow surface of the third-party identity SDK the
// provider depends on.
type TokenService interface {
	// Ready is closed once the service has finished its own initial
	// resolution; the provider must not resolve identity before then.
	Ready() <-chan struct{}

	// SignedIn reports the current sign-in state.
	SignedIn() bool

	// IDToken returns the current ID token.
	IDToken(ctx context.Context) (string, error)

	// Events streams sign-in/sign-out changes after the initial state.
	Events() <-chan Event

	// SignOut ends the external session.
	SignOut(ctx context.Context) error

	Close() error
}

// fileTokenService reads the current ID token from a file maintained by
// the identity service's sign-in tooling and watches it for changes, so
// external sign-in and sign-out surface as events without polling.
type fileTokenService struct {
	path    string
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	ready   chan struct{}
	events  chan Event
	done    chan struct{}

	mu       sync.RWMutex
	signedIn bool
}

// NewFileTokenService builds a TokenService over the given token file.
func NewFileTokenService(path string, logger *slog.Logger) (TokenService, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("external token file must be configured")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create token file watcher")
	}
	// Watch the directory: the token file itself may not exist yet.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()

		return nil, errors.Wrap(err, "watch token directory")
	}

	svc := &fileTokenService{
		path:    path,
		logger:  logger,
		watcher: watcher,
		ready:   make(chan struct{}),
		events:  make(chan Event, 8),
		done:    make(chan struct{}),
	}

	_, statErr := os.Stat(path)
	svc.signedIn = statErr == nil
	close(svc.ready)

	go svc.watch()

	return svc, nil
}

func (s *fileTokenService) Ready() <-chan struct{} {
	return s.ready
}

func (s *fileTokenService) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.signedIn
}

func (s *fileTokenService) IDToken(ctx context.Context) (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", errors.Wrap(err, "read token file")
	}

	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", errors.New("token file is empty")
	}

	return token, nil
}

func (s *fileTokenService) Events() <-chan Event {
	return s.events
}

// SignOut removes the token file; the watcher turns the removal into a
// signed-out event for the provider.
func (s *fileTokenService) SignOut(ctx context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove token file")
	}

	return nil
}

func (s *fileTokenService) Close() error {
	close(s.done)

	return errors.Wrap(s.watcher.Close(), "close token file watcher")
}

func (s *fileTokenService) watch() {
	for {
		select {
		case <-s.done:
			return
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.path {
				continue
			}
			switch {
			case event.Op.Has(fsnotify.Create) || event.Op.Has(fsnotify.Write):
				s.transition(true)
			case event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename):
				s.transition(false)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("token file watcher error", slog.Any("error", err))
		}
	}
}

func (s *fileTokenService) transition(signedIn bool) {
	s.mu.Lock()
	changed := s.signedIn != signedIn
	s.signedIn = signedIn
	s.mu.Unlock()

	if !changed {
		return
	}

	kind := EventSignedOut
	if signedIn {
		kind = EventSignedIn
	}

	select {
	case s.events <- Event{Kind: kind}:
	default:
		s.logger.Warn("dropping sign-in event, consumer not draining")
	}
}
