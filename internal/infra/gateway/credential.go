package gateway

import (
	"context"
	"sync"

	"stride/internal/domain/service"

	"github.com/pkg/errors"
)

// DeferredCredential is the registration point between the mounted
// identity provider (one writer) and every outbound request (many
// readers). Requests await the first registration instead of reading a
// possibly-stale slot, which closes the startup race between provider
// mount and early request traffic.
type DeferredCredential struct {
	mu    sync.RWMutex
	ready chan struct{}
	src   service.CredentialSource
}

// NewDeferredCredential returns an unresolved slot.
func NewDeferredCredential() *DeferredCredential {
	return &DeferredCredential{ready: make(chan struct{})}
}

// Resolve registers the credential source. The first call unblocks any
// waiting requests; later calls replace the source (last write wins).
func (d *DeferredCredential) Resolve(src service.CredentialSource) {
	d.mu.Lock()
	defer d.mu.Unlock()

	first := d.src == nil
	d.src = src
	if first {
		close(d.ready)
	}
}

// Resolved reports whether a source has been registered.
func (d *DeferredCredential) Resolved() bool {
	select {
	case <-d.ready:
		return true
	default:
		return false
	}
}

// Token waits for a source to be registered, then invokes it. The wait is
// bounded by the request context.
func (d *DeferredCredential) Token(ctx context.Context) (string, error) {
	select {
	case <-d.ready:
	case <-ctx.Done():
		return "", errors.Wrap(ctx.Err(), "waiting for credential source registration")
	}

	d.mu.RLock()
	src := d.src
	d.mu.RUnlock()

	return src(ctx)
}
