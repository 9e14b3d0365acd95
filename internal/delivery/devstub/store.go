// Package devstub holds the in-memory state behind the local development
// backend: demo accounts, cookie sessions, and a scripted sync job.
package devstub

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"stride/config"
	"stride/internal/domain/entity"
	domainerrors "stride/internal/domain/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	// SessionCookieName carries the devstub session token.
	SessionCookieName = "stride_session"

	sessionTTL    = 24 * time.Hour
	defaultSecret = "stride-devstub-secret"
)

type account struct {
	user         entity.User
	passwordHash []byte
}

// Store keeps the demo accounts and signs session tokens.
type Store struct {
	secret []byte
	logger *slog.Logger

	mu       sync.RWMutex
	accounts map[string]*account
}

// NewStore seeds the accounts from configuration, hashing the configured
// plaintext passwords at startup. With no configuration a single demo
// account is seeded.
func NewStore(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	secret := defaultSecret
	seeds := []config.DevstubAccount{
		{Email: "runner@example.com", Password: "password", Name: "Demo Runner"},
	}
	if cfg.Devstub != nil {
		if cfg.Devstub.SessionSecret != "" {
			secret = cfg.Devstub.SessionSecret
		}
		if len(cfg.Devstub.Accounts) != 0 {
			seeds = cfg.Devstub.Accounts
		}
	}

	store := &Store{
		secret:   []byte(secret),
		logger:   logger,
		accounts: make(map[string]*account, len(seeds)),
	}

	for _, seed := range seeds {
		hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, errors.Wrapf(err, "hash password for %s", seed.Email)
		}

		email := strings.ToLower(strings.TrimSpace(seed.Email))
		store.accounts[email] = &account{
			user: entity.User{
				ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte("stride:account:"+email)),
				Email:     email,
				Name:      seed.Name,
				CreatedAt: time.Now().UTC(),
			},
			passwordHash: hash,
		}
	}

	logger.Info("Devstub accounts seeded", slog.Int("count", len(store.accounts)))

	return store, nil
}

// Authenticate verifies the email and password against the seeded
// accounts.
func (s *Store) Authenticate(email, password string) (*entity.User, error) {
	s.mu.RLock()
	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(email))]
	s.mu.RUnlock()

	if !ok {
		return nil, domainerrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(password)); err != nil {
		return nil, domainerrors.ErrInvalidCredentials
	}

	user := acct.user

	return &user, nil
}

type sessionClaims struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	jwt.RegisteredClaims
}

// IssueSession signs a session token for the user.
func (s *Store) IssueSession(user *entity.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Email: user.Email,
		Name:  user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)

	return token, errors.Wrap(err, "sign session token")
}

// VerifySession validates a session token and returns its user.
func (s *Store) VerifySession(raw string) (*entity.User, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return s.secret, nil
	})
	if err != nil {
		return nil, domainerrors.ErrSessionExpired.WrapMessage(err.Error())
	}

	s.mu.RLock()
	acct, ok := s.accounts[claims.Email]
	s.mu.RUnlock()
	if ok {
		user := acct.user

		return &user, nil
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		id = uuid.NewSHA1(uuid.NameSpaceURL, []byte("stride:session:"+claims.Email))
	}

	return &entity.User{ID: id, Email: claims.Email, Name: claims.Name}, nil
}

// UserFromIDToken accepts a bearer ID token from the external identity
// provider. The devstub trusts any well-formed token and synthesizes a
// stable user from its claims; signature verification is the real
// backend's job.
func (s *Store) UserFromIDToken(raw string) (*entity.User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage(err.Error())
	}

	email, _ := claims["email"].(string)
	if email == "" {
		return nil, domainerrors.ErrTokenInvalid.WrapMessage("email claim missing")
	}
	name, _ := claims["name"].(string)
	subject, _ := claims["sub"].(string)

	return &entity.User{
		ID:    uuid.NewSHA1(uuid.NameSpaceURL, []byte("stride:external:"+subject+":"+email)),
		Email: email,
		Name:  name,
	}, nil
}
