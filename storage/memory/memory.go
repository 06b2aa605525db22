package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/helixauth/oauthcore/security"
	"github.com/helixauth/oauthcore/storage"
)

// dummyBcryptHash is compared against when the client does not exist, so
// that secret validation takes the same time for known and unknown client
// IDs. Hash of "dummy-password-for-timing".
const dummyBcryptHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// defaultCleanupInterval is how often the janitor sweeps expired records.
const defaultCleanupInterval = 5 * time.Minute

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu            sync.RWMutex
	clients       map[string]*storage.Client
	codes         map[string]*storage.AuthorizationCode
	accessTokens  map[string]*storage.AccessToken
	refreshTokens map[string]*storage.RefreshToken

	logger          *slog.Logger
	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	stopOnce        sync.Once
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithLogger sets the logger used by the janitor.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCleanupInterval sets how often expired records are swept. A
// non-positive interval disables the janitor.
func WithCleanupInterval(interval time.Duration) Option {
	return func(s *Store) {
		s.cleanupInterval = interval
	}
}

// NewStore creates an in-memory store and starts its cleanup janitor.
func NewStore(opts ...Option) *Store {
	s := &Store{
		clients:         make(map[string]*storage.Client),
		codes:           make(map[string]*storage.AuthorizationCode),
		accessTokens:    make(map[string]*storage.AccessToken),
		refreshTokens:   make(map[string]*storage.RefreshToken),
		logger:          slog.Default(),
		cleanupInterval: defaultCleanupInterval,
		stopCleanup:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.cleanupInterval > 0 {
		go s.cleanupLoop()
	}

	return s
}

// Close stops the cleanup janitor. Safe to call more than once.
func (s *Store) Close() error {
	s.stopOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}

// Counts returns the number of stored clients, codes, access tokens and
// refresh tokens. Intended for storage size gauges.
func (s *Store) Counts() (clients, codes, accessTokens, refreshTokens int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.clients)), int64(len(s.codes)),
		int64(len(s.accessTokens)), int64(len(s.refreshTokens))
}

// GetClient returns the client with the given ID.
func (s *Store) GetClient(_ context.Context, clientID string) (*storage.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	client, ok := s.clients[clientID]
	if !ok {
		return nil, storage.ErrClientNotFound
	}

	c := *client
	c.RedirectURIs = append([]string(nil), client.RedirectURIs...)
	c.GrantTypes = append([]string(nil), client.GrantTypes...)
	return &c, nil
}

// SaveClient stores or replaces a client registration.
func (s *Store) SaveClient(_ context.Context, client *storage.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *client
	c.RedirectURIs = append([]string(nil), client.RedirectURIs...)
	c.GrantTypes = append([]string(nil), client.GrantTypes...)
	s.clients[client.ClientID] = &c
	return nil
}

// ValidateClientSecret verifies a plaintext secret against the stored hash.
// A bcrypt comparison runs whether or not the client exists, keeping the
// response time independent of client existence.
func (s *Store) ValidateClientSecret(_ context.Context, clientID, secret string) error {
	s.mu.RLock()
	client, ok := s.clients[clientID]
	var hash string
	if ok {
		hash = client.SecretHash
	}
	s.mu.RUnlock()

	if !ok || hash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyBcryptHash), []byte(secret))
		if !ok {
			return storage.ErrClientNotFound
		}
		return storage.ErrInvalidClientSecret
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		return storage.ErrInvalidClientSecret
	}
	return nil
}

// SaveCode stores an authorization code.
func (s *Store) SaveCode(_ context.Context, code *storage.AuthorizationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *code
	s.codes[code.Code] = &c
	return nil
}

// GetCode returns the code record without consuming it.
func (s *Store) GetCode(_ context.Context, code string) (*storage.AuthorizationCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.codes[code]
	if !ok {
		return nil, storage.ErrCodeNotFound
	}
	if security.IsTokenExpired(rec.ExpiresAt) {
		return nil, storage.ErrTokenExpired
	}

	c := *rec
	return &c, nil
}

// ConsumeCode atomically marks the code consumed and returns it. The check
// and the mark happen under one write lock, so exactly one of any number of
// concurrent redemptions succeeds.
func (s *Store) ConsumeCode(_ context.Context, code string) (*storage.AuthorizationCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.codes[code]
	if !ok {
		return nil, storage.ErrCodeNotFound
	}
	if security.IsTokenExpired(rec.ExpiresAt) {
		return nil, storage.ErrTokenExpired
	}
	if rec.Consumed {
		c := *rec
		return &c, storage.ErrCodeConsumed
	}

	rec.Consumed = true
	c := *rec
	return &c, nil
}

// DeleteCode removes a code record.
func (s *Store) DeleteCode(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.codes, code)
	return nil
}

// SaveAccessToken stores an access token.
func (s *Store) SaveAccessToken(_ context.Context, token *storage.AccessToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *token
	s.accessTokens[token.Token] = &t
	return nil
}

// GetAccessToken returns the token record, revoked or not.
func (s *Store) GetAccessToken(_ context.Context, token string) (*storage.AccessToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.accessTokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}

	t := *rec
	return &t, nil
}

// RevokeAccessToken marks the token revoked.
func (s *Store) RevokeAccessToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.accessTokens[token]; ok {
		rec.Revoked = true
	}
	return nil
}

// RevokeAccessTokenFamily revokes every access token in a family.
func (s *Store) RevokeAccessTokenFamily(_ context.Context, familyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	revoked := 0
	for _, rec := range s.accessTokens {
		if rec.FamilyID == familyID && !rec.Revoked {
			rec.Revoked = true
			revoked++
		}
	}
	return revoked, nil
}

// SaveRefreshToken stores a refresh token.
func (s *Store) SaveRefreshToken(_ context.Context, token *storage.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := *token
	s.refreshTokens[token.Token] = &t
	return nil
}

// GetRefreshToken returns the token record, revoked or not.
func (s *Store) GetRefreshToken(_ context.Context, token string) (*storage.RefreshToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.refreshTokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}

	t := *rec
	return &t, nil
}

// ConsumeRefreshToken atomically revokes the token for rotation and returns
// it. On reuse the already revoked record is returned with ErrTokenRevoked
// so the caller can revoke the family.
func (s *Store) ConsumeRefreshToken(_ context.Context, token string) (*storage.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.refreshTokens[token]
	if !ok {
		return nil, storage.ErrTokenNotFound
	}
	if rec.Revoked {
		t := *rec
		return &t, storage.ErrTokenRevoked
	}
	if security.IsTokenExpired(rec.ExpiresAt) {
		return nil, storage.ErrTokenExpired
	}

	rec.Revoked = true
	rec.RevokedAt = time.Now()
	t := *rec
	return &t, nil
}

// RevokeRefreshToken marks the token revoked.
func (s *Store) RevokeRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.refreshTokens[token]; ok && !rec.Revoked {
		rec.Revoked = true
		rec.RevokedAt = time.Now()
	}
	return nil
}

// RevokeRefreshTokenFamily revokes every refresh token in a family.
func (s *Store) RevokeRefreshTokenFamily(_ context.Context, familyID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	revoked := 0
	for _, rec := range s.refreshTokens {
		if rec.FamilyID == familyID && !rec.Revoked {
			rec.Revoked = true
			rec.RevokedAt = now
			revoked++
		}
	}
	return revoked, nil
}

func (s *Store) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupExpired()
		case <-s.stopCleanup:
			return
		}
	}
}

// cleanupExpired removes codes and tokens past their expiry. Revoked
// records are kept until expiry so reuse of a rotated refresh token can
// still be detected.
func (s *Store) cleanupExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	codes, access, refresh := 0, 0, 0

	for k, rec := range s.codes {
		if now.After(rec.ExpiresAt) {
			delete(s.codes, k)
			codes++
		}
	}
	for k, rec := range s.accessTokens {
		if now.After(rec.ExpiresAt) {
			delete(s.accessTokens, k)
			access++
		}
	}
	for k, rec := range s.refreshTokens {
		if rec.Expires() && now.After(rec.ExpiresAt) {
			delete(s.refreshTokens, k)
			refresh++
		}
	}

	if codes+access+refresh > 0 {
		s.logger.Debug("Cleaned up expired records",
			"codes", codes,
			"access_tokens", access,
			"refresh_tokens", refresh)
	}
}
