package valkey

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	valkeygo "github.com/valkey-io/valkey-go"

	"github.com/helixauth/oauthcore/storage"
)

const (
	// DefaultKeyPrefix is the default prefix for all Valkey keys
	DefaultKeyPrefix = "oauth:"

	// tokenIDLogLength is the number of characters to include when logging token values
	tokenIDLogLength = 8

	// connectionVerifyTimeout is the timeout for initial connection verification
	connectionVerifyTimeout = 5 * time.Second

	// familySetRetention is how long family membership sets are kept past
	// the last write, so reuse detection still works after token expiry
	familySetRetention = 90 * 24 * time.Hour
)

// Config holds configuration for the Valkey storage backend.
type Config struct {
	// Address is the Valkey server address (required), e.g., "localhost:6379"
	Address string

	// Password is the optional password for Valkey authentication
	Password string

	// DB is the optional database number (default 0)
	DB int

	// KeyPrefix is the prefix for all keys (default "oauth:")
	KeyPrefix string

	// TLS is the optional TLS configuration for encrypted connections
	TLS *tls.Config

	// Logger is the optional structured logger (default: slog.Default())
	Logger *slog.Logger
}

// Store is a Valkey-backed implementation of storage.Store.
type Store struct {
	client valkeygo.Client
	prefix string
	logger *slog.Logger
}

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

// New creates a new Valkey-backed storage instance.
// Returns an error if the connection cannot be established.
func New(cfg Config) (*Store, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("valkey address is required")
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := valkeygo.ClientOption{
		InitAddress: []string{cfg.Address},
		SelectDB:    cfg.DB,
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	if cfg.TLS != nil {
		opts.TLSConfig = cfg.TLS
	}

	client, err := valkeygo.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create valkey client: %w", err)
	}

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), connectionVerifyTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	logger.Info("Connected to Valkey storage",
		"address", cfg.Address,
		"db", cfg.DB,
		"prefix", prefix)

	return &Store{
		client: client,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Close closes the Valkey client connection.
func (s *Store) Close() error {
	s.client.Close()
	s.logger.Info("Valkey storage connection closed")
	return nil
}

// ============================================================
// Key Helpers
// ============================================================

// clientKey returns the key for a client: {prefix}client:{clientID}
func (s *Store) clientKey(clientID string) string {
	return fmt.Sprintf("%sclient:%s", s.prefix, clientID)
}

// codeKey returns the key for an authorization code: {prefix}code:{code}
func (s *Store) codeKey(code string) string {
	return fmt.Sprintf("%scode:%s", s.prefix, code)
}

// accessTokenKey returns the key for an access token: {prefix}access:{token}
func (s *Store) accessTokenKey(token string) string {
	return fmt.Sprintf("%saccess:%s", s.prefix, token)
}

// refreshTokenKey returns the key for a refresh token: {prefix}refresh:{token}
func (s *Store) refreshTokenKey(token string) string {
	return fmt.Sprintf("%srefresh:%s", s.prefix, token)
}

// accessFamilyKey returns the set key tracking a family's access tokens:
// {prefix}family:access:{familyID}
func (s *Store) accessFamilyKey(familyID string) string {
	return fmt.Sprintf("%sfamily:access:%s", s.prefix, familyID)
}

// refreshFamilyKey returns the set key tracking a family's refresh tokens:
// {prefix}family:refresh:{familyID}
func (s *Store) refreshFamilyKey(familyID string) string {
	return fmt.Sprintf("%sfamily:refresh:%s", s.prefix, familyID)
}

// ============================================================
// Lua Scripts for Atomic Operations
// ============================================================
//
// Lua scripts run atomically in Valkey/Redis, which is what makes the
// single-use guarantees hold across multiple server instances sharing one
// backend.

// luaConsumeCode atomically checks that an authorization code is unconsumed
// and marks it consumed.
//
// KEYS[1] = code key
// ARGV[1] = current Unix timestamp in seconds
//
// Returns:
//   - Updated JSON data if the code was unconsumed and is now marked consumed
//   - "NOT_FOUND" if the key doesn't exist
//   - "EXPIRED" if the code is past its expiry
//   - "ALREADY_USED:<json>" if the code was already consumed (data returned
//     so the caller can revoke the token family issued on first redemption)
const luaConsumeCode = `
local data = redis.call('GET', KEYS[1])
if not data then
    return 'NOT_FOUND'
end

local code = cjson.decode(data)

local now = tonumber(ARGV[1])
local expiresAt = tonumber(code.expires_at)
if expiresAt and expiresAt > 0 and now > expiresAt then
    return 'EXPIRED'
end

if code.consumed then
    return 'ALREADY_USED:' .. data
end

code.consumed = true
local updated = cjson.encode(code)
redis.call('SET', KEYS[1], updated, 'KEEPTTL')

return updated
`

// luaConsumeRefreshToken atomically checks that a refresh token is live and
// revokes it for rotation.
//
// KEYS[1] = refresh token key
// ARGV[1] = current Unix timestamp in seconds
//
// Returns:
//   - Updated JSON data if the token was live and is now revoked
//   - "NOT_FOUND" if the key doesn't exist
//   - "EXPIRED" if the token is past its expiry
//   - "REVOKED:<json>" if the token was already revoked (data returned so
//     the caller can detect reuse and revoke the family)
const luaConsumeRefreshToken = `
local data = redis.call('GET', KEYS[1])
if not data then
    return 'NOT_FOUND'
end

local token = cjson.decode(data)

if token.revoked then
    return 'REVOKED:' .. data
end

local now = tonumber(ARGV[1])
local expiresAt = tonumber(token.expires_at)
if expiresAt and expiresAt > 0 and now > expiresAt then
    return 'EXPIRED'
end

token.revoked = true
token.revoked_at = now
local updated = cjson.encode(token)
redis.call('SET', KEYS[1], updated, 'KEEPTTL')

return updated
`

// ============================================================
// JSON Serialization Helpers
// ============================================================

// clientJSON is the JSON representation of an OAuth client
type clientJSON struct {
	ClientID     string   `json:"client_id"`
	SecretHash   string   `json:"secret_hash,omitempty"`
	Confidential bool     `json:"confidential"`
	RedirectURIs []string `json:"redirect_uris"`
	GrantTypes   []string `json:"grant_types,omitempty"`
	Name         string   `json:"name,omitempty"`
	CreatedAt    int64    `json:"created_at"`
}

func toClientJSON(client *storage.Client) *clientJSON {
	return &clientJSON{
		ClientID:     client.ClientID,
		SecretHash:   client.SecretHash,
		Confidential: client.Confidential,
		RedirectURIs: client.RedirectURIs,
		GrantTypes:   client.GrantTypes,
		Name:         client.Name,
		CreatedAt:    client.CreatedAt.Unix(),
	}
}

func fromClientJSON(j *clientJSON) *storage.Client {
	if j == nil {
		return nil
	}
	return &storage.Client{
		ClientID:     j.ClientID,
		SecretHash:   j.SecretHash,
		Confidential: j.Confidential,
		RedirectURIs: j.RedirectURIs,
		GrantTypes:   j.GrantTypes,
		Name:         j.Name,
		CreatedAt:    time.Unix(j.CreatedAt, 0),
	}
}

// codeJSON is the JSON representation of an authorization code
type codeJSON struct {
	Code                string `json:"code"`
	ClientID            string `json:"client_id"`
	UserID              string `json:"user_id"`
	RedirectURI         string `json:"redirect_uri"`
	Scope               string `json:"scope,omitempty"`
	CodeChallenge       string `json:"code_challenge,omitempty"`
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`
	FamilyID            string `json:"family_id"`
	CreatedAt           int64  `json:"created_at"`
	ExpiresAt           int64  `json:"expires_at"`
	Consumed            bool   `json:"consumed,omitempty"`
}

func toCodeJSON(code *storage.AuthorizationCode) *codeJSON {
	return &codeJSON{
		Code:                code.Code,
		ClientID:            code.ClientID,
		UserID:              code.UserID,
		RedirectURI:         code.RedirectURI,
		Scope:               code.Scope,
		CodeChallenge:       code.CodeChallenge,
		CodeChallengeMethod: code.CodeChallengeMethod,
		FamilyID:            code.FamilyID,
		CreatedAt:           code.CreatedAt.Unix(),
		ExpiresAt:           code.ExpiresAt.Unix(),
		Consumed:            code.Consumed,
	}
}

func fromCodeJSON(j *codeJSON) *storage.AuthorizationCode {
	if j == nil {
		return nil
	}
	return &storage.AuthorizationCode{
		Code:                j.Code,
		ClientID:            j.ClientID,
		UserID:              j.UserID,
		RedirectURI:         j.RedirectURI,
		Scope:               j.Scope,
		CodeChallenge:       j.CodeChallenge,
		CodeChallengeMethod: j.CodeChallengeMethod,
		FamilyID:            j.FamilyID,
		CreatedAt:           time.Unix(j.CreatedAt, 0),
		ExpiresAt:           time.Unix(j.ExpiresAt, 0),
		Consumed:            j.Consumed,
	}
}

// accessTokenJSON is the JSON representation of an access token
type accessTokenJSON struct {
	Token          string `json:"token"`
	ClientID       string `json:"client_id"`
	UserID         string `json:"user_id"`
	Scope          string `json:"scope,omitempty"`
	FamilyID       string `json:"family_id"`
	RefreshTokenID string `json:"refresh_token_id,omitempty"`
	IssuedAt       int64  `json:"issued_at"`
	ExpiresAt      int64  `json:"expires_at"`
	Revoked        bool   `json:"revoked,omitempty"`
}

func toAccessTokenJSON(token *storage.AccessToken) *accessTokenJSON {
	return &accessTokenJSON{
		Token:          token.Token,
		ClientID:       token.ClientID,
		UserID:         token.UserID,
		Scope:          token.Scope,
		FamilyID:       token.FamilyID,
		RefreshTokenID: token.RefreshTokenID,
		IssuedAt:       token.IssuedAt.Unix(),
		ExpiresAt:      token.ExpiresAt.Unix(),
		Revoked:        token.Revoked,
	}
}

func fromAccessTokenJSON(j *accessTokenJSON) *storage.AccessToken {
	if j == nil {
		return nil
	}
	return &storage.AccessToken{
		Token:          j.Token,
		ClientID:       j.ClientID,
		UserID:         j.UserID,
		Scope:          j.Scope,
		FamilyID:       j.FamilyID,
		RefreshTokenID: j.RefreshTokenID,
		IssuedAt:       time.Unix(j.IssuedAt, 0),
		ExpiresAt:      time.Unix(j.ExpiresAt, 0),
		Revoked:        j.Revoked,
	}
}

// refreshTokenJSON is the JSON representation of a refresh token.
// ExpiresAt and RevokedAt of 0 mean unset.
type refreshTokenJSON struct {
	Token         string `json:"token"`
	ClientID      string `json:"client_id"`
	UserID        string `json:"user_id"`
	Scope         string `json:"scope,omitempty"`
	FamilyID      string `json:"family_id"`
	RotatedFromID string `json:"rotated_from_id,omitempty"`
	IssuedAt      int64  `json:"issued_at"`
	ExpiresAt     int64  `json:"expires_at"`
	Revoked       bool   `json:"revoked,omitempty"`
	RevokedAt     int64  `json:"revoked_at,omitempty"`
}

func toRefreshTokenJSON(token *storage.RefreshToken) *refreshTokenJSON {
	j := &refreshTokenJSON{
		Token:         token.Token,
		ClientID:      token.ClientID,
		UserID:        token.UserID,
		Scope:         token.Scope,
		FamilyID:      token.FamilyID,
		RotatedFromID: token.RotatedFromID,
		IssuedAt:      token.IssuedAt.Unix(),
		Revoked:       token.Revoked,
	}
	if !token.ExpiresAt.IsZero() {
		j.ExpiresAt = token.ExpiresAt.Unix()
	}
	if !token.RevokedAt.IsZero() {
		j.RevokedAt = token.RevokedAt.Unix()
	}
	return j
}

func fromRefreshTokenJSON(j *refreshTokenJSON) *storage.RefreshToken {
	if j == nil {
		return nil
	}
	t := &storage.RefreshToken{
		Token:         j.Token,
		ClientID:      j.ClientID,
		UserID:        j.UserID,
		Scope:         j.Scope,
		FamilyID:      j.FamilyID,
		RotatedFromID: j.RotatedFromID,
		IssuedAt:      time.Unix(j.IssuedAt, 0),
		Revoked:       j.Revoked,
	}
	if j.ExpiresAt > 0 {
		t.ExpiresAt = time.Unix(j.ExpiresAt, 0)
	}
	if j.RevokedAt > 0 {
		t.RevokedAt = time.Unix(j.RevokedAt, 0)
	}
	return t
}

// ============================================================
// Helper methods
// ============================================================

// getAndUnmarshal fetches a key from Valkey, unmarshals the JSON data, and
// converts to the target type.
func getAndUnmarshal[J any, T any](
	ctx context.Context,
	s *Store,
	key string,
	notFoundErr error,
	fromJSON func(*J) *T,
) (*T, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).ToString()
	if err != nil {
		if isNilError(err) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("failed to get data: %w", err)
	}

	var j J
	if err := json.Unmarshal([]byte(data), &j); err != nil {
		return nil, fmt.Errorf("failed to unmarshal data: %w", err)
	}

	return fromJSON(&j), nil
}

// isNilError checks if the error indicates a nil/not-found result from Valkey.
func isNilError(err error) bool {
	return valkeygo.IsValkeyNil(err)
}

// safeTruncate safely truncates a string to n characters
func safeTruncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// calculateTTL calculates the TTL for a key based on expiry time.
// Returns 0 if the key has already expired.
func calculateTTL(expiresAt time.Time) time.Duration {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return 0
	}
	return ttl
}
