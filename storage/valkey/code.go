package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/helixauth/oauthcore/storage"
)

// SaveCode stores an authorization code with a TTL matching its expiry.
func (s *Store) SaveCode(ctx context.Context, code *storage.AuthorizationCode) error {
	data, err := json.Marshal(toCodeJSON(code))
	if err != nil {
		return fmt.Errorf("failed to marshal authorization code: %w", err)
	}

	ttl := calculateTTL(code.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("authorization code already expired")
	}

	key := s.codeKey(code.Code)
	if err := s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(string(data)).Ex(ttl).Build(),
	).Error(); err != nil {
		return fmt.Errorf("failed to save authorization code: %w", err)
	}

	s.logger.Debug("Saved authorization code",
		"code_prefix", safeTruncate(code.Code, tokenIDLogLength))
	return nil
}

// GetCode retrieves an authorization code without consuming it.
// NOTE: for actual code exchange, use ConsumeCode to prevent race
// conditions.
func (s *Store) GetCode(ctx context.Context, code string) (*storage.AuthorizationCode, error) {
	rec, err := getAndUnmarshal(ctx, s, s.codeKey(code), storage.ErrCodeNotFound, fromCodeJSON)
	if err != nil {
		return nil, err
	}

	// TTL should handle this, but double-check
	if time.Now().After(rec.ExpiresAt) {
		return nil, fmt.Errorf("%w: authorization code expired", storage.ErrTokenExpired)
	}

	return rec, nil
}

// ConsumeCode atomically marks the code consumed and returns it.
//
// SECURITY: the check and the mark run as one Lua script, so only ONE of
// any number of concurrent redemptions can succeed, even across multiple
// server instances sharing this backend.
func (s *Store) ConsumeCode(ctx context.Context, code string) (*storage.AuthorizationCode, error) {
	key := s.codeKey(code)

	result, err := s.client.Do(ctx,
		s.client.B().Eval().Script(luaConsumeCode).
			Numkeys(1).
			Key(key).
			Arg(fmt.Sprintf("%d", time.Now().Unix())).
			Build(),
	).ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic code consume: %w", err)
	}

	switch {
	case result == "NOT_FOUND":
		return nil, storage.ErrCodeNotFound
	case result == "EXPIRED":
		return nil, fmt.Errorf("%w: authorization code expired", storage.ErrTokenExpired)
	case strings.HasPrefix(result, "ALREADY_USED:"):
		// Return the record for reuse detection and family revocation.
		codeData := strings.TrimPrefix(result, "ALREADY_USED:")
		var j codeJSON
		if err := json.Unmarshal([]byte(codeData), &j); err != nil {
			return nil, fmt.Errorf("%w: failed to parse consumed code", storage.ErrCodeConsumed)
		}
		return fromCodeJSON(&j), storage.ErrCodeConsumed
	}

	var j codeJSON
	if err := json.Unmarshal([]byte(result), &j); err != nil {
		return nil, fmt.Errorf("failed to parse authorization code: %w", err)
	}

	s.logger.Debug("Consumed authorization code",
		"code_prefix", safeTruncate(code, tokenIDLogLength))

	return fromCodeJSON(&j), nil
}

// DeleteCode removes an authorization code.
func (s *Store) DeleteCode(ctx context.Context, code string) error {
	if err := s.client.Do(ctx, s.client.B().Del().Key(s.codeKey(code)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to delete authorization code: %w", err)
	}

	s.logger.Debug("Deleted authorization code")
	return nil
}
