package valkey

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/helixauth/oauthcore/storage"
)

// SaveAccessToken stores an access token with a TTL matching its expiry and
// records it in its family set.
func (s *Store) SaveAccessToken(ctx context.Context, token *storage.AccessToken) error {
	data, err := json.Marshal(toAccessTokenJSON(token))
	if err != nil {
		return fmt.Errorf("failed to marshal access token: %w", err)
	}

	ttl := calculateTTL(token.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("access token already expired")
	}

	key := s.accessTokenKey(token.Token)
	if err := s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(string(data)).Ex(ttl).Build(),
	).Error(); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}

	if token.FamilyID != "" {
		if err := s.addToFamily(ctx, s.accessFamilyKey(token.FamilyID), token.Token); err != nil {
			return err
		}
	}

	s.logger.Debug("Saved access token",
		"token_prefix", safeTruncate(token.Token, tokenIDLogLength),
		"client_id", token.ClientID)
	return nil
}

// GetAccessToken returns the token record, revoked or not.
func (s *Store) GetAccessToken(ctx context.Context, token string) (*storage.AccessToken, error) {
	return getAndUnmarshal(ctx, s, s.accessTokenKey(token), storage.ErrTokenNotFound, fromAccessTokenJSON)
}

// RevokeAccessToken marks the token revoked. Revoking a missing token is
// not an error.
func (s *Store) RevokeAccessToken(ctx context.Context, token string) error {
	_, err := s.revokeAccessToken(ctx, token)
	return err
}

// revokeAccessToken marks one access token revoked and reports whether it
// was newly revoked.
func (s *Store) revokeAccessToken(ctx context.Context, token string) (bool, error) {
	rec, err := getAndUnmarshal(ctx, s, s.accessTokenKey(token), storage.ErrTokenNotFound, fromAccessTokenJSON)
	if err != nil {
		if err == storage.ErrTokenNotFound {
			return false, nil
		}
		return false, err
	}
	if rec.Revoked {
		return false, nil
	}

	rec.Revoked = true
	data, err := json.Marshal(toAccessTokenJSON(rec))
	if err != nil {
		return false, fmt.Errorf("failed to marshal access token: %w", err)
	}

	key := s.accessTokenKey(token)
	if err := s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(string(data)).Keepttl().Build(),
	).Error(); err != nil {
		return false, fmt.Errorf("failed to revoke access token: %w", err)
	}
	return true, nil
}

// RevokeAccessTokenFamily revokes every access token recorded in a family
// set and returns how many were newly revoked.
func (s *Store) RevokeAccessTokenFamily(ctx context.Context, familyID string) (int, error) {
	tokens, err := s.client.Do(ctx,
		s.client.B().Smembers().Key(s.accessFamilyKey(familyID)).Build(),
	).AsStrSlice()
	if err != nil {
		if isNilError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list access token family: %w", err)
	}

	revoked := 0
	for _, token := range tokens {
		newlyRevoked, err := s.revokeAccessToken(ctx, token)
		if err != nil {
			return revoked, err
		}
		if newlyRevoked {
			revoked++
		}
	}

	if revoked > 0 {
		s.logger.Info("Revoked access token family",
			"family_id", familyID,
			"revoked", revoked)
	}
	return revoked, nil
}

// SaveRefreshToken stores a refresh token and records it in its family set.
// Tokens without an expiry are stored without a TTL.
func (s *Store) SaveRefreshToken(ctx context.Context, token *storage.RefreshToken) error {
	data, err := json.Marshal(toRefreshTokenJSON(token))
	if err != nil {
		return fmt.Errorf("failed to marshal refresh token: %w", err)
	}

	key := s.refreshTokenKey(token.Token)
	cmd := s.client.B().Set().Key(key).Value(string(data)).Build()
	if token.Expires() {
		ttl := calculateTTL(token.ExpiresAt)
		if ttl <= 0 {
			return fmt.Errorf("refresh token already expired")
		}
		cmd = s.client.B().Set().Key(key).Value(string(data)).Ex(ttl).Build()
	}

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}

	if token.FamilyID != "" {
		if err := s.addToFamily(ctx, s.refreshFamilyKey(token.FamilyID), token.Token); err != nil {
			return err
		}
	}

	s.logger.Debug("Saved refresh token",
		"token_prefix", safeTruncate(token.Token, tokenIDLogLength),
		"client_id", token.ClientID,
		"family_id", token.FamilyID)
	return nil
}

// GetRefreshToken returns the token record, revoked or not.
func (s *Store) GetRefreshToken(ctx context.Context, token string) (*storage.RefreshToken, error) {
	return getAndUnmarshal(ctx, s, s.refreshTokenKey(token), storage.ErrTokenNotFound, fromRefreshTokenJSON)
}

// ConsumeRefreshToken atomically revokes the token for rotation and returns
// it.
//
// SECURITY: the check and the mark run as one Lua script, so only ONE of
// any number of concurrent rotations can succeed, even across multiple
// server instances sharing this backend.
func (s *Store) ConsumeRefreshToken(ctx context.Context, token string) (*storage.RefreshToken, error) {
	key := s.refreshTokenKey(token)

	result, err := s.client.Do(ctx,
		s.client.B().Eval().Script(luaConsumeRefreshToken).
			Numkeys(1).
			Key(key).
			Arg(fmt.Sprintf("%d", time.Now().Unix())).
			Build(),
	).ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to execute atomic token consume: %w", err)
	}

	switch {
	case result == "NOT_FOUND":
		return nil, storage.ErrTokenNotFound
	case result == "EXPIRED":
		return nil, fmt.Errorf("%w: refresh token expired", storage.ErrTokenExpired)
	case strings.HasPrefix(result, "REVOKED:"):
		// Return the record so the caller can detect reuse.
		tokenData := strings.TrimPrefix(result, "REVOKED:")
		var j refreshTokenJSON
		if err := json.Unmarshal([]byte(tokenData), &j); err != nil {
			return nil, fmt.Errorf("%w: failed to parse revoked token", storage.ErrTokenRevoked)
		}
		return fromRefreshTokenJSON(&j), storage.ErrTokenRevoked
	}

	var j refreshTokenJSON
	if err := json.Unmarshal([]byte(result), &j); err != nil {
		return nil, fmt.Errorf("failed to parse refresh token: %w", err)
	}

	s.logger.Debug("Consumed refresh token",
		"token_prefix", safeTruncate(token, tokenIDLogLength))

	return fromRefreshTokenJSON(&j), nil
}

// RevokeRefreshToken marks the token revoked. Revoking a missing token is
// not an error.
func (s *Store) RevokeRefreshToken(ctx context.Context, token string) error {
	_, err := s.revokeRefreshToken(ctx, token)
	return err
}

// revokeRefreshToken marks one refresh token revoked and reports whether
// it was newly revoked.
func (s *Store) revokeRefreshToken(ctx context.Context, token string) (bool, error) {
	rec, err := getAndUnmarshal(ctx, s, s.refreshTokenKey(token), storage.ErrTokenNotFound, fromRefreshTokenJSON)
	if err != nil {
		if err == storage.ErrTokenNotFound {
			return false, nil
		}
		return false, err
	}
	if rec.Revoked {
		return false, nil
	}

	rec.Revoked = true
	rec.RevokedAt = time.Now()
	data, err := json.Marshal(toRefreshTokenJSON(rec))
	if err != nil {
		return false, fmt.Errorf("failed to marshal refresh token: %w", err)
	}

	key := s.refreshTokenKey(token)
	if err := s.client.Do(ctx,
		s.client.B().Set().Key(key).Value(string(data)).Keepttl().Build(),
	).Error(); err != nil {
		return false, fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return true, nil
}

// RevokeRefreshTokenFamily revokes every refresh token recorded in a
// family set and returns how many were newly revoked.
func (s *Store) RevokeRefreshTokenFamily(ctx context.Context, familyID string) (int, error) {
	tokens, err := s.client.Do(ctx,
		s.client.B().Smembers().Key(s.refreshFamilyKey(familyID)).Build(),
	).AsStrSlice()
	if err != nil {
		if isNilError(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to list refresh token family: %w", err)
	}

	revoked := 0
	for _, token := range tokens {
		newlyRevoked, err := s.revokeRefreshToken(ctx, token)
		if err != nil {
			return revoked, err
		}
		if newlyRevoked {
			revoked++
		}
	}

	if revoked > 0 {
		s.logger.Info("Revoked refresh token family",
			"family_id", familyID,
			"revoked", revoked)
	}
	return revoked, nil
}

// addToFamily records a token in a family membership set. The set outlives
// its tokens so reuse detection still has the lineage after expiry.
func (s *Store) addToFamily(ctx context.Context, setKey, token string) error {
	if err := s.client.Do(ctx,
		s.client.B().Sadd().Key(setKey).Member(token).Build(),
	).Error(); err != nil {
		return fmt.Errorf("failed to track token family: %w", err)
	}

	if err := s.client.Do(ctx,
		s.client.B().Expire().Key(setKey).Seconds(int64(familySetRetention.Seconds())).Build(),
	).Error(); err != nil {
		return fmt.Errorf("failed to set family retention: %w", err)
	}
	return nil
}
