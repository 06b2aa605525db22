package valkey

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/helixauth/oauthcore/storage"
)

// dummyBcryptHash is compared against when the client does not exist, so
// that secret validation takes the same time for known and unknown client
// IDs. Hash of "dummy-password-for-timing".
const dummyBcryptHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// GetClient returns the client with the given ID.
func (s *Store) GetClient(ctx context.Context, clientID string) (*storage.Client, error) {
	return getAndUnmarshal(ctx, s, s.clientKey(clientID), storage.ErrClientNotFound, fromClientJSON)
}

// SaveClient stores or replaces a client registration. Client records do
// not expire.
func (s *Store) SaveClient(ctx context.Context, client *storage.Client) error {
	data, err := json.Marshal(toClientJSON(client))
	if err != nil {
		return fmt.Errorf("failed to marshal client: %w", err)
	}

	key := s.clientKey(client.ClientID)
	if err := s.client.Do(ctx, s.client.B().Set().Key(key).Value(string(data)).Build()).Error(); err != nil {
		return fmt.Errorf("failed to save client: %w", err)
	}

	s.logger.Debug("Saved client", "client_id", client.ClientID)
	return nil
}

// ValidateClientSecret verifies a plaintext secret against the stored hash.
// A bcrypt comparison runs whether or not the client exists, keeping the
// response time independent of client existence.
func (s *Store) ValidateClientSecret(ctx context.Context, clientID, secret string) error {
	client, err := s.GetClient(ctx, clientID)
	if err != nil || client.SecretHash == "" {
		_ = bcrypt.CompareHashAndPassword([]byte(dummyBcryptHash), []byte(secret))
		if err != nil {
			return err
		}
		return storage.ErrInvalidClientSecret
	}

	if err := bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(secret)); err != nil {
		return storage.ErrInvalidClientSecret
	}
	return nil
}
