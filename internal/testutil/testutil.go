// Package testutil provides testing utilities and helpers for the oauthcore library.
package testutil

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/helixauth/oauthcore/storage"
)

// PKCEPair is a matched code verifier and S256 challenge for tests.
type PKCEPair struct {
	Verifier  string
	Challenge string
}

// NewPKCEPair generates a fresh verifier and its S256 challenge.
func NewPKCEPair(t *testing.T) PKCEPair {
	t.Helper()
	verifier := oauth2.GenerateVerifier()
	sum := sha256.Sum256([]byte(verifier))
	return PKCEPair{
		Verifier:  verifier,
		Challenge: base64.RawURLEncoding.EncodeToString(sum[:]),
	}
}

// PublicClient returns a public client registration for tests.
func PublicClient(clientID string, redirectURIs ...string) *storage.Client {
	if len(redirectURIs) == 0 {
		redirectURIs = []string{"https://app.example.com/callback"}
	}
	return &storage.Client{
		ClientID:     clientID,
		Confidential: false,
		RedirectURIs: redirectURIs,
		GrantTypes:   []string{"authorization_code", "refresh_token"},
		CreatedAt:    time.Now(),
	}
}

// ConfidentialClient returns a confidential client registration with the
// given plaintext secret hashed at bcrypt.MinCost to keep tests fast.
func ConfidentialClient(t *testing.T, clientID, secret string, redirectURIs ...string) *storage.Client {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	c := PublicClient(clientID, redirectURIs...)
	c.Confidential = true
	c.SecretHash = string(hash)
	return c
}
