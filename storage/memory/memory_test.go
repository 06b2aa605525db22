package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/helixauth/oauthcore/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(WithCleanupInterval(0))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testClient(t *testing.T, secret string) *storage.Client {
	t.Helper()
	c := &storage.Client{
		ClientID:     "test-client",
		Confidential: secret != "",
		RedirectURIs: []string{"https://app.example.com/callback"},
		GrantTypes:   []string{"authorization_code", "refresh_token"},
		Name:         "Test Client",
		CreatedAt:    time.Now(),
	}
	if secret != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("bcrypt: %v", err)
		}
		c.SecretHash = string(hash)
	}
	return c
}

func TestStore_SaveAndGetClient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := testClient(t, "")
	if err := s.SaveClient(ctx, client); err != nil {
		t.Fatalf("SaveClient: %v", err)
	}

	got, err := s.GetClient(ctx, client.ClientID)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if got.ClientID != client.ClientID {
		t.Errorf("ClientID = %q, want %q", got.ClientID, client.ClientID)
	}
	if len(got.RedirectURIs) != 1 || got.RedirectURIs[0] != client.RedirectURIs[0] {
		t.Errorf("RedirectURIs = %v, want %v", got.RedirectURIs, client.RedirectURIs)
	}

	// Mutating the returned copy must not affect the stored record.
	got.RedirectURIs[0] = "https://evil.example.com"
	again, err := s.GetClient(ctx, client.ClientID)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if again.RedirectURIs[0] != client.RedirectURIs[0] {
		t.Error("stored client was mutated through returned copy")
	}
}

func TestStore_GetClient_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetClient(context.Background(), "nope")
	if !errors.Is(err, storage.ErrClientNotFound) {
		t.Errorf("err = %v, want ErrClientNotFound", err)
	}
}

func TestStore_ValidateClientSecret(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := testClient(t, "correct-secret")
	if err := s.SaveClient(ctx, client); err != nil {
		t.Fatalf("SaveClient: %v", err)
	}

	tests := []struct {
		name     string
		clientID string
		secret   string
		wantErr  error
	}{
		{"correct secret", client.ClientID, "correct-secret", nil},
		{"wrong secret", client.ClientID, "wrong-secret", storage.ErrInvalidClientSecret},
		{"unknown client", "no-such-client", "correct-secret", storage.ErrClientNotFound},
		{"empty secret", client.ClientID, "", storage.ErrInvalidClientSecret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateClientSecret(ctx, tt.clientID, tt.secret)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateClientSecret: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_ValidateClientSecret_PublicClient(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	client := testClient(t, "")
	if err := s.SaveClient(ctx, client); err != nil {
		t.Fatalf("SaveClient: %v", err)
	}

	err := s.ValidateClientSecret(ctx, client.ClientID, "anything")
	if !errors.Is(err, storage.ErrInvalidClientSecret) {
		t.Errorf("err = %v, want ErrInvalidClientSecret", err)
	}
}

func testCode(code string, expiresIn time.Duration) *storage.AuthorizationCode {
	now := time.Now()
	return &storage.AuthorizationCode{
		Code:                code,
		ClientID:            "test-client",
		UserID:              "user-1",
		RedirectURI:         "https://app.example.com/callback",
		Scope:               "read write",
		CodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		CodeChallengeMethod: "S256",
		FamilyID:            "fam-1",
		CreatedAt:           now,
		ExpiresAt:           now.Add(expiresIn),
	}
}

func TestStore_CodeLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	code := testCode("code-1", time.Minute)
	if err := s.SaveCode(ctx, code); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}

	got, err := s.GetCode(ctx, "code-1")
	if err != nil {
		t.Fatalf("GetCode: %v", err)
	}
	if got.Consumed {
		t.Error("code consumed before ConsumeCode")
	}

	consumed, err := s.ConsumeCode(ctx, "code-1")
	if err != nil {
		t.Fatalf("ConsumeCode: %v", err)
	}
	if !consumed.Consumed {
		t.Error("ConsumeCode did not mark code consumed")
	}
	if consumed.FamilyID != "fam-1" {
		t.Errorf("FamilyID = %q, want fam-1", consumed.FamilyID)
	}

	// Replay must fail but still return the record for family revocation.
	replayed, err := s.ConsumeCode(ctx, "code-1")
	if !errors.Is(err, storage.ErrCodeConsumed) {
		t.Fatalf("err = %v, want ErrCodeConsumed", err)
	}
	if replayed == nil || replayed.FamilyID != "fam-1" {
		t.Error("replayed record missing family ID")
	}
}

func TestStore_ConsumeCode_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.ConsumeCode(context.Background(), "missing")
	if !errors.Is(err, storage.ErrCodeNotFound) {
		t.Errorf("err = %v, want ErrCodeNotFound", err)
	}
}

func TestStore_ConsumeCode_Expired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	code := testCode("stale", -time.Minute)
	if err := s.SaveCode(ctx, code); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}

	_, err := s.ConsumeCode(ctx, "stale")
	if !errors.Is(err, storage.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestStore_ConsumeCode_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	code := testCode("contested", time.Minute)
	if err := s.SaveCode(ctx, code); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}

	const goroutines = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeCode(ctx, "contested"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("got %d successful redemptions, want exactly 1", successes)
	}
}

func TestStore_DeleteCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveCode(ctx, testCode("gone", time.Minute)); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}
	if err := s.DeleteCode(ctx, "gone"); err != nil {
		t.Fatalf("DeleteCode: %v", err)
	}
	if _, err := s.GetCode(ctx, "gone"); !errors.Is(err, storage.ErrCodeNotFound) {
		t.Errorf("err = %v, want ErrCodeNotFound", err)
	}

	// Deleting a missing code is not an error.
	if err := s.DeleteCode(ctx, "gone"); err != nil {
		t.Errorf("DeleteCode on missing code: %v", err)
	}
}

func TestStore_AccessTokenLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	tok := &storage.AccessToken{
		Token:     "at-1",
		ClientID:  "test-client",
		UserID:    "user-1",
		Scope:     "read",
		FamilyID:  "fam-1",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := s.SaveAccessToken(ctx, tok); err != nil {
		t.Fatalf("SaveAccessToken: %v", err)
	}

	got, err := s.GetAccessToken(ctx, "at-1")
	if err != nil {
		t.Fatalf("GetAccessToken: %v", err)
	}
	if got.Revoked {
		t.Error("token revoked on save")
	}

	if err := s.RevokeAccessToken(ctx, "at-1"); err != nil {
		t.Fatalf("RevokeAccessToken: %v", err)
	}
	got, err = s.GetAccessToken(ctx, "at-1")
	if err != nil {
		t.Fatalf("GetAccessToken after revoke: %v", err)
	}
	if !got.Revoked {
		t.Error("token not revoked")
	}

	// Revoking a missing token is not an error.
	if err := s.RevokeAccessToken(ctx, "missing"); err != nil {
		t.Errorf("RevokeAccessToken on missing token: %v", err)
	}
}

func TestStore_ConsumeRefreshToken_Reuse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	tok := &storage.RefreshToken{
		Token:    "rt-1",
		ClientID: "test-client",
		UserID:   "user-1",
		Scope:    "read write",
		FamilyID: "fam-1",
		IssuedAt: now,
	}
	if err := s.SaveRefreshToken(ctx, tok); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	consumed, err := s.ConsumeRefreshToken(ctx, "rt-1")
	if err != nil {
		t.Fatalf("ConsumeRefreshToken: %v", err)
	}
	if !consumed.Revoked || consumed.RevokedAt.IsZero() {
		t.Error("consumed token not marked revoked")
	}

	reused, err := s.ConsumeRefreshToken(ctx, "rt-1")
	if !errors.Is(err, storage.ErrTokenRevoked) {
		t.Fatalf("err = %v, want ErrTokenRevoked", err)
	}
	if reused == nil || reused.FamilyID != "fam-1" {
		t.Error("reused record missing family ID")
	}
}

func TestStore_ConsumeRefreshToken_Concurrent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tok := &storage.RefreshToken{
		Token:    "rt-contested",
		ClientID: "test-client",
		UserID:   "user-1",
		FamilyID: "fam-1",
		IssuedAt: time.Now(),
	}
	if err := s.SaveRefreshToken(ctx, tok); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	const goroutines = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.ConsumeRefreshToken(ctx, "rt-contested"); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("got %d successful rotations, want exactly 1", successes)
	}
}

func TestStore_RevokeRefreshTokenFamily(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for _, tok := range []*storage.RefreshToken{
		{Token: "rt-a", FamilyID: "fam-1", IssuedAt: now},
		{Token: "rt-b", FamilyID: "fam-1", IssuedAt: now},
		{Token: "rt-other", FamilyID: "fam-2", IssuedAt: now},
	} {
		if err := s.SaveRefreshToken(ctx, tok); err != nil {
			t.Fatalf("SaveRefreshToken: %v", err)
		}
	}

	n, err := s.RevokeRefreshTokenFamily(ctx, "fam-1")
	if err != nil {
		t.Fatalf("RevokeRefreshTokenFamily: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked %d tokens, want 2", n)
	}

	other, err := s.GetRefreshToken(ctx, "rt-other")
	if err != nil {
		t.Fatalf("GetRefreshToken: %v", err)
	}
	if other.Revoked {
		t.Error("token outside family was revoked")
	}
}

func TestStore_RevokeAccessTokenFamily(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	for _, tok := range []*storage.AccessToken{
		{Token: "at-a", FamilyID: "fam-1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
		{Token: "at-b", FamilyID: "fam-1", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
		{Token: "at-other", FamilyID: "fam-2", IssuedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		if err := s.SaveAccessToken(ctx, tok); err != nil {
			t.Fatalf("SaveAccessToken: %v", err)
		}
	}

	n, err := s.RevokeAccessTokenFamily(ctx, "fam-1")
	if err != nil {
		t.Fatalf("RevokeAccessTokenFamily: %v", err)
	}
	if n != 2 {
		t.Errorf("revoked %d tokens, want 2", n)
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now()
	if err := s.SaveCode(ctx, testCode("old", -time.Hour)); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}
	if err := s.SaveCode(ctx, testCode("fresh", time.Hour)); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}
	if err := s.SaveAccessToken(ctx, &storage.AccessToken{
		Token: "at-old", ExpiresAt: now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("SaveAccessToken: %v", err)
	}
	// A refresh token without expiry must survive cleanup.
	if err := s.SaveRefreshToken(ctx, &storage.RefreshToken{
		Token: "rt-forever", IssuedAt: now,
	}); err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	s.cleanupExpired()

	if _, err := s.GetCode(ctx, "fresh"); err != nil {
		t.Errorf("fresh code removed: %v", err)
	}
	s.mu.RLock()
	_, oldCode := s.codes["old"]
	_, oldAT := s.accessTokens["at-old"]
	_, forever := s.refreshTokens["rt-forever"]
	s.mu.RUnlock()
	if oldCode {
		t.Error("expired code not removed")
	}
	if oldAT {
		t.Error("expired access token not removed")
	}
	if !forever {
		t.Error("non-expiring refresh token removed")
	}
}

func TestStore_Counts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveClient(ctx, testClient(t, "")); err != nil {
		t.Fatalf("SaveClient: %v", err)
	}
	if err := s.SaveCode(ctx, testCode("c1", time.Minute)); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}

	clients, codes, accessTokens, refreshTokens := s.Counts()
	if clients != 1 || codes != 1 || accessTokens != 0 || refreshTokens != 0 {
		t.Errorf("Counts() = %d, %d, %d, %d, want 1, 1, 0, 0",
			clients, codes, accessTokens, refreshTokens)
	}
}

func TestStore_CloseThroughInterface(t *testing.T) {
	var s storage.Store = NewStore(WithCleanupInterval(0))
	ctx := context.Background()

	if err := s.SaveCode(ctx, testCode("c1", time.Minute)); err != nil {
		t.Fatalf("SaveCode: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
