package oauthcore

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/helixauth/oauthcore/internal/testutil"
	"github.com/helixauth/oauthcore/sessions/mock"
	"github.com/helixauth/oauthcore/storage"
	"github.com/helixauth/oauthcore/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore(memory.WithCleanupInterval(0))
	t.Cleanup(func() { _ = store.Close() })

	srv, err := NewServer(store, &mock.Provider{User: "user-1"}, &ServerConfig{
		Issuer: "https://auth.example.com",
	}, testLogger())
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv, store
}

func saveClient(t *testing.T, store *memory.Store, client *storage.Client) {
	t.Helper()
	if err := store.SaveClient(context.Background(), client); err != nil {
		t.Fatalf("SaveClient: %v", err)
	}
}

// authorize runs a valid authorization request for the given client and
// returns the minted code.
func authorize(t *testing.T, srv *Server, clientID, redirectURI, scope string, pkce testutil.PKCEPair) string {
	t.Helper()

	result, err := srv.Authorize(context.Background(), AuthorizeRequest{
		ResponseType:        ResponseTypeCode,
		ClientID:            clientID,
		RedirectURI:         redirectURI,
		State:               "xyz",
		Scope:               scope,
		CodeChallenge:       pkce.Challenge,
		CodeChallengeMethod: CodeChallengeMethodS256,
		UserID:              "user-1",
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	return result.Code
}

func assertOAuthCode(t *testing.T, err error, wantCode string) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", wantCode)
	}
	var oerr *OAuthError
	if !errors.As(err, &oerr) {
		t.Fatalf("expected *OAuthError, got %T: %v", err, err)
	}
	if oerr.Code != wantCode {
		t.Errorf("error code = %q, want %q", oerr.Code, wantCode)
	}
}

func TestAuthorizeValidation(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	pkce := testutil.NewPKCEPair(t)

	valid := AuthorizeRequest{
		ResponseType:        ResponseTypeCode,
		ClientID:            "app",
		RedirectURI:         "https://app.example.com/callback",
		State:               "xyz",
		CodeChallenge:       pkce.Challenge,
		CodeChallengeMethod: CodeChallengeMethodS256,
		UserID:              "user-1",
	}

	tests := []struct {
		name   string
		mutate func(*AuthorizeRequest)
	}{
		{"unsupported response_type", func(r *AuthorizeRequest) { r.ResponseType = "token" }},
		{"missing client_id", func(r *AuthorizeRequest) { r.ClientID = "" }},
		{"unknown client", func(r *AuthorizeRequest) { r.ClientID = "ghost" }},
		{"missing redirect_uri", func(r *AuthorizeRequest) { r.RedirectURI = "" }},
		{"unregistered redirect_uri", func(r *AuthorizeRequest) { r.RedirectURI = "https://evil.example.com/cb" }},
		{"redirect_uri prefix is not a match", func(r *AuthorizeRequest) { r.RedirectURI = "https://app.example.com/callback/extra" }},
		{"missing state", func(r *AuthorizeRequest) { r.State = "" }},
		{"missing code_challenge for public client", func(r *AuthorizeRequest) { r.CodeChallenge = "" }},
		{"plain challenge method", func(r *AuthorizeRequest) { r.CodeChallengeMethod = "plain" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := srv.Authorize(context.Background(), req)
			assertOAuthCode(t, err, ErrorCodeInvalidRequest)
		})
	}
}

func TestAuthorizeLoginRequired(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	pkce := testutil.NewPKCEPair(t)

	_, err := srv.Authorize(context.Background(), AuthorizeRequest{
		ResponseType:        ResponseTypeCode,
		ClientID:            "app",
		RedirectURI:         "https://app.example.com/callback",
		State:               "xyz",
		CodeChallenge:       pkce.Challenge,
		CodeChallengeMethod: CodeChallengeMethodS256,
	})
	if !errors.Is(err, ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
}

func TestAuthorizeInvalidRequestsDoNotLeakClientExistence(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))

	base := AuthorizeRequest{
		ResponseType: ResponseTypeCode,
		State:        "xyz",
		RedirectURI:  "https://evil.example.com/cb",
		UserID:       "user-1",
	}

	known := base
	known.ClientID = "app"
	_, errKnown := srv.Authorize(context.Background(), known)

	unknown := base
	unknown.ClientID = "ghost"
	_, errUnknown := srv.Authorize(context.Background(), unknown)

	if errKnown == nil || errUnknown == nil {
		t.Fatal("both requests should fail")
	}
	if errKnown.Error() != errUnknown.Error() {
		t.Errorf("unknown client and bad redirect should produce identical errors, got %q vs %q",
			errKnown.Error(), errUnknown.Error())
	}
}

func TestAuthorizeConfidentialClientWithoutPKCE(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.ConfidentialClient(t, "backend", "s3cret", "https://backend.example.com/cb"))

	result, err := srv.Authorize(context.Background(), AuthorizeRequest{
		ResponseType: ResponseTypeCode,
		ClientID:     "backend",
		RedirectURI:  "https://backend.example.com/cb",
		State:        "xyz",
		UserID:       "user-1",
	})
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if result.Code == "" {
		t.Error("expected authorization code")
	}
	if result.State != "xyz" {
		t.Errorf("State = %q, want %q", result.State, "xyz")
	}
}

func TestExchangeCodeHappyPath(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	pkce := testutil.NewPKCEPair(t)
	code := authorize(t, srv, "app", "https://app.example.com/callback", "read write", pkce)

	resp, err := srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeAuthorizationCode,
		ClientID:     "app",
		Code:         code,
		RedirectURI:  "https://app.example.com/callback",
		CodeVerifier: pkce.Verifier,
	})
	if err != nil {
		t.Fatalf("Token: %v", err)
	}

	if resp.AccessToken == "" || resp.RefreshToken == "" {
		t.Fatal("expected both access and refresh tokens")
	}
	if resp.TokenType != tokenTypeBearer {
		t.Errorf("TokenType = %q, want %q", resp.TokenType, tokenTypeBearer)
	}
	if resp.ExpiresIn <= 0 {
		t.Errorf("ExpiresIn = %d, want > 0", resp.ExpiresIn)
	}
	if resp.Scope != "read write" {
		t.Errorf("Scope = %q, want %q", resp.Scope, "read write")
	}

	intro := srv.Introspect(context.Background(), resp.AccessToken, "")
	if !intro.Active {
		t.Fatal("issued access token should introspect as active")
	}
	if intro.ClientID != "app" || intro.Sub != "user-1" || intro.Scope != "read write" {
		t.Errorf("unexpected introspection claims: %+v", intro)
	}
	if intro.Exp == 0 {
		t.Error("expected exp claim for access token")
	}
}

func TestExchangeCodeValidation(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	saveClient(t, store, testutil.PublicClient("other", "https://other.example.com/cb"))

	pkce := testutil.NewPKCEPair(t)
	wrong := testutil.NewPKCEPair(t)
	code := authorize(t, srv, "app", "https://app.example.com/callback", "read", pkce)

	valid := TokenRequest{
		GrantType:    GrantTypeAuthorizationCode,
		ClientID:     "app",
		Code:         code,
		RedirectURI:  "https://app.example.com/callback",
		CodeVerifier: pkce.Verifier,
	}

	tests := []struct {
		name     string
		mutate   func(*TokenRequest)
		wantCode string
	}{
		{"unknown code", func(r *TokenRequest) { r.Code = "nope" }, ErrorCodeInvalidGrant},
		{"missing code", func(r *TokenRequest) { r.Code = "" }, ErrorCodeInvalidRequest},
		{"missing redirect_uri", func(r *TokenRequest) { r.RedirectURI = "" }, ErrorCodeInvalidRequest},
		{"redirect_uri mismatch", func(r *TokenRequest) { r.RedirectURI = "https://app.example.com/other" }, ErrorCodeInvalidGrant},
		{"wrong client", func(r *TokenRequest) { r.ClientID = "other" }, ErrorCodeInvalidGrant},
		{"missing verifier", func(r *TokenRequest) { r.CodeVerifier = "" }, ErrorCodeInvalidGrant},
		{"wrong verifier", func(r *TokenRequest) { r.CodeVerifier = wrong.Verifier }, ErrorCodeInvalidGrant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := srv.Token(context.Background(), req)
			assertOAuthCode(t, err, tt.wantCode)
		})
	}

	// None of the failed attempts consumed the code.
	if _, err := srv.Token(context.Background(), valid); err != nil {
		t.Fatalf("code should still be redeemable after failed attempts: %v", err)
	}
}

func TestExchangeCodeSingleUse(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	pkce := testutil.NewPKCEPair(t)
	code := authorize(t, srv, "app", "https://app.example.com/callback", "read", pkce)

	req := TokenRequest{
		GrantType:    GrantTypeAuthorizationCode,
		ClientID:     "app",
		Code:         code,
		RedirectURI:  "https://app.example.com/callback",
		CodeVerifier: pkce.Verifier,
	}

	first, err := srv.Token(context.Background(), req)
	if err != nil {
		t.Fatalf("first exchange: %v", err)
	}

	_, err = srv.Token(context.Background(), req)
	assertOAuthCode(t, err, ErrorCodeInvalidGrant)

	// Replay revokes everything minted from the code.
	if srv.Introspect(context.Background(), first.AccessToken, "").Active {
		t.Error("access token should be revoked after code replay")
	}
	if srv.Introspect(context.Background(), first.RefreshToken, "").Active {
		t.Error("refresh token should be revoked after code replay")
	}
}

func TestExchangeCodeConcurrent(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	pkce := testutil.NewPKCEPair(t)
	code := authorize(t, srv, "app", "https://app.example.com/callback", "read", pkce)

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := srv.Token(context.Background(), TokenRequest{
				GrantType:    GrantTypeAuthorizationCode,
				ClientID:     "app",
				Code:         code,
				RedirectURI:  "https://app.example.com/callback",
				CodeVerifier: pkce.Verifier,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("got %d successful exchanges, want exactly 1", successes)
	}
}

func TestTokenUnsupportedGrantType(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app"))

	_, err := srv.Token(context.Background(), TokenRequest{
		GrantType: "client_credentials",
		ClientID:  "app",
	})
	assertOAuthCode(t, err, ErrorCodeUnsupportedGrantType)

	_, err = srv.Token(context.Background(), TokenRequest{ClientID: "app"})
	assertOAuthCode(t, err, ErrorCodeInvalidRequest)
}

func TestTokenClientAuthentication(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.ConfidentialClient(t, "backend", "s3cret", "https://backend.example.com/cb"))

	tests := []struct {
		name   string
		id     string
		secret string
	}{
		{"wrong secret", "backend", "wrong"},
		{"missing secret", "backend", ""},
		{"unknown client", "ghost", "s3cret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := srv.Token(context.Background(), TokenRequest{
				GrantType:    GrantTypeAuthorizationCode,
				ClientID:     tt.id,
				ClientSecret: tt.secret,
				Code:         "whatever",
				RedirectURI:  "https://backend.example.com/cb",
			})
			assertOAuthCode(t, err, ErrorCodeInvalidClient)
		})
	}
}

// exchangeForTokens drives the full code flow and returns the token response.
func exchangeForTokens(t *testing.T, srv *Server, clientID, redirectURI, scope string) *TokenResponse {
	t.Helper()

	pkce := testutil.NewPKCEPair(t)
	code := authorize(t, srv, clientID, redirectURI, scope, pkce)
	resp, err := srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeAuthorizationCode,
		ClientID:     clientID,
		Code:         code,
		RedirectURI:  redirectURI,
		CodeVerifier: pkce.Verifier,
	})
	if err != nil {
		t.Fatalf("exchange: %v", err)
	}
	return resp
}

func TestRefreshTokenRotation(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	initial := exchangeForTokens(t, srv, "app", "https://app.example.com/callback", "read write")

	rotated, err := srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "app",
		RefreshToken: initial.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if rotated.RefreshToken == initial.RefreshToken {
		t.Error("refresh token should rotate")
	}
	if rotated.AccessToken == initial.AccessToken {
		t.Error("access token should change on refresh")
	}
	if rotated.Scope != "read write" {
		t.Errorf("Scope = %q, want %q", rotated.Scope, "read write")
	}

	// The rotated-out token is no longer active.
	if srv.Introspect(context.Background(), initial.RefreshToken, TokenTypeHintRefreshToken).Active {
		t.Error("old refresh token should be inactive after rotation")
	}
	if !srv.Introspect(context.Background(), rotated.RefreshToken, TokenTypeHintRefreshToken).Active {
		t.Error("new refresh token should be active")
	}
}

func TestRefreshTokenReuseRevokesFamily(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	initial := exchangeForTokens(t, srv, "app", "https://app.example.com/callback", "read")

	rotated, err := srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "app",
		RefreshToken: initial.RefreshToken,
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// Presenting the rotated-out token again is theft evidence.
	_, err = srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "app",
		RefreshToken: initial.RefreshToken,
	})
	assertOAuthCode(t, err, ErrorCodeInvalidGrant)

	// The whole family dies, including the tokens from the legitimate rotation.
	if srv.Introspect(context.Background(), rotated.RefreshToken, "").Active {
		t.Error("rotated refresh token should be revoked after family revocation")
	}
	if srv.Introspect(context.Background(), rotated.AccessToken, "").Active {
		t.Error("rotated access token should be revoked after family revocation")
	}

	_, err = srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "app",
		RefreshToken: rotated.RefreshToken,
	})
	assertOAuthCode(t, err, ErrorCodeInvalidGrant)
}

func TestRefreshTokenScopeNarrowing(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	initial := exchangeForTokens(t, srv, "app", "https://app.example.com/callback", "read write")

	narrowed, err := srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "app",
		RefreshToken: initial.RefreshToken,
		Scope:        "read",
	})
	if err != nil {
		t.Fatalf("refresh with narrowed scope: %v", err)
	}
	if narrowed.Scope != "read" {
		t.Errorf("Scope = %q, want %q", narrowed.Scope, "read")
	}

	// Widening past the original grant is rejected and must not burn the token.
	_, err = srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "app",
		RefreshToken: narrowed.RefreshToken,
		Scope:        "read write admin",
	})
	assertOAuthCode(t, err, ErrorCodeInvalidGrant)

	if _, err := srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "app",
		RefreshToken: narrowed.RefreshToken,
	}); err != nil {
		t.Fatalf("token should survive a rejected scope widening: %v", err)
	}
}

func TestRefreshTokenWrongClient(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	saveClient(t, store, testutil.PublicClient("other", "https://other.example.com/cb"))
	initial := exchangeForTokens(t, srv, "app", "https://app.example.com/callback", "read")

	_, err := srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "other",
		RefreshToken: initial.RefreshToken,
	})
	assertOAuthCode(t, err, ErrorCodeInvalidGrant)

	// A mismatched client must not consume the token.
	if _, err := srv.Token(context.Background(), TokenRequest{
		GrantType:    GrantTypeRefreshToken,
		ClientID:     "app",
		RefreshToken: initial.RefreshToken,
	}); err != nil {
		t.Fatalf("token should survive presentation by the wrong client: %v", err)
	}
}

func TestRefreshTokenConcurrent(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	initial := exchangeForTokens(t, srv, "app", "https://app.example.com/callback", "read")

	const workers = 20
	var wg sync.WaitGroup
	results := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := srv.Token(context.Background(), TokenRequest{
				GrantType:    GrantTypeRefreshToken,
				ClientID:     "app",
				RefreshToken: initial.RefreshToken,
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	if successes != 1 {
		t.Errorf("got %d successful rotations, want exactly 1", successes)
	}
}

func TestRevokeAccessToken(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	tokens := exchangeForTokens(t, srv, "app", "https://app.example.com/callback", "read")

	if err := srv.Revoke(context.Background(), RevokeRequest{Token: tokens.AccessToken}); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if srv.Introspect(context.Background(), tokens.AccessToken, "").Active {
		t.Error("access token should be inactive after revocation")
	}
	// Revoking an access token leaves the refresh token usable.
	if !srv.Introspect(context.Background(), tokens.RefreshToken, "").Active {
		t.Error("refresh token should survive access token revocation")
	}
}

func TestRevokeRefreshTokenRevokesFamily(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	tokens := exchangeForTokens(t, srv, "app", "https://app.example.com/callback", "read")

	if err := srv.Revoke(context.Background(), RevokeRequest{
		Token:         tokens.RefreshToken,
		TokenTypeHint: TokenTypeHintRefreshToken,
	}); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if srv.Introspect(context.Background(), tokens.RefreshToken, "").Active {
		t.Error("refresh token should be inactive after revocation")
	}
	if srv.Introspect(context.Background(), tokens.AccessToken, "").Active {
		t.Error("bound access token should be revoked with its refresh token")
	}
}

func TestRevokeUnknownToken(t *testing.T) {
	srv, _ := newTestServer(t)

	if err := srv.Revoke(context.Background(), RevokeRequest{Token: "no-such-token"}); err != nil {
		t.Errorf("revoking an unknown token should not error, got %v", err)
	}

	err := srv.Revoke(context.Background(), RevokeRequest{})
	assertOAuthCode(t, err, ErrorCodeInvalidRequest)
}

func TestRevokeWithMisleadingHint(t *testing.T) {
	srv, store := newTestServer(t)
	saveClient(t, store, testutil.PublicClient("app", "https://app.example.com/callback"))
	tokens := exchangeForTokens(t, srv, "app", "https://app.example.com/callback", "read")

	// Wrong hint still finds the token (RFC 7009 section 2.1).
	if err := srv.Revoke(context.Background(), RevokeRequest{
		Token:         tokens.AccessToken,
		TokenTypeHint: TokenTypeHintRefreshToken,
	}); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if srv.Introspect(context.Background(), tokens.AccessToken, "").Active {
		t.Error("access token should be revoked despite the wrong hint")
	}
}

func TestIntrospectInactiveTokens(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, token := range []string{"", "unknown", "not a token at all \x00"} {
		resp := srv.Introspect(context.Background(), token, "")
		if resp.Active {
			t.Errorf("Introspect(%q) should be inactive", token)
		}
		if resp.ClientID != "" || resp.Sub != "" || resp.Scope != "" || resp.Exp != 0 {
			t.Errorf("inactive response must carry no claims, got %+v", resp)
		}
	}
}

func TestRegisterClient(t *testing.T) {
	srv, store := newTestServer(t)

	client, err := srv.RegisterClient(context.Background(), RegisterClientParams{
		ClientID:     "backend",
		Secret:       "s3cret",
		Name:         "Backend Service",
		RedirectURIs: []string{"https://backend.example.com/cb"},
		Confidential: true,
	})
	if err != nil {
		t.Fatalf("RegisterClient: %v", err)
	}
	if client.SecretHash == "" || client.SecretHash == "s3cret" {
		t.Error("secret should be stored as a hash")
	}
	if len(client.GrantTypes) == 0 {
		t.Error("expected default grant types")
	}

	if err := store.ValidateClientSecret(context.Background(), "backend", "s3cret"); err != nil {
		t.Errorf("stored hash should validate the original secret: %v", err)
	}
	if err := store.ValidateClientSecret(context.Background(), "backend", "wrong"); err == nil {
		t.Error("wrong secret should not validate")
	}
}

func TestRegisterClientValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		params RegisterClientParams
	}{
		{"missing client_id", RegisterClientParams{RedirectURIs: []string{"https://a.example.com/cb"}}},
		{"missing redirect URIs", RegisterClientParams{ClientID: "x"}},
		{"relative redirect URI", RegisterClientParams{ClientID: "x", RedirectURIs: []string{"/cb"}}},
		{"confidential without secret", RegisterClientParams{ClientID: "x", RedirectURIs: []string{"https://a.example.com/cb"}, Confidential: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := srv.RegisterClient(context.Background(), tt.params); err == nil {
				t.Error("expected error")
			}
		})
	}
}
