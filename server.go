package oauthcore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/helixauth/oauthcore/instrumentation"
	"github.com/helixauth/oauthcore/security"
	"github.com/helixauth/oauthcore/sessions"
	"github.com/helixauth/oauthcore/storage"
)

// ErrLoginRequired is returned by Authorize when the request is valid but no
// authenticated user session is present. The caller should redirect the user
// agent to the login flow and replay the request afterwards.
var ErrLoginRequired = errors.New("user authentication required")

// Server implements the authorization server core: code issuance, token
// exchange, refresh rotation, revocation and introspection. It is
// transport-agnostic; Handler adapts it to HTTP.
type Server struct {
	store       storage.Store
	sessions    sessions.Provider
	auditor     *security.Auditor
	rateLimiter *security.RateLimiter
	inst        *instrumentation.Instrumentation
	logger      *slog.Logger
	config      *ServerConfig
}

// NewServer creates a new authorization server
func NewServer(store storage.Store, sess sessions.Provider, config *ServerConfig, logger *slog.Logger) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if sess == nil {
		return nil, fmt.Errorf("session provider is required")
	}
	if config == nil {
		config = &ServerConfig{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	config = applySecureDefaults(config, logger)

	return &Server{
		store:    store,
		sessions: sess,
		config:   config,
		logger:   logger,
	}, nil
}

// SetAuditor sets the security auditor
func (s *Server) SetAuditor(aud *security.Auditor) {
	s.auditor = aud
}

// SetRateLimiter sets the per-IP rate limiter used by the HTTP handler
func (s *Server) SetRateLimiter(rl *security.RateLimiter) {
	s.rateLimiter = rl
}

// SetInstrumentation sets the OpenTelemetry instrumentation
func (s *Server) SetInstrumentation(inst *instrumentation.Instrumentation) {
	s.inst = inst
}

// Config returns the effective server configuration
func (s *Server) Config() *ServerConfig {
	return s.config
}

// generateToken returns a fresh opaque token value with 256 bits of entropy,
// base64url encoded.
func generateToken() string {
	return oauth2.GenerateVerifier()
}

// RegisterClient adds a client to the registry. This is an administrative
// operation; it is not exposed on any OAuth endpoint.
func (s *Server) RegisterClient(ctx context.Context, params RegisterClientParams) (*storage.Client, error) {
	if params.ClientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}
	if len(params.RedirectURIs) == 0 {
		return nil, fmt.Errorf("at least one redirect URI is required")
	}
	for _, u := range params.RedirectURIs {
		parsed, err := url.Parse(u)
		if err != nil || !parsed.IsAbs() {
			return nil, fmt.Errorf("invalid redirect URI %q", u)
		}
	}
	if params.Confidential && params.Secret == "" {
		return nil, fmt.Errorf("confidential clients require a secret")
	}

	client := &storage.Client{
		ClientID:     params.ClientID,
		Name:         params.Name,
		RedirectURIs: params.RedirectURIs,
		GrantTypes:   params.GrantTypes,
		Confidential: params.Confidential,
		CreatedAt:    time.Now(),
	}
	if len(client.GrantTypes) == 0 {
		client.GrantTypes = []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken}
	}
	if params.Confidential {
		hash, err := bcrypt.GenerateFromPassword([]byte(params.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing client secret: %w", err)
		}
		client.SecretHash = string(hash)
	}

	if err := s.store.SaveClient(ctx, client); err != nil {
		return nil, fmt.Errorf("saving client: %w", err)
	}

	s.logger.Info("Client registered", "client_id", client.ClientID, "confidential", client.Confidential)
	return client, nil
}

// Authorize validates an authorization request and, when an authenticated
// user is present, mints a single-use authorization code. Validation failures
// never produce a redirect; the caller must render the error directly.
// A valid request without a user session returns ErrLoginRequired.
func (s *Server) Authorize(ctx context.Context, req AuthorizeRequest) (*AuthorizeResult, error) {
	if req.ResponseType != ResponseTypeCode {
		return nil, ErrInvalidRequest(fmt.Sprintf("response_type %q is not supported, use %q", req.ResponseType, ResponseTypeCode))
	}
	if req.ClientID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}

	client, err := s.store.GetClient(ctx, req.ClientID)
	if err != nil {
		s.logAuthFailure("", req.ClientID, req.ClientIP, "unknown_client")
		return nil, ErrInvalidRequest("invalid client_id or redirect_uri")
	}

	if req.RedirectURI == "" {
		return nil, ErrInvalidRequest("redirect_uri is required")
	}
	if !client.AllowsRedirectURI(req.RedirectURI) {
		s.logAuthFailure("", req.ClientID, req.ClientIP, "redirect_uri_mismatch")
		if s.auditor != nil {
			s.auditor.LogEvent(security.Event{
				Type:      security.EventInvalidRedirect,
				ClientID:  req.ClientID,
				IPAddress: req.ClientIP,
			})
		}
		return nil, ErrInvalidRequest("invalid client_id or redirect_uri")
	}

	if req.State == "" {
		return nil, ErrInvalidRequest("state is required")
	}
	if !client.AllowsGrantType(GrantTypeAuthorizationCode) {
		return nil, ErrInvalidRequest("client is not authorized for the authorization code grant")
	}
	if !s.config.scopeAllowed(req.Scope) {
		return nil, ErrInvalidRequest("requested scope is not supported")
	}

	if req.CodeChallenge != "" {
		if err := ValidateCodeChallenge(req.CodeChallenge, req.CodeChallengeMethod); err != nil {
			return nil, ErrInvalidRequest(err.Error())
		}
	} else if !client.Confidential && !s.config.DisablePKCEEnforcement {
		return nil, ErrInvalidRequest("code_challenge is required for public clients")
	}

	if req.UserID == "" {
		return nil, ErrLoginRequired
	}

	now := time.Now()
	code := &storage.AuthorizationCode{
		Code:                generateToken(),
		ClientID:            client.ClientID,
		UserID:              req.UserID,
		RedirectURI:         req.RedirectURI,
		Scope:               req.Scope,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: req.CodeChallengeMethod,
		FamilyID:            uuid.NewString(),
		CreatedAt:           now,
		ExpiresAt:           now.Add(time.Duration(s.config.AuthorizationCodeTTL) * time.Second),
	}
	if err := s.store.SaveCode(ctx, code); err != nil {
		s.logger.Error("Failed to save authorization code", "client_id", client.ClientID, "error", err)
		return nil, ErrServerError("failed to issue authorization code")
	}

	if s.auditor != nil {
		s.auditor.LogCodeIssued(req.UserID, client.ClientID, req.ClientIP, req.Scope)
	}
	if s.inst != nil {
		s.inst.Metrics().RecordCodeIssued(ctx, client.ClientID)
	}
	s.logger.Info("Authorization code issued", "client_id", client.ClientID)

	return &AuthorizeResult{
		Code:        code.Code,
		State:       req.State,
		RedirectURI: req.RedirectURI,
	}, nil
}

// Token dispatches a token endpoint request to the matching grant handler
func (s *Server) Token(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	switch req.GrantType {
	case GrantTypeAuthorizationCode:
		return s.exchangeCode(ctx, req)
	case GrantTypeRefreshToken:
		return s.refreshToken(ctx, req)
	case "":
		return nil, ErrInvalidRequest("grant_type is required")
	default:
		return nil, ErrUnsupportedGrantType(fmt.Sprintf("grant type %q is not supported", req.GrantType))
	}
}

// authenticateClient resolves and authenticates the requesting client.
// Unknown clients burn a bcrypt comparison via the store so the timing
// matches a failed secret check.
func (s *Server) authenticateClient(ctx context.Context, clientID, secret, clientIP string) (*storage.Client, *OAuthError) {
	if clientID == "" {
		return nil, ErrInvalidRequest("client_id is required")
	}

	client, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		_ = s.store.ValidateClientSecret(ctx, clientID, secret)
		s.logAuthFailure("", clientID, clientIP, "unknown_client")
		return nil, ErrInvalidClient("client authentication failed")
	}

	if client.Confidential {
		if secret == "" {
			s.logAuthFailure("", clientID, clientIP, "missing_client_secret")
			return nil, ErrInvalidClient("client authentication required")
		}
		if err := s.store.ValidateClientSecret(ctx, clientID, secret); err != nil {
			s.logAuthFailure("", clientID, clientIP, "invalid_client_secret")
			return nil, ErrInvalidClient("client authentication failed")
		}
	}

	return client, nil
}

// exchangeCode implements the authorization_code grant. All validation runs
// against the stored code before it is consumed, so a failed request leaves
// the code redeemable; the atomic consume still guarantees single use under
// concurrency.
func (s *Server) exchangeCode(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	client, oerr := s.authenticateClient(ctx, req.ClientID, req.ClientSecret, req.ClientIP)
	if oerr != nil {
		return nil, oerr
	}
	if req.Code == "" {
		return nil, ErrInvalidRequest("code is required")
	}
	if req.RedirectURI == "" {
		return nil, ErrInvalidRequest("redirect_uri is required")
	}

	code, err := s.store.GetCode(ctx, req.Code)
	if err != nil {
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	}
	if code.ClientID != client.ClientID {
		s.logAuthFailure(code.UserID, client.ClientID, req.ClientIP, "code_client_mismatch")
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	}
	if code.RedirectURI != req.RedirectURI {
		s.logAuthFailure(code.UserID, client.ClientID, req.ClientIP, "redirect_uri_mismatch")
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	}

	if code.CodeChallenge != "" {
		if err := VerifyPKCE(code.CodeChallenge, code.CodeChallengeMethod, req.CodeVerifier); err != nil {
			if s.auditor != nil {
				s.auditor.LogEvent(security.Event{
					Type:      security.EventPKCEValidationFailed,
					UserID:    code.UserID,
					ClientID:  client.ClientID,
					IPAddress: req.ClientIP,
				})
			}
			if s.inst != nil {
				s.inst.Metrics().RecordPKCEValidationFailed(ctx, code.CodeChallengeMethod)
			}
			return nil, ErrInvalidGrant("authorization code is invalid or expired")
		}
	} else if req.CodeVerifier != "" {
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	}

	consumed, err := s.store.ConsumeCode(ctx, req.Code)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrCodeConsumed):
		s.handleCodeReplay(ctx, consumed, req.ClientIP)
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	case errors.Is(err, storage.ErrCodeNotFound), errors.Is(err, storage.ErrTokenExpired):
		return nil, ErrInvalidGrant("authorization code is invalid or expired")
	default:
		s.logger.Error("Failed to consume authorization code", "client_id", client.ClientID, "error", err)
		return nil, ErrServerError("failed to redeem authorization code")
	}

	resp, err := s.issueTokens(ctx, client.ClientID, consumed.UserID, consumed.Scope, consumed.FamilyID, "")
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.LogTokenIssued(consumed.UserID, client.ClientID, req.ClientIP, consumed.Scope)
	}
	if s.inst != nil {
		s.inst.Metrics().RecordCodeExchange(ctx, client.ClientID, consumed.CodeChallengeMethod)
	}
	s.logger.Info("Authorization code exchanged", "client_id", client.ClientID)

	return resp, nil
}

// handleCodeReplay revokes every token minted from a replayed authorization
// code. The caller returns a plain invalid_grant so the response does not
// reveal that the replay was detected.
func (s *Server) handleCodeReplay(ctx context.Context, code *storage.AuthorizationCode, clientIP string) {
	if code == nil {
		return
	}

	s.logger.Warn("Authorization code replay detected",
		"client_id", code.ClientID,
		"family_id", code.FamilyID)

	s.revokeFamily(ctx, code.FamilyID, "code_replay")

	if s.auditor != nil {
		s.auditor.LogCodeReplayDetected(code.UserID, code.ClientID, clientIP)
	}
	if s.inst != nil {
		s.inst.Metrics().RecordCodeReuseDetected(ctx)
	}
}

// refreshToken implements the refresh_token grant with rotation. The
// presented token is validated before it is consumed, so presenting someone
// else's token does not burn it; reuse of an already rotated token revokes
// the whole family.
func (s *Server) refreshToken(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	client, oerr := s.authenticateClient(ctx, req.ClientID, req.ClientSecret, req.ClientIP)
	if oerr != nil {
		return nil, oerr
	}
	if req.RefreshToken == "" {
		return nil, ErrInvalidRequest("refresh_token is required")
	}
	if !client.AllowsGrantType(GrantTypeRefreshToken) {
		return nil, ErrInvalidGrant("client is not authorized for the refresh token grant")
	}

	rec, err := s.store.GetRefreshToken(ctx, req.RefreshToken)
	if err != nil {
		return nil, ErrInvalidGrant("refresh token is invalid or expired")
	}
	if rec.ClientID != client.ClientID {
		s.logAuthFailure(rec.UserID, client.ClientID, req.ClientIP, "refresh_token_client_mismatch")
		return nil, ErrInvalidGrant("refresh token is invalid or expired")
	}
	if rec.Revoked {
		s.handleRefreshReuse(ctx, rec, req.ClientIP)
		return nil, ErrInvalidGrant("refresh token is invalid or expired")
	}
	if rec.Expires() && security.IsTokenExpiredWithGracePeriod(rec.ExpiresAt, s.clockSkewGrace()) {
		return nil, ErrInvalidGrant("refresh token is invalid or expired")
	}
	if !scopeWithin(req.Scope, rec.Scope) {
		if s.auditor != nil {
			s.auditor.LogEvent(security.Event{
				Type:      security.EventScopeEscalationAttempt,
				UserID:    rec.UserID,
				ClientID:  client.ClientID,
				IPAddress: req.ClientIP,
				Details:   map[string]any{"requested_scope": req.Scope},
			})
		}
		return nil, ErrInvalidGrant("requested scope exceeds the original grant")
	}

	consumed, err := s.store.ConsumeRefreshToken(ctx, req.RefreshToken)
	switch {
	case err == nil:
	case errors.Is(err, storage.ErrTokenRevoked):
		s.handleRefreshReuse(ctx, consumed, req.ClientIP)
		return nil, ErrInvalidGrant("refresh token is invalid or expired")
	case errors.Is(err, storage.ErrTokenNotFound), errors.Is(err, storage.ErrTokenExpired):
		return nil, ErrInvalidGrant("refresh token is invalid or expired")
	default:
		s.logger.Error("Failed to consume refresh token", "client_id", client.ClientID, "error", err)
		return nil, ErrServerError("failed to rotate refresh token")
	}

	scope := consumed.Scope
	if req.Scope != "" {
		scope = req.Scope
	}

	resp, err := s.issueTokens(ctx, client.ClientID, consumed.UserID, scope, consumed.FamilyID, consumed.Token)
	if err != nil {
		return nil, err
	}

	if s.auditor != nil {
		s.auditor.LogTokenRefreshed(consumed.UserID, client.ClientID, req.ClientIP)
	}
	if s.inst != nil {
		s.inst.Metrics().RecordTokenRefresh(ctx, client.ClientID)
	}
	s.logger.Info("Refresh token rotated", "client_id", client.ClientID)

	return resp, nil
}

// handleRefreshReuse revokes the whole token family after a rotated or
// revoked refresh token is presented again.
func (s *Server) handleRefreshReuse(ctx context.Context, rec *storage.RefreshToken, clientIP string) {
	if rec == nil {
		return
	}

	s.logger.Warn("Refresh token reuse detected",
		"client_id", rec.ClientID,
		"family_id", rec.FamilyID)

	s.revokeFamily(ctx, rec.FamilyID, "refresh_reuse")

	if s.auditor != nil {
		s.auditor.LogRefreshReuseDetected(rec.UserID, rec.ClientID, clientIP, rec.FamilyID)
	}
	if s.inst != nil {
		s.inst.Metrics().RecordTokenReuseDetected(ctx)
	}
}

// revokeFamily revokes every access and refresh token descending from one
// authorization grant.
func (s *Server) revokeFamily(ctx context.Context, familyID, reason string) {
	if familyID == "" {
		return
	}

	accessRevoked, err := s.store.RevokeAccessTokenFamily(ctx, familyID)
	if err != nil {
		s.logger.Error("Failed to revoke access token family", "family_id", familyID, "error", err)
	}
	refreshRevoked, err := s.store.RevokeRefreshTokenFamily(ctx, familyID)
	if err != nil {
		s.logger.Error("Failed to revoke refresh token family", "family_id", familyID, "error", err)
	}

	s.logger.Info("Token family revoked",
		"family_id", familyID,
		"reason", reason,
		"access_tokens", accessRevoked,
		"refresh_tokens", refreshRevoked)

	if s.auditor != nil {
		s.auditor.LogEvent(security.Event{
			Type:    security.EventTokenFamilyRevoked,
			Details: map[string]any{"family_id": familyID, "reason": reason},
		})
	}
	if s.inst != nil {
		s.inst.Metrics().RecordFamilyRevoked(ctx, reason)
	}
}

// issueTokens mints a refresh token and a bound access token sharing
// familyID. rotatedFrom links a rotated refresh token to its predecessor.
func (s *Server) issueTokens(ctx context.Context, clientID, userID, scope, familyID, rotatedFrom string) (*TokenResponse, error) {
	now := time.Now()

	refresh := &storage.RefreshToken{
		Token:         generateToken(),
		ClientID:      clientID,
		UserID:        userID,
		Scope:         scope,
		FamilyID:      familyID,
		RotatedFromID: rotatedFrom,
		IssuedAt:      now,
	}
	if s.config.RefreshTokenTTL > 0 {
		refresh.ExpiresAt = now.Add(time.Duration(s.config.RefreshTokenTTL) * time.Second)
	}
	if err := s.store.SaveRefreshToken(ctx, refresh); err != nil {
		s.logger.Error("Failed to save refresh token", "client_id", clientID, "error", err)
		return nil, ErrServerError("failed to issue tokens")
	}

	access := &storage.AccessToken{
		Token:          generateToken(),
		ClientID:       clientID,
		UserID:         userID,
		Scope:          scope,
		FamilyID:       familyID,
		RefreshTokenID: refresh.Token,
		IssuedAt:       now,
		ExpiresAt:      now.Add(time.Duration(s.config.AccessTokenTTL) * time.Second),
	}
	if err := s.store.SaveAccessToken(ctx, access); err != nil {
		s.logger.Error("Failed to save access token", "client_id", clientID, "error", err)
		return nil, ErrServerError("failed to issue tokens")
	}

	return &TokenResponse{
		AccessToken:  access.Token,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    int64(time.Until(access.ExpiresAt).Seconds()),
		RefreshToken: refresh.Token,
		Scope:        scope,
	}, nil
}

// Revoke implements RFC 7009 revocation. Revoking an access token invalidates
// only that token; revoking a refresh token invalidates its whole family.
// Unknown tokens are not an error, so callers cannot probe for valid values.
func (s *Server) Revoke(ctx context.Context, req RevokeRequest) error {
	if req.Token == "" {
		return ErrInvalidRequest("token is required")
	}

	if req.TokenTypeHint != TokenTypeHintRefreshToken {
		if rec, err := s.store.GetAccessToken(ctx, req.Token); err == nil {
			return s.revokeAccessToken(ctx, rec, req.ClientIP)
		}
		if rec, err := s.store.GetRefreshToken(ctx, req.Token); err == nil {
			return s.revokeRefreshToken(ctx, rec, req.ClientIP)
		}
	} else {
		if rec, err := s.store.GetRefreshToken(ctx, req.Token); err == nil {
			return s.revokeRefreshToken(ctx, rec, req.ClientIP)
		}
		if rec, err := s.store.GetAccessToken(ctx, req.Token); err == nil {
			return s.revokeAccessToken(ctx, rec, req.ClientIP)
		}
	}

	s.logger.Debug("Revocation requested for unknown token")
	return nil
}

func (s *Server) revokeAccessToken(ctx context.Context, rec *storage.AccessToken, clientIP string) error {
	if err := s.store.RevokeAccessToken(ctx, rec.Token); err != nil {
		s.logger.Error("Failed to revoke access token", "client_id", rec.ClientID, "error", err)
		return err
	}
	if s.auditor != nil {
		s.auditor.LogTokenRevoked(rec.UserID, rec.ClientID, clientIP, TokenTypeHintAccessToken)
	}
	if s.inst != nil {
		s.inst.Metrics().RecordTokenRevocation(ctx, rec.ClientID, TokenTypeHintAccessToken)
	}
	return nil
}

func (s *Server) revokeRefreshToken(ctx context.Context, rec *storage.RefreshToken, clientIP string) error {
	s.revokeFamily(ctx, rec.FamilyID, "revocation_request")
	if s.auditor != nil {
		s.auditor.LogTokenRevoked(rec.UserID, rec.ClientID, clientIP, TokenTypeHintRefreshToken)
	}
	if s.inst != nil {
		s.inst.Metrics().RecordTokenRevocation(ctx, rec.ClientID, TokenTypeHintRefreshToken)
	}
	return nil
}

// Introspect implements RFC 7662 introspection. Any token that cannot be
// resolved to a live grant reports active=false without detail, including on
// storage errors.
func (s *Server) Introspect(ctx context.Context, token, tokenTypeHint string) *IntrospectionResponse {
	resp := s.introspect(ctx, token, tokenTypeHint)
	if s.inst != nil {
		s.inst.Metrics().RecordTokenIntrospection(ctx, resp.Active)
	}
	return resp
}

func (s *Server) introspect(ctx context.Context, token, tokenTypeHint string) *IntrospectionResponse {
	if token == "" {
		return &IntrospectionResponse{Active: false}
	}

	if tokenTypeHint != TokenTypeHintRefreshToken {
		if rec, err := s.store.GetAccessToken(ctx, token); err == nil {
			return s.introspectAccessToken(rec)
		}
		if rec, err := s.store.GetRefreshToken(ctx, token); err == nil {
			return s.introspectRefreshToken(rec)
		}
	} else {
		if rec, err := s.store.GetRefreshToken(ctx, token); err == nil {
			return s.introspectRefreshToken(rec)
		}
		if rec, err := s.store.GetAccessToken(ctx, token); err == nil {
			return s.introspectAccessToken(rec)
		}
	}

	return &IntrospectionResponse{Active: false}
}

func (s *Server) introspectAccessToken(rec *storage.AccessToken) *IntrospectionResponse {
	if rec.Revoked || security.IsTokenExpiredWithGracePeriod(rec.ExpiresAt, s.clockSkewGrace()) {
		return &IntrospectionResponse{Active: false}
	}
	return &IntrospectionResponse{
		Active:    true,
		ClientID:  rec.ClientID,
		Scope:     rec.Scope,
		Sub:       rec.UserID,
		Exp:       rec.ExpiresAt.Unix(),
		TokenType: tokenTypeBearer,
	}
}

func (s *Server) introspectRefreshToken(rec *storage.RefreshToken) *IntrospectionResponse {
	if rec.Revoked {
		return &IntrospectionResponse{Active: false}
	}
	if rec.Expires() && security.IsTokenExpiredWithGracePeriod(rec.ExpiresAt, s.clockSkewGrace()) {
		return &IntrospectionResponse{Active: false}
	}
	resp := &IntrospectionResponse{
		Active:   true,
		ClientID: rec.ClientID,
		Scope:    rec.Scope,
		Sub:      rec.UserID,
	}
	if rec.Expires() {
		resp.Exp = rec.ExpiresAt.Unix()
	}
	return resp
}

func (s *Server) clockSkewGrace() time.Duration {
	return time.Duration(s.config.ClockSkewGracePeriod) * time.Second
}

// logAuthFailure logs authentication failures with optional auditing
func (s *Server) logAuthFailure(userID, clientID, clientIP, reason string) {
	s.logger.Warn("Authentication failure", "client_id", clientID, "reason", reason)
	if s.auditor != nil {
		s.auditor.LogAuthFailure(userID, clientID, clientIP, reason)
	}
}
