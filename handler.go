package oauthcore

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/helixauth/oauthcore/security"
)

// Endpoint paths registered by RegisterRoutes
const (
	AuthorizePath  = "/oauth/authorize"
	TokenPath      = "/oauth/token"
	RevokePath     = "/oauth/revoke"
	IntrospectPath = "/oauth/introspect"
	MetadataPath   = "/.well-known/oauth-authorization-server"
)

// Handler adapts Server to HTTP
type Handler struct {
	server *Server
	logger *slog.Logger
}

// NewHandler creates an HTTP handler for the given server
func NewHandler(server *Server, logger *slog.Logger) (*Handler, error) {
	if server == nil {
		return nil, errors.New("server is required")
	}
	if logger == nil {
		logger = server.logger
	}
	return &Handler{server: server, logger: logger}, nil
}

// RegisterRoutes registers all OAuth endpoints on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc(AuthorizePath, h.ServeAuthorize)
	mux.HandleFunc(TokenPath, h.ServeToken)
	mux.HandleFunc(RevokePath, h.ServeRevoke)
	mux.HandleFunc(IntrospectPath, h.ServeIntrospect)
	mux.HandleFunc(MetadataPath, h.ServeMetadata)
}

// ServeAuthorize handles the authorization endpoint. Validation failures are
// rendered directly as JSON; the user agent is only redirected to the client
// once the whole request has been validated against the registry.
func (h *Handler) ServeAuthorize(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := security.GetClientIP(r, h.server.config.TrustProxy, h.server.config.TrustedProxyCount)
	if h.checkIPRateLimit(w, r, clientIP, "authorize") {
		h.recordHTTPMetrics("authorize", http.MethodGet, http.StatusTooManyRequests, startTime)
		return
	}

	q := r.URL.Query()
	userID, _ := h.server.sessions.UserID(r)

	result, err := h.server.Authorize(r.Context(), AuthorizeRequest{
		ResponseType:        q.Get("response_type"),
		ClientID:            q.Get("client_id"),
		RedirectURI:         q.Get("redirect_uri"),
		State:               q.Get("state"),
		Scope:               q.Get("scope"),
		CodeChallenge:       q.Get("code_challenge"),
		CodeChallengeMethod: q.Get("code_challenge_method"),
		UserID:              userID,
		ClientIP:            clientIP,
	})
	if errors.Is(err, ErrLoginRequired) {
		h.recordHTTPMetrics("authorize", http.MethodGet, http.StatusFound, startTime)
		http.Redirect(w, r, h.server.sessions.LoginURL(r.URL.RequestURI()), http.StatusFound)
		return
	}
	if err != nil {
		status := h.writeOAuthError(w, err)
		h.recordHTTPMetrics("authorize", http.MethodGet, status, startTime)
		return
	}

	redirectURL, err := buildCodeRedirect(result)
	if err != nil {
		h.logger.Error("Failed to build redirect URL", "error", err)
		h.writeError(w, ErrorCodeServerError, "Internal server error", http.StatusInternalServerError)
		h.recordHTTPMetrics("authorize", http.MethodGet, http.StatusInternalServerError, startTime)
		return
	}

	h.recordHTTPMetrics("authorize", http.MethodGet, http.StatusFound, startTime)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// buildCodeRedirect appends code and state to the validated redirect URI,
// preserving any query parameters the client registered.
func buildCodeRedirect(result *AuthorizeResult) (string, error) {
	u, err := url.Parse(result.RedirectURI)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("code", result.Code)
	q.Set("state", result.State)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ServeToken handles the token endpoint for the authorization_code and
// refresh_token grants. Client credentials are accepted via HTTP Basic auth
// or the client_secret_post parameters.
func (h *Handler) ServeToken(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := security.GetClientIP(r, h.server.config.TrustProxy, h.server.config.TrustedProxyCount)
	if h.checkIPRateLimit(w, r, clientIP, "token") {
		h.recordHTTPMetrics("token", http.MethodPost, http.StatusTooManyRequests, startTime)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, ErrorCodeInvalidRequest, "Failed to parse request", http.StatusBadRequest)
		h.recordHTTPMetrics("token", http.MethodPost, http.StatusBadRequest, startTime)
		return
	}

	clientID, clientSecret := h.clientCredentials(r)

	resp, err := h.server.Token(r.Context(), TokenRequest{
		GrantType:    r.FormValue("grant_type"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Code:         r.FormValue("code"),
		RedirectURI:  r.FormValue("redirect_uri"),
		CodeVerifier: r.FormValue("code_verifier"),
		RefreshToken: r.FormValue("refresh_token"),
		Scope:        r.FormValue("scope"),
		ClientIP:     clientIP,
	})
	if err != nil {
		status := h.writeOAuthError(w, err)
		h.recordHTTPMetrics("token", http.MethodPost, status, startTime)
		return
	}

	h.recordHTTPMetrics("token", http.MethodPost, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, resp)
}

// ServeRevoke handles the RFC 7009 revocation endpoint. Apart from a missing
// token parameter the endpoint always reports success, so callers cannot use
// it to probe for valid tokens.
func (h *Handler) ServeRevoke(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := security.GetClientIP(r, h.server.config.TrustProxy, h.server.config.TrustedProxyCount)
	if h.checkIPRateLimit(w, r, clientIP, "revoke") {
		h.recordHTTPMetrics("revoke", http.MethodPost, http.StatusTooManyRequests, startTime)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, ErrorCodeInvalidRequest, "Failed to parse request", http.StatusBadRequest)
		h.recordHTTPMetrics("revoke", http.MethodPost, http.StatusBadRequest, startTime)
		return
	}

	token := r.FormValue("token")
	if token == "" {
		h.writeError(w, ErrorCodeInvalidRequest, "token is required", http.StatusBadRequest)
		h.recordHTTPMetrics("revoke", http.MethodPost, http.StatusBadRequest, startTime)
		return
	}

	clientID, _ := h.clientCredentials(r)

	if err := h.server.Revoke(r.Context(), RevokeRequest{
		Token:         token,
		TokenTypeHint: r.FormValue("token_type_hint"),
		ClientID:      clientID,
		ClientIP:      clientIP,
	}); err != nil {
		// Per RFC 7009, report success even when revocation failed internally
		h.logger.Error("Failed to revoke token", "ip", clientIP, "error", err)
	}

	h.recordHTTPMetrics("revoke", http.MethodPost, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Token revoked"})
}

// ServeIntrospect handles the RFC 7662 introspection endpoint. Any token that
// cannot be resolved reports active=false with status 200.
func (h *Handler) ServeIntrospect(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	clientIP := security.GetClientIP(r, h.server.config.TrustProxy, h.server.config.TrustedProxyCount)
	if h.checkIPRateLimit(w, r, clientIP, "introspect") {
		h.recordHTTPMetrics("introspect", http.MethodPost, http.StatusTooManyRequests, startTime)
		return
	}

	if err := r.ParseForm(); err != nil {
		h.writeError(w, ErrorCodeInvalidRequest, "Failed to parse request", http.StatusBadRequest)
		h.recordHTTPMetrics("introspect", http.MethodPost, http.StatusBadRequest, startTime)
		return
	}

	// A missing token is reported as inactive rather than an error, so the
	// endpoint responds identically to every unresolvable input.
	resp := h.server.Introspect(r.Context(), r.FormValue("token"), r.FormValue("token_type_hint"))

	h.recordHTTPMetrics("introspect", http.MethodPost, http.StatusOK, startTime)
	h.writeJSON(w, http.StatusOK, resp)
}

// clientCredentials extracts client credentials from HTTP Basic auth, falling
// back to the client_id and client_secret form parameters.
func (h *Handler) clientCredentials(r *http.Request) (clientID, clientSecret string) {
	if id, secret, ok := r.BasicAuth(); ok && id != "" {
		return id, secret
	}
	return r.FormValue("client_id"), r.FormValue("client_secret")
}

// checkIPRateLimit checks if the client IP is rate limited. Returns true if limited.
func (h *Handler) checkIPRateLimit(w http.ResponseWriter, r *http.Request, clientIP, endpoint string) bool {
	if h.server.rateLimiter == nil || h.server.rateLimiter.Allow(clientIP) {
		return false
	}

	h.logger.Warn("Rate limit exceeded", "ip", clientIP, "endpoint", endpoint)
	if h.server.inst != nil {
		h.server.inst.Metrics().RecordRateLimitExceeded(r.Context(), endpoint)
	}
	if h.server.auditor != nil {
		h.server.auditor.LogRateLimitExceeded(clientIP, "")
	}
	w.Header().Set("Retry-After", "60")
	h.writeError(w, ErrorCodeRateLimitExceeded, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	security.SetSecurityHeaders(w, h.server.config.Issuer)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) writeError(w http.ResponseWriter, code, description string, status int) {
	security.SetSecurityHeaders(w, h.server.config.Issuer)

	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauth"`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":             code,
		"error_description": description,
	})
}

// writeOAuthError renders err as an OAuth error response and returns the
// HTTP status used. Unexpected errors are masked as a generic server_error.
func (h *Handler) writeOAuthError(w http.ResponseWriter, err error) int {
	var oerr *OAuthError
	if errors.As(err, &oerr) {
		h.writeError(w, oerr.Code, oerr.Description, oerr.Status)
		return oerr.Status
	}

	h.logger.Error("Unexpected error", "error", err)
	h.writeError(w, ErrorCodeServerError, "Internal server error", http.StatusInternalServerError)
	return http.StatusInternalServerError
}

// recordHTTPMetrics records HTTP request metrics if instrumentation is enabled
func (h *Handler) recordHTTPMetrics(endpoint, method string, status int, startTime time.Time) {
	if h.server.inst == nil {
		return
	}
	durationMs := float64(time.Since(startTime).Milliseconds())
	h.server.inst.Metrics().RecordHTTPRequest(context.Background(), method, endpoint, status, durationMs)
}
