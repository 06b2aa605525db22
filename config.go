package oauthcore

import "log/slog"

// ServerConfig holds OAuth server configuration
type ServerConfig struct {
	// Issuer is the server's issuer identifier (base URL)
	Issuer string

	// AuthorizationCodeTTL is how long authorization codes are valid
	// Clamped to 60..600 seconds
	AuthorizationCodeTTL int64 // seconds, default: 300 (5 minutes)

	// AccessTokenTTL is how long access tokens are valid
	AccessTokenTTL int64 // seconds, default: 1800 (30 minutes)

	// RefreshTokenTTL is how long refresh tokens are valid
	// Set to a negative value for refresh tokens that never expire
	RefreshTokenTTL int64 // seconds, default: 7776000 (90 days)

	// DisablePKCEEnforcement allows public clients to authorize without a
	// code_challenge
	// WARNING: Disabling enforcement significantly weakens security for
	// public clients; confidential clients may omit code_challenge either way
	// Default: false (PKCE required for public clients)
	DisablePKCEEnforcement bool // default: false

	// TrustProxy enables trusting X-Forwarded-For and X-Real-IP headers
	// WARNING: Only enable if behind a trusted reverse proxy (nginx, HAProxy, etc.)
	// When false, uses direct connection IP (secure by default)
	// Default: false
	TrustProxy bool // default: false

	// TrustedProxyCount is the number of trusted proxies in front of this server
	// Used with TrustProxy to correctly extract client IP from X-Forwarded-For
	// Default: 1
	TrustedProxyCount int // default: 1

	// ClockSkewGracePeriod is the grace period for token expiration checks (in seconds)
	// This prevents false expiration errors due to time synchronization issues
	// Default: 5 seconds
	ClockSkewGracePeriod int64 // seconds, default: 5

	// SupportedScopes lists the scopes that are allowed in authorization
	// requests. If empty, all scopes are allowed.
	SupportedScopes []string
}

// applySecureDefaults applies secure-by-default configuration values
func applySecureDefaults(config *ServerConfig, logger *slog.Logger) *ServerConfig {
	if config.AuthorizationCodeTTL == 0 {
		config.AuthorizationCodeTTL = 300 // 5 minutes
	}
	if config.AuthorizationCodeTTL < 60 {
		config.AuthorizationCodeTTL = 60
	}
	if config.AuthorizationCodeTTL > 600 {
		logger.Warn("Authorization code TTL too long, clamping to 600s",
			"configured", config.AuthorizationCodeTTL)
		config.AuthorizationCodeTTL = 600
	}
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = 1800 // 30 minutes
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = 7776000 // 90 days
	}
	if config.RefreshTokenTTL < 0 {
		config.RefreshTokenTTL = 0 // no expiry
	}
	if config.TrustedProxyCount == 0 {
		config.TrustedProxyCount = 1
	}
	if config.ClockSkewGracePeriod == 0 {
		config.ClockSkewGracePeriod = 5
	}

	if config.DisablePKCEEnforcement {
		logger.Warn("PKCE is not enforced for public clients",
			"recommendation", "leave DisablePKCEEnforcement unset for OAuth 2.1 compliance")
	}

	return config
}

// scopeAllowed reports whether every space-delimited scope value in scope
// appears in the configured SupportedScopes list.
func (c *ServerConfig) scopeAllowed(scope string) bool {
	if scope == "" || len(c.SupportedScopes) == 0 {
		return true
	}
	allowed := make(map[string]bool, len(c.SupportedScopes))
	for _, s := range c.SupportedScopes {
		allowed[s] = true
	}
	for _, s := range splitScope(scope) {
		if !allowed[s] {
			return false
		}
	}
	return true
}
