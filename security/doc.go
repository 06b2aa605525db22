// Package security provides the cross-cutting protections the
// authorization server leans on: audit logging with hashed user IDs,
// per-IP rate limiting, client IP extraction behind proxies, security
// response headers, request-ID propagation, and clock-skew-aware expiry
// checks.
//
// # Rate Limiting
//
// RateLimiter keys a token bucket per identifier, normally the client IP.
// Tracked identifiers are bounded: entries idle for 30 minutes are swept
// every 5 minutes, and past the cap (10,000 by default) the least
// recently used entry is evicted, so address-spraying traffic cannot grow
// the map without limit while repeat callers keep their buckets.
//
//	limiter := security.NewRateLimiter(10, 20, logger)
//	defer limiter.Stop()
//
//	if !limiter.Allow(clientIP) {
//	    // 429, Retry-After
//	}
//
// GetStats exposes entry and eviction counters; a rapidly climbing
// Evictions count usually means distributed abuse rather than a capacity
// problem.
//
// # Audit Logging
//
// Auditor emits structured security events. User identifiers are logged
// as truncated SHA-256 hashes so audit trails correlate without storing
// PII.
package security
