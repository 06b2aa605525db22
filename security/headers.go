package security

import (
	"net/http"
	"net/url"
)

// SetSecurityHeaders applies the response headers every OAuth endpoint
// sends: framing and content-type protections, a deny-all CSP, and
// no-store caching. HSTS is added only when the issuer is served over
// HTTPS, so plain-HTTP development setups are not pinned.
func SetSecurityHeaders(w http.ResponseWriter, issuerURL string) {
	h := w.Header()

	h.Set("X-Frame-Options", "DENY")
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-XSS-Protection", "1; mode=block")

	// The endpoints serve JSON and redirects only, so nothing needs to load.
	h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
	h.Set("Referrer-Policy", "no-referrer")

	if u, err := url.Parse(issuerURL); err == nil && u.Scheme == "https" {
		h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
	}

	// Token and introspection responses must never be cached (RFC 6749 5.1).
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	h.Set("Pragma", "no-cache")
}
