// Package mock provides a sessions.Provider for tests and local development.
package mock

import (
	"net/http"
	"net/url"

	"github.com/helixauth/oauthcore/sessions"
)

// Provider is a sessions.Provider with a fixed user. When UserID is empty
// every request is treated as unauthenticated.
type Provider struct {
	// User is the user ID returned for every request.
	User string

	// Header, when set, overrides User with the value of this request
	// header. Useful for driving different users from one test server.
	Header string

	// LoginBase is the login page URL, default "/login".
	LoginBase string
}

var _ sessions.Provider = (*Provider)(nil)

// UserID returns the configured user.
func (p *Provider) UserID(r *http.Request) (string, bool) {
	if p.Header != "" {
		if v := r.Header.Get(p.Header); v != "" {
			return v, true
		}
	}
	if p.User == "" {
		return "", false
	}
	return p.User, true
}

// LoginURL returns the login page with the return URL attached.
func (p *Provider) LoginURL(returnTo string) string {
	base := p.LoginBase
	if base == "" {
		base = "/login"
	}
	return base + "?return_to=" + url.QueryEscape(returnTo)
}
