// Package sessions defines how the authorization server learns who the
// resource owner is.
//
// The core never authenticates end users itself. A deployment plugs in a
// Provider backed by whatever it already has: a cookie-based web session,
// an SSO gateway, or a reverse proxy header. The authorization endpoint
// asks the Provider for the current user; when no session exists, the user
// is redirected to the Provider's login page and comes back to retry the
// authorization request.
package sessions

import "net/http"

// Provider resolves the authenticated resource owner for a request.
type Provider interface {
	// UserID returns the identifier of the authenticated user, or ok=false
	// when the request carries no valid session.
	UserID(r *http.Request) (userID string, ok bool)

	// LoginURL returns the URL to send an unauthenticated user to.
	// returnTo is the absolute URL of the interrupted authorization
	// request; the login flow should redirect back to it on success.
	LoginURL(returnTo string) string
}
