// Package oauthcore implements an OAuth 2.0 authorization server core:
// the authorization code grant with mandatory PKCE (S256), refresh token
// rotation with family-wide reuse detection, RFC 7009 token revocation and
// RFC 7662 token introspection.
//
// Server holds the protocol logic and is transport-agnostic. Handler adapts
// it to net/http and serves the RFC 8414 discovery document. Storage
// backends live under storage/ (in-memory and Valkey); user authentication
// is delegated to a sessions.Provider supplied by the embedding application.
package oauthcore
