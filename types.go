package oauthcore

// Grant types supported by the token endpoint
const (
	GrantTypeAuthorizationCode = "authorization_code"
	GrantTypeRefreshToken      = "refresh_token"
)

// ResponseTypeCode is the only supported response type
const ResponseTypeCode = "code"

// Token type hints accepted by the revocation and introspection endpoints (RFC 7009 section 2.1)
const (
	TokenTypeHintAccessToken  = "access_token"
	TokenTypeHintRefreshToken = "refresh_token"
)

const tokenTypeBearer = "Bearer"

// AuthorizeRequest carries the parameters of an authorization endpoint request.
// UserID identifies the authenticated resource owner and is resolved by the
// session layer before the request reaches the server.
type AuthorizeRequest struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	State               string
	Scope               string
	CodeChallenge       string
	CodeChallengeMethod string
	UserID              string
	ClientIP            string
}

// AuthorizeResult is the successful outcome of an authorization request.
// The caller redirects the user agent to RedirectURI carrying Code and State.
type AuthorizeResult struct {
	Code        string
	State       string
	RedirectURI string
}

// TokenRequest carries the parameters of a token endpoint request.
// ClientSecret is empty for public clients.
type TokenRequest struct {
	GrantType    string
	ClientID     string
	ClientSecret string

	// authorization_code grant
	Code         string
	RedirectURI  string
	CodeVerifier string

	// refresh_token grant
	RefreshToken string
	Scope        string

	ClientIP string
}

// TokenResponse is the JSON body returned by the token endpoint
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// RevokeRequest carries the parameters of a revocation endpoint request
type RevokeRequest struct {
	Token         string
	TokenTypeHint string
	ClientID      string
	ClientIP      string
}

// IntrospectionResponse is the JSON body returned by the introspection
// endpoint (RFC 7662). Claims other than Active are only present for
// active tokens.
type IntrospectionResponse struct {
	Active    bool   `json:"active"`
	ClientID  string `json:"client_id,omitempty"`
	Scope     string `json:"scope,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	TokenType string `json:"token_type,omitempty"`
}

// RegisterClientParams describes a client to be added to the registry.
// Registration is an administrative operation, not an OAuth endpoint.
type RegisterClientParams struct {
	ClientID     string
	Secret       string
	Name         string
	RedirectURIs []string
	GrantTypes   []string
	Confidential bool
}
