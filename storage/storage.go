package storage

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by store implementations. Callers use errors.Is
// to map them onto protocol-level responses.
var (
	// ErrClientNotFound indicates the client ID is not registered.
	ErrClientNotFound = errors.New("client not found")

	// ErrInvalidClientSecret indicates the presented secret does not match
	// the stored credential.
	ErrInvalidClientSecret = errors.New("invalid client secret")

	// ErrCodeNotFound indicates the authorization code does not exist.
	ErrCodeNotFound = errors.New("authorization code not found")

	// ErrCodeConsumed indicates the authorization code was already redeemed.
	// Stores return the consumed record alongside this error so the caller
	// can revoke the token family issued from the first redemption.
	ErrCodeConsumed = errors.New("authorization code already consumed")

	// ErrTokenNotFound indicates the token does not exist.
	ErrTokenNotFound = errors.New("token not found")

	// ErrTokenExpired indicates the token exists but its lifetime has passed.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked indicates the token was revoked or already rotated.
	// Refresh token stores return the revoked record alongside this error so
	// the caller can detect reuse and revoke the whole family.
	ErrTokenRevoked = errors.New("token revoked")
)

// Client is a registered OAuth client application.
type Client struct {
	// ClientID is the unique client identifier.
	ClientID string `json:"client_id"`

	// SecretHash is the bcrypt hash of the client secret. Empty for public
	// clients. Plaintext secrets are never persisted.
	SecretHash string `json:"secret_hash,omitempty"`

	// Confidential is true for clients that can keep a secret and must
	// authenticate at the token endpoint.
	Confidential bool `json:"confidential"`

	// RedirectURIs is the exact-match allowlist of redirect URIs.
	RedirectURIs []string `json:"redirect_uris"`

	// GrantTypes lists the grant types the client may use, e.g.
	// "authorization_code" and "refresh_token".
	GrantTypes []string `json:"grant_types"`

	// Name is a human-readable client name for audit output.
	Name string `json:"name,omitempty"`

	// CreatedAt is when the client was registered.
	CreatedAt time.Time `json:"created_at"`
}

// AllowsRedirectURI reports whether uri exactly matches a registered
// redirect URI. No prefix, wildcard, or normalization matching.
func (c *Client) AllowsRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// AllowsGrantType reports whether the client may use the given grant type.
func (c *Client) AllowsGrantType(grantType string) bool {
	for _, g := range c.GrantTypes {
		if g == grantType {
			return true
		}
	}
	return false
}

// AuthorizationCode is a single-use credential minted by the authorization
// endpoint and redeemed at the token endpoint.
type AuthorizationCode struct {
	// Code is the opaque code value and storage key.
	Code string `json:"code"`

	// ClientID is the client the code was issued to.
	ClientID string `json:"client_id"`

	// UserID identifies the resource owner who approved the authorization.
	UserID string `json:"user_id"`

	// RedirectURI is the redirect URI used on the authorization request.
	// The token endpoint requires an exact repeat.
	RedirectURI string `json:"redirect_uri"`

	// Scope is the space-delimited granted scope.
	Scope string `json:"scope,omitempty"`

	// CodeChallenge is the PKCE challenge bound to the code.
	CodeChallenge string `json:"code_challenge,omitempty"`

	// CodeChallengeMethod is the PKCE method, "S256" when present.
	CodeChallengeMethod string `json:"code_challenge_method,omitempty"`

	// FamilyID links every token descended from this authorization. It is
	// assigned when the code is minted so that a replayed code can revoke
	// the tokens issued on first redemption.
	FamilyID string `json:"family_id"`

	// CreatedAt is when the code was minted.
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt is when the code stops being redeemable.
	ExpiresAt time.Time `json:"expires_at"`

	// Consumed marks the code as redeemed. Set atomically by ConsumeCode.
	Consumed bool `json:"consumed"`
}

// AccessToken is an opaque bearer token for resource access.
type AccessToken struct {
	// Token is the opaque token value and storage key.
	Token string `json:"token"`

	// ClientID is the client the token was issued to.
	ClientID string `json:"client_id"`

	// UserID identifies the resource owner.
	UserID string `json:"user_id"`

	// Scope is the space-delimited granted scope.
	Scope string `json:"scope,omitempty"`

	// FamilyID links the token to its refresh token family.
	FamilyID string `json:"family_id"`

	// RefreshTokenID is the refresh token issued alongside this access
	// token, if any.
	RefreshTokenID string `json:"refresh_token_id,omitempty"`

	// IssuedAt is when the token was minted.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is when the token stops being valid.
	ExpiresAt time.Time `json:"expires_at"`

	// Revoked marks the token as explicitly invalidated.
	Revoked bool `json:"revoked"`
}

// RefreshToken is a long-lived credential for obtaining fresh access tokens.
// Each refresh token is single-use: rotation revokes it and issues a
// successor in the same family.
type RefreshToken struct {
	// Token is the opaque token value and storage key.
	Token string `json:"token"`

	// ClientID is the client the token was issued to.
	ClientID string `json:"client_id"`

	// UserID identifies the resource owner.
	UserID string `json:"user_id"`

	// Scope is the space-delimited granted scope. Rotation may narrow it,
	// never widen it.
	Scope string `json:"scope,omitempty"`

	// FamilyID groups all tokens descended from one authorization grant.
	FamilyID string `json:"family_id"`

	// RotatedFromID is the predecessor token in the rotation chain, empty
	// for the first token of a family.
	RotatedFromID string `json:"rotated_from_id,omitempty"`

	// IssuedAt is when the token was minted.
	IssuedAt time.Time `json:"issued_at"`

	// ExpiresAt is when the token stops being valid. Zero means the token
	// does not expire.
	ExpiresAt time.Time `json:"expires_at,omitempty"`

	// Revoked marks the token as rotated or explicitly invalidated.
	Revoked bool `json:"revoked"`

	// RevokedAt is when Revoked was set.
	RevokedAt time.Time `json:"revoked_at,omitempty"`
}

// Expires reports whether the token carries an expiry at all.
func (t *RefreshToken) Expires() bool {
	return !t.ExpiresAt.IsZero()
}

// ClientStore manages registered OAuth clients.
type ClientStore interface {
	// GetClient returns the client with the given ID, or ErrClientNotFound.
	GetClient(ctx context.Context, clientID string) (*Client, error)

	// SaveClient stores or replaces a client registration.
	SaveClient(ctx context.Context, client *Client) error

	// ValidateClientSecret verifies a plaintext secret against the stored
	// hash. Returns ErrClientNotFound or ErrInvalidClientSecret on failure.
	//
	// SECURITY: implementations must take the same amount of time whether
	// or not the client exists, to prevent client ID enumeration.
	ValidateClientSecret(ctx context.Context, clientID, secret string) error
}

// CodeStore manages authorization codes.
type CodeStore interface {
	// SaveCode stores an authorization code.
	SaveCode(ctx context.Context, code *AuthorizationCode) error

	// GetCode returns the code record without consuming it. Returns
	// ErrCodeNotFound if absent and ErrTokenExpired if past expiry.
	GetCode(ctx context.Context, code string) (*AuthorizationCode, error)

	// ConsumeCode atomically marks the code consumed and returns it.
	// Returns ErrCodeNotFound if absent, ErrTokenExpired if past expiry,
	// and the previously consumed record with ErrCodeConsumed on replay.
	//
	// SECURITY: the consumed check and the mark must be a single atomic
	// step so that concurrent redemptions of the same code cannot both
	// succeed.
	ConsumeCode(ctx context.Context, code string) (*AuthorizationCode, error)

	// DeleteCode removes a code record. Deleting a missing code is not an
	// error.
	DeleteCode(ctx context.Context, code string) error
}

// AccessTokenStore manages opaque access tokens.
type AccessTokenStore interface {
	// SaveAccessToken stores an access token.
	SaveAccessToken(ctx context.Context, token *AccessToken) error

	// GetAccessToken returns the token record, revoked or not. Returns
	// ErrTokenNotFound if absent. Callers decide liveness from Revoked and
	// ExpiresAt.
	GetAccessToken(ctx context.Context, token string) (*AccessToken, error)

	// RevokeAccessToken marks the token revoked. Revoking a missing or
	// already revoked token is not an error.
	RevokeAccessToken(ctx context.Context, token string) error

	// RevokeAccessTokenFamily revokes every access token in a family and
	// returns how many were newly revoked.
	RevokeAccessTokenFamily(ctx context.Context, familyID string) (int, error)
}

// RefreshTokenStore manages refresh tokens and rotation families.
type RefreshTokenStore interface {
	// SaveRefreshToken stores a refresh token.
	SaveRefreshToken(ctx context.Context, token *RefreshToken) error

	// GetRefreshToken returns the token record, revoked or not. Returns
	// ErrTokenNotFound if absent.
	GetRefreshToken(ctx context.Context, token string) (*RefreshToken, error)

	// ConsumeRefreshToken atomically revokes the token for rotation and
	// returns it. Returns ErrTokenNotFound if absent, ErrTokenExpired if
	// past expiry, and the revoked record with ErrTokenRevoked on reuse.
	//
	// SECURITY: the revoked check and the mark must be a single atomic
	// step so that concurrent rotations of the same token cannot both
	// succeed.
	ConsumeRefreshToken(ctx context.Context, token string) (*RefreshToken, error)

	// RevokeRefreshToken marks the token revoked. Revoking a missing or
	// already revoked token is not an error.
	RevokeRefreshToken(ctx context.Context, token string) error

	// RevokeRefreshTokenFamily revokes every refresh token in a family and
	// returns how many were newly revoked.
	RevokeRefreshTokenFamily(ctx context.Context, familyID string) (int, error)
}

// Store combines all credential stores behind one interface.
type Store interface {
	ClientStore
	CodeStore
	AccessTokenStore
	RefreshTokenStore

	// Close releases any resources held by the store. The store must not
	// be used after Close returns.
	Close() error
}
