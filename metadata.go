package oauthcore

import (
	"net/http"
	"strings"
)

// Metadata is the RFC 8414 authorization server metadata document
type Metadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	ScopesSupported                   []string `json:"scopes_supported,omitempty"`
}

// buildMetadata assembles the discovery document from the server configuration
func (h *Handler) buildMetadata() Metadata {
	issuer := strings.TrimSuffix(h.server.config.Issuer, "/")

	return Metadata{
		Issuer:                        issuer,
		AuthorizationEndpoint:         issuer + AuthorizePath,
		TokenEndpoint:                 issuer + TokenPath,
		RevocationEndpoint:            issuer + RevokePath,
		IntrospectionEndpoint:         issuer + IntrospectPath,
		ResponseTypesSupported:        []string{ResponseTypeCode},
		GrantTypesSupported:           []string{GrantTypeAuthorizationCode, GrantTypeRefreshToken},
		CodeChallengeMethodsSupported: []string{CodeChallengeMethodS256},
		TokenEndpointAuthMethodsSupported: []string{
			"client_secret_basic",
			"client_secret_post",
			"none",
		},
		ScopesSupported: h.server.config.SupportedScopes,
	}
}

// ServeMetadata handles the RFC 8414 discovery endpoint
func (h *Handler) ServeMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, h.buildMetadata())
}
