package oauthcore

import "strings"

// splitScope splits a space-delimited scope string into individual values,
// dropping empty entries.
func splitScope(scope string) []string {
	return strings.Fields(scope)
}

// scopeWithin reports whether every scope value in requested appears in
// granted. An empty requested scope is trivially within any grant.
func scopeWithin(requested, granted string) bool {
	if requested == "" {
		return true
	}
	have := make(map[string]bool)
	for _, s := range splitScope(granted) {
		have[s] = true
	}
	for _, s := range splitScope(requested) {
		if !have[s] {
			return false
		}
	}
	return true
}
