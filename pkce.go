package oauthcore

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// CodeChallengeMethodS256 is the only accepted PKCE transform (RFC 7636
// section 4.2). The insecure plain method is rejected.
const CodeChallengeMethodS256 = "S256"

const (
	minVerifierLength = 43
	maxVerifierLength = 128
)

// validPKCEChar reports whether c is in the unreserved character set of
// RFC 7636 section 4.1.
func validPKCEChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z':
		return true
	case c >= 'a' && c <= 'z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '.' || c == '_' || c == '~':
		return true
	}
	return false
}

// ValidateCodeChallenge checks the code_challenge and code_challenge_method
// parameters of an authorization request.
func ValidateCodeChallenge(challenge, method string) error {
	if method != CodeChallengeMethodS256 {
		return fmt.Errorf("unsupported code_challenge_method %q, only S256 is accepted", method)
	}
	if len(challenge) < minVerifierLength || len(challenge) > maxVerifierLength {
		return fmt.Errorf("code_challenge length must be between %d and %d characters", minVerifierLength, maxVerifierLength)
	}
	for i := 0; i < len(challenge); i++ {
		if !validPKCEChar(challenge[i]) {
			return fmt.Errorf("code_challenge contains invalid character at position %d", i)
		}
	}
	return nil
}

// ValidateCodeVerifier checks that verifier satisfies the syntax rules of
// RFC 7636 section 4.1.
func ValidateCodeVerifier(verifier string) error {
	if len(verifier) < minVerifierLength || len(verifier) > maxVerifierLength {
		return fmt.Errorf("code_verifier length must be between %d and %d characters", minVerifierLength, maxVerifierLength)
	}
	for i := 0; i < len(verifier); i++ {
		if !validPKCEChar(verifier[i]) {
			return fmt.Errorf("code_verifier contains invalid character at position %d", i)
		}
	}
	return nil
}

// VerifyPKCE checks verifier against the challenge recorded at authorization
// time. The comparison is constant time.
func VerifyPKCE(challenge, method, verifier string) error {
	if err := ValidateCodeVerifier(verifier); err != nil {
		return err
	}
	if method != CodeChallengeMethodS256 {
		return fmt.Errorf("unsupported code_challenge_method %q", method)
	}

	hash := sha256.Sum256([]byte(verifier))
	computed := base64.RawURLEncoding.EncodeToString(hash[:])

	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return fmt.Errorf("code_verifier does not match code_challenge")
	}
	return nil
}
