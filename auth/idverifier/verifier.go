// Package idverifier verifies Google-issued ID tokens and extracts the
// verified identity.
//
// The package supports two modes:
//   - Google: validate the token signature, expiry and issuer against
//     Google's published certificates
//   - Insecure: parse the token payload without validation
//     (development/testing only)
package idverifier

import "context"

// Identity is the claim set of a successfully verified ID token.
type Identity struct {
	Subject         string
	Email           string
	EmailVerified   bool
	Issuer          string
	Audience        string
	AuthorizedParty string
	Name            string
	Picture         string
}

// Verifier defines the interface for validating an ID token assertion.
// Different implementations support different verification modes.
type Verifier interface {
	// Verify validates the raw assertion and returns the extracted identity,
	// or an error if the token is malformed, expired or not signed by Google.
	Verify(ctx context.Context, assertion string) (*Identity, error)

	// Mode returns the name of the verification mode (for logging/debugging).
	Mode() string
}

// identityFromClaims builds an Identity from a raw claim map.
func identityFromClaims(claims map[string]interface{}) *Identity {
	str := func(key string) string {
		s, _ := claims[key].(string)
		return s
	}
	// The email_verified claim is a JSON bool in current tokens, but older
	// token formats carried it as the string "true".
	verified := false
	switch v := claims["email_verified"].(type) {
	case bool:
		verified = v
	case string:
		verified = v == "true"
	}
	return &Identity{
		Subject:         str("sub"),
		Email:           str("email"),
		EmailVerified:   verified,
		Issuer:          str("iss"),
		Audience:        str("aud"),
		AuthorizedParty: str("azp"),
		Name:            str("name"),
		Picture:         str("picture"),
	}
}
