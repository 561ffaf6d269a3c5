package idverifier

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"google.golang.org/api/idtoken"
)

// GoogleVerifier validates ID tokens against Google's published certificates
// using the idtoken validator. The validator handles signature, expiry and
// issuer-format checks and caches Google's certificates between requests.
type GoogleVerifier struct{}

// NewGoogleVerifier creates a new Google ID token verifier.
func NewGoogleVerifier() *GoogleVerifier {
	return &GoogleVerifier{}
}

// Verify validates the assertion and extracts the identity. Audience
// membership is checked by the caller against its configured allowlist, so
// the validator is not given an expected audience here.
func (v *GoogleVerifier) Verify(ctx context.Context, assertion string) (*Identity, error) {
	payload, err := idtoken.Validate(ctx, assertion, "")
	if err != nil {
		return nil, fmt.Errorf("ID token validation failed: %w", err)
	}

	id := identityFromClaims(payload.Claims)
	// The issuer, audience and subject are first-class payload fields; the
	// claim map duplicates them but the payload values are authoritative.
	id.Issuer = payload.Issuer
	id.Audience = payload.Audience
	id.Subject = payload.Subject

	log.WithFields(log.Fields{
		"mode": "google",
	}).Debug("ID token verified against Google certificates")

	return id, nil
}

// Mode returns the verification mode name.
func (v *GoogleVerifier) Mode() string {
	return "google"
}
