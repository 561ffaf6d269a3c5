package idverifier

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// InsecureVerifier parses ID tokens WITHOUT signature verification. This mode
// is ONLY for development and testing. It requires the ALLOW_INSECURE_ID_TOKENS=true
// environment variable to be set as a safety check.
//
// WARNING: Never use this in production - it accepts any token regardless of signature.
type InsecureVerifier struct {
	warnedOnce sync.Once
}

// NewInsecureVerifier creates a new insecure ID token verifier.
// Returns an error if the ALLOW_INSECURE_ID_TOKENS environment variable is not
// set to "true".
func NewInsecureVerifier() (*InsecureVerifier, error) {
	// Require explicit environment variable as safety check
	if os.Getenv("ALLOW_INSECURE_ID_TOKENS") != "true" {
		return nil, fmt.Errorf("insecure ID token mode requires ALLOW_INSECURE_ID_TOKENS=true environment variable")
	}

	log.Warn("======================================================================")
	log.Warn("INSECURE ID TOKEN MODE ENABLED - tokens will NOT be validated!")
	log.Warn("This mode should ONLY be used in development/testing environments")
	log.Warn("DO NOT USE IN PRODUCTION")
	log.Warn("======================================================================")

	return &InsecureVerifier{}, nil
}

// Verify decodes the token payload without signature verification.
func (v *InsecureVerifier) Verify(ctx context.Context, assertion string) (*Identity, error) {
	// Log warning on first use (per-verifier instance)
	v.warnedOnce.Do(func() {
		log.Warn("INSECURE MODE: Parsing ID token without signature verification")
	})

	segments := strings.Split(assertion, ".")
	if len(segments) != 3 {
		return nil, fmt.Errorf("token must have three segments, got %d", len(segments))
	}

	payload, err := base64.RawURLEncoding.DecodeString(segments[1])
	if err != nil {
		return nil, fmt.Errorf("failed to decode token payload: %w", err)
	}

	var claims map[string]interface{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("failed to parse token claims: %w", err)
	}

	log.WithFields(log.Fields{
		"mode":   "insecure",
		"claims": claims,
	}).Debug("ID token claims extracted (UNVERIFIED)")

	return identityFromClaims(claims), nil
}

// Mode returns the verification mode name.
func (v *InsecureVerifier) Mode() string {
	return "insecure"
}
