package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	v1 "github.com/hexword/verify/api/v1"
	"github.com/hexword/verify/metrics"
	"github.com/hexword/verify/static"
)

// Identity implements identity verification requests. The bearer assertion
// is validated by the configured verifier and the returned claims are checked
// against this deployment's audience allowlist before any identity is
// emitted.
func (c *Client) Identity(rw http.ResponseWriter, req *http.Request) {
	setHeaders(rw)

	// An empty allowlist fails closed before any verifier call.
	if len(c.audiences) == 0 {
		writeError(rw, v1.NewError("No OAuth client audience configured", http.StatusInternalServerError))
		metrics.RequestsTotal.WithLabelValues("identity", "no audience", http.StatusText(http.StatusInternalServerError)).Inc()
		return
	}

	assertion := assertionFromRequest(req)
	if assertion == "" {
		writeError(rw, v1.NewError("Missing idToken", http.StatusBadRequest))
		metrics.RequestsTotal.WithLabelValues("identity", "missing token", http.StatusText(http.StatusBadRequest)).Inc()
		return
	}

	id, err := c.verifier.Verify(req.Context(), assertion)
	if err != nil {
		// All verifier failures fold into "invalid token": malformed,
		// expired, bad signature, or the certificate fetch itself failed.
		writeError(rw, v1.NewError("Invalid ID token", http.StatusUnauthorized).WithDetails(err.Error()))
		metrics.RequestsTotal.WithLabelValues("identity", "invalid token", http.StatusText(http.StatusUnauthorized)).Inc()
		return
	}

	// The verifier already enforced Google's issuer policy and signature.
	// Re-check the returned issuer and audience against this deployment's
	// configuration in case the verifier accepts a superset.
	if !contains(static.Issuers, id.Issuer) {
		writeError(rw, v1.NewError("Unexpected token issuer", http.StatusUnauthorized).WithDetails(id.Issuer))
		metrics.RequestsTotal.WithLabelValues("identity", "issuer", http.StatusText(http.StatusUnauthorized)).Inc()
		return
	}
	if !contains(c.audiences, id.Audience) {
		detail := fmt.Sprintf("audience %q not in %v", id.Audience, c.audiences)
		writeError(rw, v1.NewError("Token audience mismatch", http.StatusUnauthorized).WithDetails(detail))
		metrics.RequestsTotal.WithLabelValues("identity", "audience", http.StatusText(http.StatusUnauthorized)).Inc()
		return
	}
	if id.Email != "" && !id.EmailVerified {
		writeError(rw, v1.NewError("Email not verified", http.StatusUnauthorized))
		metrics.RequestsTotal.WithLabelValues("identity", "email unverified", http.StatusText(http.StatusUnauthorized)).Inc()
		return
	}

	log.WithFields(log.Fields{
		"issuer":           id.Issuer,
		"audience":         id.Audience,
		"authorized_party": id.AuthorizedParty,
		"mode":             c.verifier.Mode(),
	}).Info("ID token verified")

	result := v1.IdentityResult{
		OK: true,
		GoogleUser: &v1.GoogleUser{
			UID:     id.Subject,
			Email:   id.Email,
			Name:    id.Name,
			Picture: id.Picture,
		},
	}

	// The verification outcome is already decided; minting is best effort.
	if c.minter != nil {
		bestEffort("mint custom token", func() error {
			token, err := c.minter.Mint(req.Context(), id.Subject)
			if err != nil {
				metrics.MintTotal.WithLabelValues("error").Inc()
				return err
			}
			result.FirebaseCustomToken = &token
			metrics.MintTotal.WithLabelValues("success").Inc()
			return nil
		})
	}

	writeResult(rw, http.StatusOK, &result)
	metrics.RequestsTotal.WithLabelValues("identity", "success", http.StatusText(http.StatusOK)).Inc()
}

// assertionFromRequest extracts the ID token from the request body, falling
// back to an Authorization bearer header for clients that cannot send a body.
func assertionFromRequest(req *http.Request) string {
	var r v1.IdentityRequest
	if req.Body != nil {
		// A malformed body is treated the same as a missing token.
		json.NewDecoder(req.Body).Decode(&r)
	}
	if r.IDToken != "" {
		return r.IDToken
	}

	auth := req.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
