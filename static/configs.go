// Package static contains static configuration for the verify service.
package static

import "net/http"

// Constants used by the verify service and its clients.
const (
	// Google issues ID tokens with either issuer form, depending on how the
	// token was requested.
	IssuerGoogle       = "accounts.google.com"
	IssuerGoogleSecure = "https://accounts.google.com"

	// Default Secret Manager secret names.
	SecretOAuthAudiences = "oauth-client-audiences"
	SecretServiceAccount = "play-publisher-key"

	// Purchase states reported by the Play Developer API for in-app products.
	PurchaseStatePurchased = 0
	PurchaseStateCanceled  = 1
	PurchaseStatePending   = 2

	// Acknowledgement states for products and subscriptions.
	AckStatePending      = 0
	AckStateAcknowledged = 1

	// CORSMaxAgeSeconds is how long browsers may cache a preflight response.
	CORSMaxAgeSeconds = 3600
)

// Issuers lists the accepted Google ID token issuers.
var Issuers = []string{IssuerGoogle, IssuerGoogleSecure}

// CORS policy applied to both verification endpoints.
var (
	CORSMethods = []string{http.MethodPost, http.MethodOptions}
	CORSHeaders = []string{"Content-Type", "Authorization"}
)
