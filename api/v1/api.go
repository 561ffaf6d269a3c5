// Package v1 defines the request and response types for the verify service.
//
// Both endpoints accept POST requests with a JSON body and reply with either
// a result object or an Error object. Error responses always carry an "error"
// message and, when it helps the caller distinguish failure causes, a
// "details" field. Credential material is never echoed back.
package v1

// Error is the JSON body returned for every failed request.
type Error struct {
	// Status is the HTTP status code of the response. It is transported in
	// the status line, not the body.
	Status int `json:"-"`

	// Message states what went wrong.
	Message string `json:"error"`

	// Details optionally narrows the failure down for the caller.
	Details string `json:"details,omitempty"`
}

// NewError creates a new Error with the given message and HTTP status.
func NewError(message string, status int) *Error {
	return &Error{
		Status:  status,
		Message: message,
	}
}

// WithDetails returns the error with its details field set.
func (e *Error) WithDetails(details string) *Error {
	e.Details = details
	return e
}

// IdentityRequest is the body of an identity verification request. Clients
// that cannot send a body may provide the token as an Authorization bearer
// header instead.
type IdentityRequest struct {
	IDToken string `json:"idToken"`
}

// GoogleUser describes the subject of a successfully verified ID token.
type GoogleUser struct {
	UID     string `json:"uid"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// IdentityResult is returned for successfully verified ID tokens.
type IdentityResult struct {
	OK         bool        `json:"ok"`
	GoogleUser *GoogleUser `json:"googleUser"`

	// FirebaseCustomToken carries a session token minted for the verified
	// subject. Minting is best effort: the field is null when no minter is
	// configured or minting failed.
	FirebaseCustomToken *string `json:"firebaseCustomToken"`
}

// Purchase result type discriminators.
const (
	TypeInApp        = "inapp"
	TypeSubscription = "subs"
)

// PurchaseRequest is the body of a purchase verification request. Exactly one
// of ProductID and SubscriptionID must be set.
type PurchaseRequest struct {
	PackageName    string `json:"packageName"`
	PurchaseToken  string `json:"purchaseToken"`
	ProductID      string `json:"productId,omitempty"`
	SubscriptionID string `json:"subscriptionId,omitempty"`

	// Acknowledge requests a best-effort acknowledgement of the purchase
	// after a successful verification.
	Acknowledge bool `json:"acknowledge,omitempty"`

	// DeveloperPayload is accepted for compatibility with older clients and
	// forwarded on acknowledge calls. The newer Play API does not reliably
	// populate the matching account fields, so the value is never compared
	// against the purchase record.
	DeveloperPayload string `json:"developerPayload,omitempty"`
}

// InAppResult is returned for verified in-app product purchases. OK reports
// whether the purchase is in the purchased state.
type InAppResult struct {
	OK                   bool   `json:"ok"`
	Type                 string `json:"type"`
	ProductID            string `json:"productId"`
	OrderID              string `json:"orderId,omitempty"`
	PurchaseState        int64  `json:"purchaseState"`
	AcknowledgementState int64  `json:"acknowledgementState"`
	ConsumptionState     int64  `json:"consumptionState"`
	PurchaseTimeMillis   int64  `json:"purchaseTimeMillis,omitempty"`
}

// SubscriptionResult is returned for verified subscription purchases. OK
// reports whether the subscription expiry is still in the future.
type SubscriptionResult struct {
	OK                   bool   `json:"ok"`
	Type                 string `json:"type"`
	SubscriptionID       string `json:"subscriptionId"`
	OrderID              string `json:"orderId,omitempty"`
	ExpiryTimeMillis     int64  `json:"expiryTimeMillis,omitempty"`
	AutoRenewing         bool   `json:"autoRenewing"`
	PaymentState         *int64 `json:"paymentState,omitempty"`
	CancelReason         int64  `json:"cancelReason"`
	AcknowledgementState int64  `json:"acknowledgementState"`
}
