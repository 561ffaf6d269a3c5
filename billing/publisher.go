// Package billing wraps the Google Play Developer API calls used to verify
// and acknowledge in-app product and subscription purchases.
package billing

import (
	"context"

	"google.golang.org/api/androidpublisher/v3"
)

// Publisher defines the subset of the androidpublisher API used by the
// purchase verification handler. Implementations must be safe for concurrent
// use.
type Publisher interface {
	// VerifyProduct fetches the purchase record for a one-time product.
	VerifyProduct(ctx context.Context, packageName, productID, purchaseToken string) (*androidpublisher.ProductPurchase, error)

	// VerifySubscription fetches the purchase record for a subscription.
	VerifySubscription(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*androidpublisher.SubscriptionPurchase, error)

	// AcknowledgeProduct acknowledges a purchased one-time product.
	AcknowledgeProduct(ctx context.Context, packageName, productID, purchaseToken, developerPayload string) error

	// AcknowledgeSubscription acknowledges a subscription purchase.
	AcknowledgeSubscription(ctx context.Context, packageName, subscriptionID, purchaseToken, developerPayload string) error
}
