package billing

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/androidpublisher/v3"
	"google.golang.org/api/option"
)

// GooglePublisher calls the Play Developer API using a service-account key.
// The underlying service is initialized once, on first use, so that a
// misconfigured key surfaces as a per-request backend error instead of a
// startup crash.
type GooglePublisher struct {
	keyJSON []byte

	once    sync.Once
	service *androidpublisher.Service
	initErr error
}

// NewGooglePublisher creates a publisher from service-account key material.
func NewGooglePublisher(keyJSON []byte) *GooglePublisher {
	return &GooglePublisher{keyJSON: keyJSON}
}

func (p *GooglePublisher) init(ctx context.Context) (*androidpublisher.Service, error) {
	p.once.Do(func() {
		creds, err := google.CredentialsFromJSON(ctx, p.keyJSON, androidpublisher.AndroidpublisherScope)
		if err != nil {
			p.initErr = fmt.Errorf("failed to parse service account credentials: %w", err)
			return
		}
		p.service, p.initErr = androidpublisher.NewService(ctx, option.WithTokenSource(creds.TokenSource))
	})
	return p.service, p.initErr
}

// VerifyProduct fetches the purchase record for a one-time product.
func (p *GooglePublisher) VerifyProduct(ctx context.Context, packageName, productID, purchaseToken string) (*androidpublisher.ProductPurchase, error) {
	service, err := p.init(ctx)
	if err != nil {
		return nil, err
	}
	return service.Purchases.Products.Get(packageName, productID, purchaseToken).Context(ctx).Do()
}

// VerifySubscription fetches the purchase record for a subscription.
func (p *GooglePublisher) VerifySubscription(ctx context.Context, packageName, subscriptionID, purchaseToken string) (*androidpublisher.SubscriptionPurchase, error) {
	service, err := p.init(ctx)
	if err != nil {
		return nil, err
	}
	return service.Purchases.Subscriptions.Get(packageName, subscriptionID, purchaseToken).Context(ctx).Do()
}

// AcknowledgeProduct acknowledges a purchased one-time product.
func (p *GooglePublisher) AcknowledgeProduct(ctx context.Context, packageName, productID, purchaseToken, developerPayload string) error {
	service, err := p.init(ctx)
	if err != nil {
		return err
	}
	req := &androidpublisher.ProductPurchasesAcknowledgeRequest{
		DeveloperPayload: developerPayload,
	}
	return service.Purchases.Products.Acknowledge(packageName, productID, purchaseToken, req).Context(ctx).Do()
}

// AcknowledgeSubscription acknowledges a subscription purchase.
func (p *GooglePublisher) AcknowledgeSubscription(ctx context.Context, packageName, subscriptionID, purchaseToken, developerPayload string) error {
	service, err := p.init(ctx)
	if err != nil {
		return err
	}
	req := &androidpublisher.SubscriptionPurchasesAcknowledgeRequest{
		DeveloperPayload: developerPayload,
	}
	return service.Purchases.Subscriptions.Acknowledge(packageName, subscriptionID, purchaseToken, req).Context(ctx).Do()
}
