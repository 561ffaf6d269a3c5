// Package session mints Firebase custom tokens for verified subjects.
//
// Minting is a best-effort side operation of identity verification: a failure
// here is logged by the caller and never fails the primary request.
package session

import (
	"context"
	"fmt"
	"sync"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// Minter mints a signed session token for the given subject id.
type Minter interface {
	Mint(ctx context.Context, uid string) (string, error)
}

// FirebaseMinter mints custom tokens through the Firebase Admin SDK. The SDK
// app is process-wide state with an init-once lifecycle, so it is created
// lazily and reused for every request.
type FirebaseMinter struct {
	credentialsJSON []byte

	once    sync.Once
	client  *auth.Client
	initErr error
}

// NewFirebaseMinter creates a minter from service-account credentials.
func NewFirebaseMinter(credentialsJSON []byte) *FirebaseMinter {
	return &FirebaseMinter{credentialsJSON: credentialsJSON}
}

func (m *FirebaseMinter) authClient(ctx context.Context) (*auth.Client, error) {
	m.once.Do(func() {
		app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON(m.credentialsJSON))
		if err != nil {
			m.initErr = fmt.Errorf("failed to create firebase app: %w", err)
			return
		}
		m.client, m.initErr = app.Auth(ctx)
	})
	return m.client, m.initErr
}

// Mint creates a custom token for the verified subject.
func (m *FirebaseMinter) Mint(ctx context.Context, uid string) (string, error) {
	client, err := m.authClient(ctx)
	if err != nil {
		return "", err
	}
	return client.CustomToken(ctx, uid)
}
