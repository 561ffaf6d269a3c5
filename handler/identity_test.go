// Package handler provides a client and handlers for responding to identity
// and purchase verification requests.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"

	v1 "github.com/hexword/verify/api/v1"
	"github.com/hexword/verify/auth/idverifier"
)

func init() {
	// Disable most logs for unit tests.
	log.SetLevel(log.FatalLevel)
}

type fakeVerifier struct {
	id    *idverifier.Identity
	err   error
	calls int
}

func (f *fakeVerifier) Verify(ctx context.Context, assertion string) (*idverifier.Identity, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.id, nil
}

func (f *fakeVerifier) Mode() string { return "fake" }

type fakeMinter struct {
	token string
	err   error
	calls int
}

func (f *fakeMinter) Mint(ctx context.Context, uid string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func TestClient_Identity(t *testing.T) {
	validIdentity := &idverifier.Identity{
		Subject:  "110248495921238986420",
		Issuer:   "https://accounts.google.com",
		Audience: "client-A",
	}

	tests := []struct {
		name       string
		body       string
		header     http.Header
		verifier   *fakeVerifier
		minter     *fakeMinter
		audiences  []string
		wantStatus int
		wantError  string
		wantUID    string
		wantToken  *string
		wantCalls  int
	}{
		{
			name:       "error-no-audience-configured",
			body:       `{"idToken": "fake-token"}`,
			verifier:   &fakeVerifier{id: validIdentity},
			audiences:  []string{},
			wantStatus: http.StatusInternalServerError,
			wantError:  "No OAuth client audience configured",
			wantCalls:  0, // fails closed before any verifier call
		},
		{
			name:       "error-missing-token",
			body:       `{}`,
			verifier:   &fakeVerifier{id: validIdentity},
			audiences:  []string{"client-A"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing idToken",
			wantCalls:  0,
		},
		{
			name:       "error-malformed-body",
			body:       `{"idToken": `,
			verifier:   &fakeVerifier{id: validIdentity},
			audiences:  []string{"client-A"},
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing idToken",
		},
		{
			name:       "error-invalid-token",
			body:       `{"idToken": "fake-token"}`,
			verifier:   &fakeVerifier{err: errors.New("bad signature")},
			audiences:  []string{"client-A"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Invalid ID token",
			wantCalls:  1,
		},
		{
			name: "error-unexpected-issuer",
			body: `{"idToken": "fake-token"}`,
			verifier: &fakeVerifier{id: &idverifier.Identity{
				Subject:  "12345",
				Issuer:   "https://evil.example.com",
				Audience: "client-A",
			}},
			audiences:  []string{"client-A"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Unexpected token issuer",
		},
		{
			name: "error-audience-not-in-allowlist",
			body: `{"idToken": "fake-token"}`,
			verifier: &fakeVerifier{id: &idverifier.Identity{
				Subject:  "12345",
				Issuer:   "accounts.google.com",
				Audience: "client-C",
			}},
			audiences:  []string{"client-A", "client-B"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Token audience mismatch",
		},
		{
			name: "error-email-not-verified",
			body: `{"idToken": "fake-token"}`,
			verifier: &fakeVerifier{id: &idverifier.Identity{
				Subject:       "12345",
				Issuer:        "https://accounts.google.com",
				Audience:      "client-A",
				Email:         "user@example.com",
				EmailVerified: false,
			}},
			audiences:  []string{"client-A"},
			wantStatus: http.StatusUnauthorized,
			wantError:  "Email not verified",
		},
		{
			name:       "success-audience-member-of-allowlist",
			body:       `{"idToken": "fake-token"}`,
			verifier:   &fakeVerifier{id: validIdentity},
			audiences:  []string{"client-A", "client-B"},
			wantStatus: http.StatusOK,
			wantUID:    "110248495921238986420",
			wantCalls:  1,
		},
		{
			name:   "success-token-from-bearer-header",
			body:   `{}`,
			header: http.Header{"Authorization": []string{"Bearer fake-token"}},
			verifier: &fakeVerifier{id: &idverifier.Identity{
				Subject:       "12345",
				Issuer:        "accounts.google.com",
				Audience:      "client-A",
				Email:         "user@example.com",
				EmailVerified: true,
				Name:          "Test User",
			}},
			audiences:  []string{"client-A"},
			wantStatus: http.StatusOK,
			wantUID:    "12345",
		},
		{
			name:       "success-with-custom-token",
			body:       `{"idToken": "fake-token"}`,
			verifier:   &fakeVerifier{id: validIdentity},
			minter:     &fakeMinter{token: "custom-token-1"},
			audiences:  []string{"client-A"},
			wantStatus: http.StatusOK,
			wantUID:    "110248495921238986420",
			wantToken:  strPtr("custom-token-1"),
		},
		{
			name:       "success-mint-failure-is-swallowed",
			body:       `{"idToken": "fake-token"}`,
			verifier:   &fakeVerifier{id: validIdentity},
			minter:     &fakeMinter{err: errors.New("minting outage")},
			audiences:  []string{"client-A"},
			wantStatus: http.StatusOK,
			wantUID:    "110248495921238986420",
			wantToken:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewClient(tt.verifier, nil, nil, tt.audiences)
			if tt.minter != nil {
				c.minter = tt.minter
			}

			req := httptest.NewRequest(http.MethodPost, "/v1/identity/verify", strings.NewReader(tt.body))
			for key, values := range tt.header {
				req.Header.Set(key, values[0])
			}
			rw := httptest.NewRecorder()

			c.Identity(rw, req)

			if rw.Code != tt.wantStatus {
				t.Fatalf("Identity() status = %d, want %d; body: %s", rw.Code, tt.wantStatus, rw.Body.String())
			}

			if tt.wantError != "" {
				apiErr := v1.Error{}
				if err := json.Unmarshal(rw.Body.Bytes(), &apiErr); err != nil {
					t.Fatalf("failed to unmarshal error response: %v", err)
				}
				if apiErr.Message != tt.wantError {
					t.Errorf("Identity() error = %q, want %q", apiErr.Message, tt.wantError)
				}
				return
			}

			result := v1.IdentityResult{}
			if err := json.Unmarshal(rw.Body.Bytes(), &result); err != nil {
				t.Fatalf("failed to unmarshal result: %v", err)
			}
			if !result.OK {
				t.Error("Identity() result.OK = false, want true")
			}
			if result.GoogleUser == nil || result.GoogleUser.UID != tt.wantUID {
				t.Errorf("Identity() googleUser = %+v, want uid %q", result.GoogleUser, tt.wantUID)
			}
			if tt.wantToken == nil {
				if result.FirebaseCustomToken != nil {
					t.Errorf("Identity() firebaseCustomToken = %q, want null", *result.FirebaseCustomToken)
				}
			} else if result.FirebaseCustomToken == nil || *result.FirebaseCustomToken != *tt.wantToken {
				t.Errorf("Identity() firebaseCustomToken = %v, want %q", result.FirebaseCustomToken, *tt.wantToken)
			}
			if tt.wantCalls > 0 && tt.verifier.calls != tt.wantCalls {
				t.Errorf("Identity() verifier calls = %d, want %d", tt.verifier.calls, tt.wantCalls)
			}
		})
	}
}

func TestClient_Identity_RejectedAudienceDetails(t *testing.T) {
	// The failure payload must name the rejected audience and the allowlist
	// for operator diagnosis.
	c := NewClient(&fakeVerifier{id: &idverifier.Identity{
		Subject:  "12345",
		Issuer:   "accounts.google.com",
		Audience: "client-C",
	}}, nil, nil, []string{"client-A", "client-B"})

	req := httptest.NewRequest(http.MethodPost, "/v1/identity/verify", strings.NewReader(`{"idToken": "fake-token"}`))
	rw := httptest.NewRecorder()
	c.Identity(rw, req)

	apiErr := v1.Error{}
	if err := json.Unmarshal(rw.Body.Bytes(), &apiErr); err != nil {
		t.Fatalf("failed to unmarshal error response: %v", err)
	}
	for _, want := range []string{"client-C", "client-A", "client-B"} {
		if !strings.Contains(apiErr.Details, want) {
			t.Errorf("error details %q missing %q", apiErr.Details, want)
		}
	}
}

func TestClient_LiveAndReady(t *testing.T) {
	c := NewClient(&fakeVerifier{}, nil, nil, []string{"client-A"})

	rw := httptest.NewRecorder()
	c.Live(rw, httptest.NewRequest(http.MethodGet, "/v1/live", nil))
	if rw.Code != http.StatusOK {
		t.Errorf("Live() status = %d, want %d", rw.Code, http.StatusOK)
	}

	rw = httptest.NewRecorder()
	c.Ready(rw, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rw.Code != http.StatusOK {
		t.Errorf("Ready() status = %d, want %d", rw.Code, http.StatusOK)
	}

	c.verifier = nil
	rw = httptest.NewRecorder()
	c.Ready(rw, httptest.NewRequest(http.MethodGet, "/v1/ready", nil))
	if rw.Code != http.StatusInternalServerError {
		t.Errorf("Ready() status = %d, want %d without a verifier", rw.Code, http.StatusInternalServerError)
	}
}

func TestCORS_Preflight(t *testing.T) {
	c := NewClient(&fakeVerifier{}, nil, nil, []string{"client-A"})
	gate := CORS().Handler(http.HandlerFunc(c.Identity))

	req := httptest.NewRequest(http.MethodOptions, "/v1/identity/verify", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rw := httptest.NewRecorder()

	gate.ServeHTTP(rw, req)

	if rw.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want %d", rw.Code, http.StatusNoContent)
	}
	if rw.Body.Len() != 0 {
		t.Errorf("preflight body = %q, want empty", rw.Body.String())
	}
	if got := rw.Header().Get("Access-Control-Allow-Methods"); !strings.Contains(got, http.MethodPost) {
		t.Errorf("Access-Control-Allow-Methods = %q, want POST", got)
	}
	if got := rw.Header().Get("Access-Control-Allow-Headers"); got == "" {
		t.Error("Access-Control-Allow-Headers is empty")
	}
}

func strPtr(s string) *string {
	return &s
}
