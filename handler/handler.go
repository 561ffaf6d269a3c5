// Package handler provides a client and handlers for responding to identity
// and purchase verification requests.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/m-lab/go/rtx"

	v1 "github.com/hexword/verify/api/v1"
	"github.com/hexword/verify/auth/idverifier"
	"github.com/hexword/verify/billing"
	"github.com/hexword/verify/session"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

// Client contains state needed by the verification handlers. All fields are
// read-only after construction; requests share no mutable state.
type Client struct {
	verifier  idverifier.Verifier
	publisher billing.Publisher
	minter    session.Minter
	audiences []string
	now       func() time.Time
}

// NewClient creates a new client. The publisher and minter may be nil when no
// service-account credential is configured; the affected handlers then fail
// closed per request.
func NewClient(verifier idverifier.Verifier, publisher billing.Publisher, minter session.Minter, audiences []string) *Client {
	return &Client{
		verifier:  verifier,
		publisher: publisher,
		minter:    minter,
		audiences: audiences,
		now:       time.Now,
	}
}

// Live is a minimal handler to indicate that the server is operating at all.
func (c *Client) Live(rw http.ResponseWriter, req *http.Request) {
	fmt.Fprintf(rw, "ok")
}

// Ready reports whether the server is ready to serve verification requests.
func (c *Client) Ready(rw http.ResponseWriter, req *http.Request) {
	if c.verifier != nil {
		fmt.Fprintf(rw, "ok")
	} else {
		rw.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(rw, "not ready")
	}
}

// bestEffort runs a side call whose failure must not affect the primary
// response. The error is logged and discarded, keeping the side call's
// failure domain separate from the result-producing call chain.
func bestEffort(operation string, fn func() error) {
	if err := fn(); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"operation": operation,
		}).Warn("Best-effort call failed")
	}
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

// setHeaders sets the response headers for verification requests.
func setHeaders(rw http.ResponseWriter) {
	rw.Header().Set("Content-Type", "application/json")
	// Prevent caching of results.
	rw.Header().Set("Cache-Control", "no-store")
}

// writeError writes the error as the response body at its status.
func writeError(rw http.ResponseWriter, err *v1.Error) {
	writeResult(rw, err.Status, err)
}

// writeResult marshals the result and writes the result to the response writer.
func writeResult(rw http.ResponseWriter, status int, result interface{}) {
	b, err := json.MarshalIndent(result, "", "  ")
	// Errors are only possible when marshalling incompatible types, like functions.
	rtx.PanicOnError(err, "Failed to format result")
	rw.WriteHeader(status)
	rw.Write(b)
}
