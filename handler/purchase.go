package handler

import (
	"context"
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"

	v1 "github.com/hexword/verify/api/v1"
	"github.com/hexword/verify/metrics"
	"github.com/hexword/verify/static"
)

// Purchase implements purchase verification requests. The purchase token is
// verified against the Play Developer API and, when requested, acknowledged
// best effort after a successful verification.
func (c *Client) Purchase(rw http.ResponseWriter, req *http.Request) {
	setHeaders(rw)

	var q v1.PurchaseRequest
	if err := json.NewDecoder(req.Body).Decode(&q); err != nil {
		writeError(rw, v1.NewError("Invalid request body", http.StatusBadRequest).WithDetails(err.Error()))
		metrics.RequestsTotal.WithLabelValues("purchase", "bad request", http.StatusText(http.StatusBadRequest)).Inc()
		return
	}

	// Exactly one of productId and subscriptionId selects the branch.
	if q.PackageName == "" || q.PurchaseToken == "" || (q.ProductID == "") == (q.SubscriptionID == "") {
		writeError(rw, v1.NewError("Missing required purchase fields", http.StatusBadRequest).
			WithDetails("packageName, purchaseToken and exactly one of productId or subscriptionId are required"))
		metrics.RequestsTotal.WithLabelValues("purchase", "missing fields", http.StatusText(http.StatusBadRequest)).Inc()
		return
	}

	if c.publisher == nil {
		writeError(rw, v1.NewError("No Play service account configured", http.StatusInternalServerError))
		metrics.RequestsTotal.WithLabelValues("purchase", "no credential", http.StatusText(http.StatusInternalServerError)).Inc()
		return
	}

	if q.ProductID != "" {
		c.verifyProduct(req.Context(), rw, &q)
	} else {
		c.verifySubscription(req.Context(), rw, &q)
	}
}

func (c *Client) verifyProduct(ctx context.Context, rw http.ResponseWriter, q *v1.PurchaseRequest) {
	p, err := c.publisher.VerifyProduct(ctx, q.PackageName, q.ProductID, q.PurchaseToken)
	if err != nil {
		// A single backend failure is terminal for this request.
		writeError(rw, v1.NewError("Purchase verification failed", http.StatusInternalServerError).WithDetails(err.Error()))
		metrics.RequestsTotal.WithLabelValues("purchase", "backend", http.StatusText(http.StatusInternalServerError)).Inc()
		return
	}

	ok := p.PurchaseState == static.PurchaseStatePurchased
	if q.Acknowledge && ok && p.AcknowledgementState == static.AckStatePending {
		// Acknowledge-already-acknowledged races fail upstream and are
		// swallowed here; the verification result is already decided.
		bestEffort("acknowledge product", func() error {
			err := c.publisher.AcknowledgeProduct(ctx, q.PackageName, q.ProductID, q.PurchaseToken, q.DeveloperPayload)
			if err != nil {
				metrics.AcknowledgeAttemptsTotal.WithLabelValues(v1.TypeInApp, "error").Inc()
				return err
			}
			metrics.AcknowledgeAttemptsTotal.WithLabelValues(v1.TypeInApp, "success").Inc()
			return nil
		})
	}

	log.WithFields(log.Fields{
		"packageName":   q.PackageName,
		"productId":     q.ProductID,
		"purchaseState": p.PurchaseState,
	}).Info("In-app purchase verified")

	result := v1.InAppResult{
		OK:                   ok,
		Type:                 v1.TypeInApp,
		ProductID:            q.ProductID,
		OrderID:              p.OrderId,
		PurchaseState:        p.PurchaseState,
		AcknowledgementState: p.AcknowledgementState,
		ConsumptionState:     p.ConsumptionState,
		PurchaseTimeMillis:   p.PurchaseTimeMillis,
	}
	writeResult(rw, http.StatusOK, &result)
	metrics.RequestsTotal.WithLabelValues("purchase", "success", http.StatusText(http.StatusOK)).Inc()
}

func (c *Client) verifySubscription(ctx context.Context, rw http.ResponseWriter, q *v1.PurchaseRequest) {
	s, err := c.publisher.VerifySubscription(ctx, q.PackageName, q.SubscriptionID, q.PurchaseToken)
	if err != nil {
		writeError(rw, v1.NewError("Purchase verification failed", http.StatusInternalServerError).WithDetails(err.Error()))
		metrics.RequestsTotal.WithLabelValues("purchase", "backend", http.StatusText(http.StatusInternalServerError)).Inc()
		return
	}

	// A subscription is active while its expiry is in the future, regardless
	// of whether it will renew.
	ok := s.ExpiryTimeMillis > c.now().UnixMilli()
	if q.Acknowledge && ok && s.AcknowledgementState == static.AckStatePending {
		bestEffort("acknowledge subscription", func() error {
			err := c.publisher.AcknowledgeSubscription(ctx, q.PackageName, q.SubscriptionID, q.PurchaseToken, q.DeveloperPayload)
			if err != nil {
				metrics.AcknowledgeAttemptsTotal.WithLabelValues(v1.TypeSubscription, "error").Inc()
				return err
			}
			metrics.AcknowledgeAttemptsTotal.WithLabelValues(v1.TypeSubscription, "success").Inc()
			return nil
		})
	}

	log.WithFields(log.Fields{
		"packageName":      q.PackageName,
		"subscriptionId":   q.SubscriptionID,
		"expiryTimeMillis": s.ExpiryTimeMillis,
	}).Info("Subscription purchase verified")

	result := v1.SubscriptionResult{
		OK:                   ok,
		Type:                 v1.TypeSubscription,
		SubscriptionID:       q.SubscriptionID,
		OrderID:              s.OrderId,
		ExpiryTimeMillis:     s.ExpiryTimeMillis,
		AutoRenewing:         s.AutoRenewing,
		PaymentState:         s.PaymentState,
		CancelReason:         s.CancelReason,
		AcknowledgementState: s.AcknowledgementState,
	}
	writeResult(rw, http.StatusOK, &result)
	metrics.RequestsTotal.WithLabelValues("purchase", "success", http.StatusText(http.StatusOK)).Inc()
}
