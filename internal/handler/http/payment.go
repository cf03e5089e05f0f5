package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rookgm/marinapay/internal/logger"
	"github.com/rookgm/marinapay/internal/payment"
	"go.uber.org/zap"
)

// BamboraHandler represents HTTP handler for Bambora webhook requests
type BamboraHandler struct {
	bambora     *payment.BamboraClient
	uiReturnURL string
}

// NewBamboraHandler creates new BamboraHandler instance
func NewBamboraHandler(bambora *payment.BamboraClient, uiReturnURL string) *BamboraHandler {
	return &BamboraHandler{bambora: bambora, uiReturnURL: uiReturnURL}
}

// Success handles the payer's browser return and redirects to the UI with
// the payment outcome.
func (bh *BamboraHandler) Success() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := bh.bambora.HandleSuccess(r.Context(), r.URL.Query())
		if err != nil {
			logger.Log.Warn("bambora success rejected", zap.Error(err))
			outcome = &payment.SuccessOutcome{
				OrderNumber: r.URL.Query().Get("ORDER_NUMBER"),
				Paid:        false,
			}
		}

		http.Redirect(w, r, outcome.RedirectURL(bh.uiReturnURL), http.StatusFound)
	}
}

// Notify handles the asynchronous payment callback. The provider retries on
// anything but an acknowledgement, so the answer is 204 no matter what.
func (bh *BamboraHandler) Notify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := bh.bambora.HandleNotify(r.Context(), r.URL.Query()); err != nil {
			logger.Log.Warn("bambora notify rejected", zap.Error(err))
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// RefundNotify handles the refund outcome callback, 204 no matter what.
func (bh *BamboraHandler) RefundNotify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := bh.bambora.HandleRefundNotify(r.Context(), r.URL.Query()); err != nil {
			logger.Log.Warn("bambora refund notify rejected", zap.Error(err))
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// TalpaHandler represents HTTP handler for Talpa webhook requests
type TalpaHandler struct {
	talpa *payment.TalpaClient
}

// NewTalpaHandler creates new TalpaHandler instance
func NewTalpaHandler(talpa *payment.TalpaClient) *TalpaHandler {
	return &TalpaHandler{talpa: talpa}
}

// Notify handles the Talpa webhook.
// 204 - event applied
// 400 - content type, namespace, event type or corroboration mismatch
// 404 - order id is unknown
func (th *TalpaHandler) Notify() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			http.Error(w, "expected application/json", http.StatusBadRequest)
			return
		}

		payload := payment.WebhookPayload{}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		err := th.talpa.HandleNotify(r.Context(), &payload)
		if err == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		logger.Log.Warn("talpa notify rejected",
			zap.String("order_id", payload.OrderID),
			zap.String("event_type", payload.EventType),
			zap.Error(err))

		var validationErr *payment.PayloadValidationError
		var eventErr *payment.UnknownWebhookEventError
		switch {
		case errors.Is(err, payment.ErrMissingOrderID):
			http.Error(w, "order not found", http.StatusNotFound)
		case errors.As(err, &validationErr), errors.As(err, &eventErr):
			http.Error(w, "bad request", http.StatusBadRequest)
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}
