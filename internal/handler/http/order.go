package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/payment"
)

// OrderService is the slice of order operations the handlers need.
type OrderService interface {
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
}

// OrderHandler represents HTTP handler for order payment requests
type OrderHandler struct {
	svc      OrderService
	provider payment.Provider
}

// NewOrderHandler creates new OrderHandler instance
func NewOrderHandler(svc OrderService, provider payment.Provider) *OrderHandler {
	return &OrderHandler{svc: svc, provider: provider}
}

// InitiatePayment opens a payment session for the order.
// 200 - payment URL in the body
// 400 - payload rejected or order expired
// 404 - unknown order number
// 409 - provider reports a duplicate order
// 503 - provider unavailable
func (oh *OrderHandler) InitiatePayment() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := chi.URLParam(r, "number")

		order, err := oh.svc.GetOrderByNumber(r.Context(), number)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		paymentURL, err := oh.provider.InitiatePayment(r.Context(), order)
		if err != nil {
			writeProviderError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"payment_url": paymentURL})
	}
}

// InitiateRefund asks the provider to refund the order in full.
// 200 - refund record in the body
// 400 - order or lease is not paid, or the settled amount does not match
// 404 - unknown order number
// 409 - an active payment session or a pending refund blocks the refund
// 503 - provider unavailable
func (oh *OrderHandler) InitiateRefund() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := chi.URLParam(r, "number")

		order, err := oh.svc.GetOrderByNumber(r.Context(), number)
		if err != nil {
			if errors.Is(err, models.ErrDataNotFound) {
				http.Error(w, "order not found", http.StatusNotFound)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		refund, err := oh.provider.InitiateRefund(r.Context(), order)
		if err != nil {
			writeProviderError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"refund_id": refund.RefundID,
			"status":    string(refund.Status),
			"amount":    refund.Amount.String(),
		})
	}
}

func writeProviderError(w http.ResponseWriter, err error) {
	var validationErr *payment.PayloadValidationError
	var codeErr *payment.UnknownReturnCodeError
	switch {
	case errors.Is(err, payment.ErrExpiredOrder),
		errors.Is(err, models.ErrOrderNotPaid),
		errors.Is(err, models.ErrLeaseNotPaid),
		errors.Is(err, payment.ErrRefundPrice),
		errors.As(err, &validationErr):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, payment.ErrDuplicateOrder),
		errors.Is(err, payment.ErrActiveToken),
		errors.Is(err, models.ErrPendingRefund):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, payment.ErrServiceUnavailable):
		http.Error(w, "payment service is unavailable", http.StatusServiceUnavailable)
	case errors.As(err, &codeErr):
		http.Error(w, "internal error", http.StatusInternalServerError)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
