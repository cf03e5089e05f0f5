package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/service"
)

// InvoicingService runs one batch invoicing pass.
type InvoicingService interface {
	Run(ctx context.Context, kind models.LeaseKind) (*service.InvoicingResult, error)
}

// InvoicingHandler represents HTTP handler for batch invoicing requests
type InvoicingHandler struct {
	svc InvoicingService
}

// NewInvoicingHandler creates new InvoicingHandler instance
func NewInvoicingHandler(svc InvoicingService) *InvoicingHandler {
	return &InvoicingHandler{svc: svc}
}

type invoicingResponse struct {
	Status           string `json:"status"`
	SuccessfulOrders int    `json:"successful_orders"`
	FailedLeases     int    `json:"failed_leases"`
	FailedOrders     int    `json:"failed_orders"`
}

// Run triggers one batch run for the lease kind in the query.
// 200 - run finished, summary in the body (also when aborted)
// 400 - unknown lease kind
func (ih *InvoicingHandler) Run() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind := models.LeaseKind(r.URL.Query().Get("kind"))
		if kind != models.LeaseKindBerth && kind != models.LeaseKindWinterStorage {
			http.Error(w, "unknown lease kind", http.StatusBadRequest)
			return
		}

		result, err := ih.svc.Run(r.Context(), kind)
		if err != nil && !errors.Is(err, service.ErrTooManyFailures) {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(invoicingResponse{
			Status:           string(result.Status),
			SuccessfulOrders: result.SuccessfulOrders,
			FailedLeases:     len(result.FailedLeases),
			FailedOrders:     len(result.FailedOrders),
		})
	}
}
