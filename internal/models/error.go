package models

import (
	"errors"
	"fmt"
)

var (
	ErrConflictData = errors.New("data conflicts with existing data")
	ErrDataNotFound = errors.New("data not found")

	// pricing/data failures: surfaced as failure strings on the lease/order,
	// never as conditions that abort a batch
	ErrNoMatchingProduct = errors.New("no suitable product found")
	ErrAmbiguousProduct  = errors.New("more than one product matches")
	ErrMissingDimensions = errors.New("no dimension source available")

	ErrMissingCustomerEmail = errors.New("missing customer email")
	ErrOrderNotPaid         = errors.New("order is not in a paid status")
	ErrLeaseNotPaid         = errors.New("lease is not paid")
	ErrPendingRefund        = errors.New("order has another pending refund")
	ErrInvalidTaxPercentage = errors.New("tax percentage is not an allowed rate")
	ErrProductOrPrice       = errors.New("order must have either a product or a price value")
	ErrProductLeaseMismatch = errors.New("product type must match the lease type")
	ErrProductChange        = errors.New("cannot change the product assigned to this order")
	ErrMissingDueDate       = errors.New("order has no due date")
)

// OrderStatusTransitionError reports an order transition outside the allowed
// table. The caller must pick a valid next state instead of retrying.
type OrderStatusTransitionError struct {
	OrderNumber string
	From        OrderStatus
	To          OrderStatus
}

func (e *OrderStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot set order %s status to %q, it is in an invalid state %q", e.OrderNumber, e.To, e.From)
}

// RefundStatusTransitionError is the refund machine counterpart.
type RefundStatusTransitionError struct {
	RefundID string
	From     OrderRefundStatus
	To       OrderRefundStatus
}

func (e *RefundStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot set refund %s status to %q, it is in an invalid state %q", e.RefundID, e.To, e.From)
}
