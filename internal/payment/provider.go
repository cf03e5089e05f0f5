// Package payment implements the external payment provider adapters.
package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/marinapay/internal/models"
)

var (
	// ErrServiceUnavailable covers network failures and provider maintenance.
	ErrServiceUnavailable = errors.New("payment service is unavailable")
	// ErrDuplicateOrder is the provider reporting an order number collision.
	ErrDuplicateOrder = errors.New("order number collides with an earlier payment")
	// ErrExpiredOrder rejects payment initiation for an expired order.
	ErrExpiredOrder = errors.New("order has expired")
	// ErrMissingOrderID marks a webhook that references no known order.
	ErrMissingOrderID = errors.New("no order found for the given id")
	// ErrRefundPrice rejects a refund when the amount the provider settled
	// does not match the order total.
	ErrRefundPrice = errors.New("refund amount does not match the amount paid")
	// ErrActiveToken rejects a refund while a payment session is still open.
	ErrActiveToken = errors.New("order has an active payment session")
)

// PayloadValidationError is the provider, or this side's pre-check,
// rejecting a payload.
type PayloadValidationError struct {
	Reason string
}

func (e *PayloadValidationError) Error() string {
	return fmt.Sprintf("payload validation failed: %s", e.Reason)
}

// UnknownReturnCodeError is a Bambora return code outside the mapped set.
type UnknownReturnCodeError struct {
	Code string
}

func (e *UnknownReturnCodeError) Error() string {
	return fmt.Sprintf("unknown return code %q", e.Code)
}

// UnknownWebhookEventError is a Talpa event type outside the known set.
type UnknownWebhookEventError struct {
	Event string
}

func (e *UnknownWebhookEventError) Error() string {
	return fmt.Sprintf("unknown webhook event type %q", e.Event)
}

// Config carries the provider settings, constructed once at startup and
// injected into the adapters.
type Config struct {
	BamboraAPIURL         string
	BamboraAPIKey         string
	BamboraAPISecret      string
	BamboraPaymentMethods []string

	TalpaAPIURL      string
	TalpaCheckoutURL string
	TalpaNamespace   string
	TalpaAPIKey      string

	// UI page the payer lands on after a Bambora payment
	UIReturnURL string
	// public base used to build the provider's return and notify URLs
	PublicBaseURL string
}

// Provider is the capability every payment integration offers. Webhook
// handling differs too much per provider to share a signature and stays on
// the concrete adapters.
type Provider interface {
	// InitiatePayment opens a payment session and returns the URL the
	// payer is redirected to.
	InitiatePayment(ctx context.Context, order *models.Order) (string, error)
	// InitiateRefund asks the provider to refund the order in full.
	InitiateRefund(ctx context.Context, order *models.Order) (*models.OrderRefund, error)
}

// OrderService is the slice of order operations the adapters consume.
type OrderService interface {
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	GetOrderByTalpaID(ctx context.Context, talpaID string) (*models.Order, error)
	SetStatus(ctx context.Context, order *models.Order, to models.OrderStatus, comment string) error
	SetTalpaID(ctx context.Context, order *models.Order, talpaID string) error
	ValidToken(ctx context.Context, orderID uuid.UUID) (*models.OrderToken, error)
	LatestToken(ctx context.Context, orderID uuid.UUID) (*models.OrderToken, error)
	StoreToken(ctx context.Context, orderID uuid.UUID, token string) (*models.OrderToken, error)
	ValidateRefund(ctx context.Context, order *models.Order) error
	CreateRefund(ctx context.Context, order *models.Order, refundID string) (*models.OrderRefund, error)
	GetRefundByProviderID(ctx context.Context, refundID string) (*models.OrderRefund, error)
	SetRefundStatus(ctx context.Context, refund *models.OrderRefund, to models.OrderRefundStatus, comment string) error
}

// Outbound provider calls share one bounded timeout.
const requestTimeout = 60 * time.Second
