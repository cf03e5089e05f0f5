package models

import (
	"encoding/base32"
	"encoding/binary"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderStatusDrafted      OrderStatus = "drafted"
	OrderStatusOffered      OrderStatus = "offered"
	OrderStatusWaiting      OrderStatus = "waiting"
	OrderStatusRejected     OrderStatus = "rejected"
	OrderStatusCancelled    OrderStatus = "cancelled"
	OrderStatusExpired      OrderStatus = "expired"
	OrderStatusError        OrderStatus = "error"
	OrderStatusPaid         OrderStatus = "paid"
	OrderStatusPaidManually OrderStatus = "paid_man"
	OrderStatusRefunded     OrderStatus = "refunded"
)

// OrderType separates lease invoices from additional product purchases.
type OrderType string

const (
	OrderTypeLeaseOrder             OrderType = "lease_order"
	OrderTypeAdditionalProductOrder OrderType = "additional_product_order"
)

// orderStatusTransitions is the allowed from -> to table. Any pair not listed
// here is rejected with OrderStatusTransitionError. Waiting behaves as an
// alias of offered in the provider-facing flow.
var orderStatusTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusDrafted: {
		OrderStatusOffered,
		OrderStatusPaidManually,
		OrderStatusError,
	},
	OrderStatusOffered: {
		OrderStatusPaid,
		OrderStatusPaidManually,
		OrderStatusExpired,
		OrderStatusRejected,
		OrderStatusError,
		OrderStatusCancelled,
	},
	OrderStatusWaiting: {
		OrderStatusPaid,
		OrderStatusPaidManually,
		OrderStatusExpired,
		OrderStatusRejected,
		OrderStatusError,
		OrderStatusCancelled,
	},
	OrderStatusPaid: {
		OrderStatusRefunded,
	},
	OrderStatusError: {
		OrderStatusDrafted,
		OrderStatusOffered,
		OrderStatusPaidManually,
		OrderStatusCancelled,
	},
	OrderStatusCancelled: {
		OrderStatusOffered,
	},
}

// ValidOrderStatusTransition reports whether from -> to is allowed.
// A transition to the current status is handled by the caller as a no-op
// and never reaches this check.
func ValidOrderStatusTransition(from, to OrderStatus) bool {
	for _, allowed := range orderStatusTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsPaidStatus reports whether the status counts as settled.
func IsPaidStatus(s OrderStatus) bool {
	return s == OrderStatusPaid || s == OrderStatusPaidManually
}

// WaitingStatuses returns the statuses of orders that still await payment.
func WaitingStatuses() []OrderStatus {
	return []OrderStatus{OrderStatusOffered, OrderStatusWaiting}
}

// Order is a billable unit tied to a lease or an additional product.
// It always has either a resolvable product or an explicit price. The customer
// contact fields are a snapshot captured when the invoice is sent so that
// later profile edits do not alter an already-sent invoice.
type Order struct {
	ID          uuid.UUID
	OrderNumber string
	CustomerID  uuid.UUID
	OrderType   OrderType
	Status      OrderStatus

	ProductKind ProductKind
	ProductID   *uuid.UUID
	LeaseKind   LeaseKind
	LeaseID     *uuid.UUID

	Price         decimal.Decimal
	TaxPercentage decimal.Decimal

	DueDate *time.Time
	Comment string

	CustomerFirstName string
	CustomerLastName  string
	CustomerEmail     string
	CustomerPhone     string
	CustomerAddress   string
	CustomerZipCode   string
	CustomerCity      string

	PaymentNotificationSent *time.Time
	TalpaEcomID             string

	Lines []OrderLine

	CreatedAt time.Time
}

// PretaxPrice is the order base price without tax, rounded to 2 decimals.
func (o *Order) PretaxPrice() decimal.Decimal {
	return convertAfterTaxToPretax(o.Price, o.TaxPercentage)
}

// TotalPrice sums the base price and all order line prices.
func (o *Order) TotalPrice() decimal.Decimal {
	total := o.Price
	for _, line := range o.Lines {
		total = total.Add(line.Price)
	}
	return total.Round(2)
}

// FixedPriceTotal sums the base price and the fixed-service line prices only.
// Optional services are excluded from the percentage-product base.
func (o *Order) FixedPriceTotal() decimal.Decimal {
	total := o.Price
	for _, line := range o.Lines {
		if line.Product != nil && line.Product.ProductType() == AdditionalProductTypeFixedService {
			total = total.Add(line.Price)
		}
	}
	return total.Round(2)
}

// TotalPretaxPrice sums the pretax base price and all pretax line prices.
func (o *Order) TotalPretaxPrice() decimal.Decimal {
	total := o.PretaxPrice()
	for _, line := range o.Lines {
		total = total.Add(line.PretaxPrice())
	}
	return total.Round(2)
}

// TotalTaxPercentage derives the aggregate tax ratio of the whole order,
// rounded to the nearest 0.05.
func (o *Order) TotalTaxPercentage() decimal.Decimal {
	pretax := o.TotalPretaxPrice()
	if pretax.IsZero() {
		return decimal.Zero
	}
	ratio := o.TotalPrice().Sub(pretax).Div(pretax).Mul(decimal.NewFromInt(100))
	return roundToNearest(ratio, decimal.RequireFromString("0.05"))
}

// HasCustomerInformation reports whether the contact snapshot has been taken.
func (o *Order) HasCustomerInformation() bool {
	return o.CustomerFirstName != "" || o.CustomerLastName != "" || o.CustomerEmail != ""
}

// OrderLine is a single additional product billed on an order. Its price is
// fixed at creation time and is not recomputed on later order saves.
type OrderLine struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	ProductID     uuid.UUID
	Product       *AdditionalProduct
	Quantity      int
	Price         decimal.Decimal
	TaxPercentage decimal.Decimal
	CreatedAt     time.Time
}

// PretaxPrice is the line price without tax, rounded to 2 decimals.
func (l *OrderLine) PretaxPrice() decimal.Decimal {
	return convertAfterTaxToPretax(l.Price, l.TaxPercentage)
}

// OrderLogEntry is one row of the append-only status audit trail.
type OrderLogEntry struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	FromStatus OrderStatus
	ToStatus   OrderStatus
	Comment    string
	CreatedAt  time.Time
}

// OrderToken is an idempotency token for one external payment session.
// At most one valid token may exist per order at a time.
type OrderToken struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Token      string
	ValidUntil time.Time
	Cancelled  bool
	CreatedAt  time.Time
}

// IsValid reports whether the token can still open the payment session.
func (t *OrderToken) IsValid(now time.Time) bool {
	return !t.Cancelled && t.Token != "" && now.Before(t.ValidUntil)
}

// OrderRefundStatus is the refund state machine: pending -> accepted|rejected.
type OrderRefundStatus string

const (
	OrderRefundStatusPending  OrderRefundStatus = "pending"
	OrderRefundStatusAccepted OrderRefundStatus = "accepted"
	OrderRefundStatusRejected OrderRefundStatus = "rejected"
)

// ValidRefundStatusTransition reports whether from -> to is allowed.
func ValidRefundStatusTransition(from, to OrderRefundStatus) bool {
	if from != OrderRefundStatusPending {
		return false
	}
	return to == OrderRefundStatusAccepted || to == OrderRefundStatusRejected
}

// OrderRefund belongs to one paid order. Partial refunds are not modelled:
// the amount always equals the order total price.
type OrderRefund struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	RefundID  string
	Status    OrderRefundStatus
	Amount    decimal.Decimal
	CreatedAt time.Time
}

// OrderRefundLogEntry is one row of the append-only refund audit trail.
type OrderRefundLogEntry struct {
	ID         uuid.UUID
	RefundID   uuid.UUID
	FromStatus OrderRefundStatus
	ToStatus   OrderRefundStatus
	Comment    string
	CreatedAt  time.Time
}

var orderNumberEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateOrderNumber returns a short unique human-typable order number.
func GenerateOrderNumber() string {
	t := uint64(time.Now().UnixMicro()) * uint64(1+rand.Intn(999))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], t)
	trimmed := buf[:]
	for len(trimmed) > 1 && trimmed[0] == 0 {
		trimmed = trimmed[1:]
	}
	return strings.ToLower(orderNumberEncoding.EncodeToString(trimmed))
}

func convertAfterTaxToPretax(price, taxPercentage decimal.Decimal) decimal.Decimal {
	divisor := decimal.NewFromInt(1).Add(taxPercentage.Div(decimal.NewFromInt(100)))
	return price.Div(divisor).Round(2)
}

func roundToNearest(value, nearest decimal.Decimal) decimal.Decimal {
	return value.Div(nearest).Round(0).Mul(nearest)
}
