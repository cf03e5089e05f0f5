package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rookgm/marinapay/internal/logger"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/notification"
	"github.com/rookgm/marinapay/internal/pricing"
	"github.com/rookgm/marinapay/internal/season"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OrderRepository is interface for interacting with order-related data
type OrderRepository interface {
	// CreateOrder inserts new order to database
	CreateOrder(ctx context.Context, order *models.Order) error
	// GetOrderByID returns order with its lines
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	// GetOrderByNumber returns order by number
	GetOrderByNumber(ctx context.Context, number string) (*models.Order, error)
	// GetOrderByTalpaID returns order by provider correlation id
	GetOrderByTalpaID(ctx context.Context, talpaID string) (*models.Order, error)
	// ListWaitingPastDue returns unpaid orders past their due date
	ListWaitingPastDue(ctx context.Context, now time.Time) ([]models.Order, error)
	// ListFailedLeaseOrders returns errored lease orders of a season
	ListFailedLeaseOrders(ctx context.Context, kind models.LeaseKind, seasonYear int) ([]models.Order, error)
	// LatestPaidLeaseOrder returns the newest settled lease order
	LatestPaidLeaseOrder(ctx context.Context, leaseID uuid.UUID) (*models.Order, error)
	// UpdateOrderStatus persists a new order status
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) error
	// UpdateOrderDueDate persists the order due date
	UpdateOrderDueDate(ctx context.Context, id uuid.UUID, dueDate *time.Time) error
	// UpdateOrderTalpaID stores the provider correlation id
	UpdateOrderTalpaID(ctx context.Context, id uuid.UUID, talpaID string) error
	// UpdateOrderCustomerInfo persists the contact snapshot
	UpdateOrderCustomerInfo(ctx context.Context, order *models.Order) error
	// MarkPaymentNotificationSent records the send time
	MarkPaymentNotificationSent(ctx context.Context, id uuid.UUID, at time.Time) error
	// CreateOrderLine inserts a new order line
	CreateOrderLine(ctx context.Context, line *models.OrderLine) error
	// CreateLogEntry appends to the status audit trail
	CreateLogEntry(ctx context.Context, entry *models.OrderLogEntry) error
	// CreateToken stores a payment session token
	CreateToken(ctx context.Context, token *models.OrderToken) error
	// GetValidToken returns the live token, if any
	GetValidToken(ctx context.Context, orderID uuid.UUID, now time.Time) (*models.OrderToken, error)
	// GetLatestToken returns the newest token regardless of validity
	GetLatestToken(ctx context.Context, orderID uuid.UUID) (*models.OrderToken, error)
	// InvalidateTokens cancels every token of the order
	InvalidateTokens(ctx context.Context, orderID uuid.UUID) error
}

// LeaseRepository is interface for interacting with lease-related data
type LeaseRepository interface {
	// CreateLease inserts new lease to database
	CreateLease(ctx context.Context, lease *models.Lease) error
	// GetLease returns lease by id within a kind
	GetLease(ctx context.Context, kind models.LeaseKind, id uuid.UUID) (*models.Lease, error)
	// ListRenewableLeases returns leases eligible for renewal
	ListRenewableLeases(ctx context.Context, kind models.LeaseKind, seasonYear int) ([]models.Lease, error)
	// UpdateLeaseStatus persists a new lease status
	UpdateLeaseStatus(ctx context.Context, id uuid.UUID, status models.LeaseStatus) error
	// AppendLeaseComment adds a line to the lease comment trail
	AppendLeaseComment(ctx context.Context, id uuid.UUID, comment string) error
	// SetStickerNumber stores the assigned sticker number
	SetStickerNumber(ctx context.Context, id uuid.UUID, number int) error
	// UpdateApplicationStatus persists a new application status
	UpdateApplicationStatus(ctx context.Context, id uuid.UUID, status models.ApplicationStatus) error
}

// ProductRepository is interface for interacting with the product catalogs
type ProductRepository interface {
	// BerthProductForWidth resolves the berth product for a width
	BerthProductForWidth(ctx context.Context, width decimal.Decimal, harborID *uuid.UUID) (*models.BerthProduct, error)
	// WinterStorageProductForArea returns the product priced for an area
	WinterStorageProductForArea(ctx context.Context, areaID uuid.UUID) (*models.WinterStorageProduct, error)
	// AdditionalProduct returns the product for a service and period
	AdditionalProduct(ctx context.Context, service models.ProductServiceType, period models.PeriodType) (*models.AdditionalProduct, error)
}

// RefundRepository is interface for interacting with refund-related data
type RefundRepository interface {
	// CreateRefund inserts new refund to database
	CreateRefund(ctx context.Context, refund *models.OrderRefund) error
	// GetRefundByProviderID returns refund by provider refund id
	GetRefundByProviderID(ctx context.Context, refundID string) (*models.OrderRefund, error)
	// ListRefundsByOrder returns the refunds of an order, oldest first
	ListRefundsByOrder(ctx context.Context, orderID uuid.UUID) ([]models.OrderRefund, error)
	// UpdateRefundStatus persists a new refund status
	UpdateRefundStatus(ctx context.Context, id uuid.UUID, status models.OrderRefundStatus) error
	// CreateRefundLogEntry appends to the refund audit trail
	CreateRefundLogEntry(ctx context.Context, entry *models.OrderRefundLogEntry) error
}

// StickerRepository hands out winter storage sticker numbers.
type StickerRepository interface {
	// NextStickerNumber returns the next number of the season sequence
	NextStickerNumber(ctx context.Context, season string) (int, error)
}

// Notifier delivers templated messages to customers and admins.
type Notifier interface {
	Send(ctx context.Context, msg notification.Message) error
}

// Payment session tokens stay strictly inside the provider's 7 day cap.
const tokenValidDays = 6

// OrderService drives orders through the status machine with all of its
// side effects, and owns order creation and payment session bookkeeping.
type OrderService struct {
	orders   OrderRepository
	leases   LeaseRepository
	products ProductRepository
	refunds  RefundRepository
	stickers StickerRepository
	notifier Notifier

	// payment UI base, the order number is appended per notification
	paymentURL string

	now func() time.Time
}

// NewOrderService creates new OrderService instance
func NewOrderService(
	orders OrderRepository,
	leases LeaseRepository,
	products ProductRepository,
	refunds RefundRepository,
	stickers StickerRepository,
	notifier Notifier,
	paymentURL string,
) *OrderService {
	return &OrderService{
		orders:     orders,
		leases:     leases,
		products:   products,
		refunds:    refunds,
		stickers:   stickers,
		notifier:   notifier,
		paymentURL: paymentURL,
		now:        time.Now,
	}
}

// SetStatus performs one guarded status transition with its side effects:
// persist, lease status propagation, sticker assignment, application status
// mapping and an audit log entry. Setting the current status again is a
// no-op so duplicate webhook deliveries stay harmless.
func (os *OrderService) SetStatus(ctx context.Context, order *models.Order, to models.OrderStatus, comment string) error {
	if order.Status == to {
		return nil
	}
	if !models.ValidOrderStatusTransition(order.Status, to) {
		return &models.OrderStatusTransitionError{
			OrderNumber: order.OrderNumber,
			From:        order.Status,
			To:          to,
		}
	}

	from := order.Status

	if err := os.orders.UpdateOrderStatus(ctx, order.ID, to); err != nil {
		return err
	}
	order.Status = to

	if order.OrderType == models.OrderTypeLeaseOrder && order.LeaseID != nil {
		if err := os.propagateToLease(ctx, order, to, comment); err != nil {
			return err
		}
	}

	if isFinalStatus(to) {
		if err := os.orders.InvalidateTokens(ctx, order.ID); err != nil {
			return err
		}
	}

	return os.orders.CreateLogEntry(ctx, &models.OrderLogEntry{
		OrderID:    order.ID,
		FromStatus: from,
		ToStatus:   to,
		Comment:    comment,
	})
}

// isFinalStatus reports whether payment sessions are pointless afterwards.
func isFinalStatus(s models.OrderStatus) bool {
	switch s {
	case models.OrderStatusPaid, models.OrderStatusPaidManually,
		models.OrderStatusRejected, models.OrderStatusExpired,
		models.OrderStatusCancelled, models.OrderStatusRefunded:
		return true
	}
	return false
}

func (os *OrderService) propagateToLease(ctx context.Context, order *models.Order, to models.OrderStatus, comment string) error {
	lease, err := os.leases.GetLease(ctx, order.LeaseKind, *order.LeaseID)
	if err != nil {
		return err
	}

	if leaseStatus, ok := models.LeaseStatusFor(to); ok {
		if err := os.leases.UpdateLeaseStatus(ctx, lease.ID, leaseStatus); err != nil {
			return err
		}
	}

	// the lease keeps a trail of what went wrong, never overwritten
	if to == models.OrderStatusError && comment != "" {
		line := os.now().UTC().Format("2006-01-02 15:04:05") + ": " + comment
		if err := os.leases.AppendLeaseComment(ctx, lease.ID, line); err != nil {
			return err
		}
	}

	if models.IsPaidStatus(to) &&
		lease.Kind == models.LeaseKindWinterStorage &&
		lease.IsUnmarked && lease.StickerNumber == nil {
		number, err := os.stickers.NextStickerNumber(ctx, season.StickerSeason(lease.StartDate))
		if err != nil {
			return err
		}
		if err := os.leases.SetStickerNumber(ctx, lease.ID, number); err != nil {
			return err
		}
		lease.StickerNumber = &number
	}

	if lease.ApplicationID != nil {
		if appStatus, ok := models.ApplicationStatusFor(to); ok {
			if err := os.leases.UpdateApplicationStatus(ctx, *lease.ApplicationID, appStatus); err != nil {
				return err
			}
		}
	}

	return nil
}

// CreateLeaseOrder creates a drafted order for the lease: product resolved
// by kind, price and tax computed for the customer, and for berth leases the
// fixed service lines billed on top.
func (os *OrderService) CreateLeaseOrder(ctx context.Context, lease *models.Lease, customer *models.CustomerProfile) (*models.Order, error) {
	order := &models.Order{
		CustomerID:  lease.CustomerID,
		OrderType:   models.OrderTypeLeaseOrder,
		Status:      models.OrderStatusDrafted,
		LeaseKind:   lease.Kind,
		LeaseID:     &lease.ID,
		ProductKind: models.ProductKind(lease.Kind),
	}

	switch lease.Kind {
	case models.LeaseKindBerth:
		product, err := os.products.BerthProductForWidth(ctx, lease.BerthWidth, lease.HarborID)
		if err != nil {
			return nil, err
		}
		order.ProductID = &product.ID
		order.Price, order.TaxPercentage = pricing.BerthOrderPrice(product, customer.OrganizationType)

	case models.LeaseKindWinterStorage:
		if lease.AreaID == nil {
			return nil, models.ErrNoMatchingProduct
		}
		product, err := os.products.WinterStorageProductForArea(ctx, *lease.AreaID)
		if err != nil {
			return nil, err
		}
		order.ProductID = &product.ID
		order.Price, order.TaxPercentage, err = pricing.WinterStorageOrderPrice(product, lease, customer.OrganizationType)
		if err != nil {
			return nil, err
		}

	default:
		return nil, models.ErrProductLeaseMismatch
	}

	if err := os.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	if lease.Kind == models.LeaseKindBerth {
		if err := os.createFixedServiceLines(ctx, order, lease, customer); err != nil {
			return nil, err
		}
	}

	return order, nil
}

// createFixedServiceLines bills the fixed services included with a berth
// lease. A service without a catalog entry is simply not billed.
func (os *OrderService) createFixedServiceLines(ctx context.Context, order *models.Order, lease *models.Lease, customer *models.CustomerProfile) error {
	for _, service := range models.FixedServices() {
		product, err := os.products.AdditionalProduct(ctx, service, models.PeriodTypeSeason)
		if err != nil {
			if errors.Is(err, models.ErrNoMatchingProduct) {
				continue
			}
			return err
		}

		price, tax := pricing.AdditionalLinePrice(product, order.Price, lease.StartDate, lease.EndDate, customer.OrganizationType)
		line := &models.OrderLine{
			OrderID:       order.ID,
			ProductID:     product.ID,
			Product:       product,
			Quantity:      1,
			Price:         price,
			TaxPercentage: tax,
		}
		if err := os.orders.CreateOrderLine(ctx, line); err != nil {
			return err
		}
		order.Lines = append(order.Lines, *line)
	}
	return nil
}

// CreateAdditionalProductOrder sells an optional service on top of a paid
// lease. Percentage products are computed against the fixed-price total of
// the lease's most recent settled order.
func (os *OrderService) CreateAdditionalProductOrder(ctx context.Context, lease *models.Lease, customer *models.CustomerProfile, product *models.AdditionalProduct) (*models.Order, error) {
	if product.ProductType() != models.AdditionalProductTypeOptionalService {
		return nil, models.ErrProductLeaseMismatch
	}
	if lease.Status != models.LeaseStatusPaid {
		return nil, models.ErrLeaseNotPaid
	}

	base := decimal.Zero
	if product.PriceUnit == models.PriceUnitPercentage {
		last, err := os.orders.LatestPaidLeaseOrder(ctx, lease.ID)
		if err != nil {
			return nil, err
		}
		base = last.FixedPriceTotal()
	}

	price, tax := pricing.AdditionalLinePrice(product, base, lease.StartDate, lease.EndDate, customer.OrganizationType)

	order := &models.Order{
		CustomerID: lease.CustomerID,
		OrderType:  models.OrderTypeAdditionalProductOrder,
		Status:     models.OrderStatusDrafted,
		LeaseKind:  lease.Kind,
		LeaseID:    &lease.ID,
	}
	if err := os.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	line := &models.OrderLine{
		OrderID:       order.ID,
		ProductID:     product.ID,
		Product:       product,
		Quantity:      1,
		Price:         price,
		TaxPercentage: tax,
	}
	if err := os.orders.CreateOrderLine(ctx, line); err != nil {
		return nil, err
	}
	order.Lines = append(order.Lines, *line)

	return order, nil
}

// ApproveOrder snapshots the customer contact data onto the order, sets the
// due date, moves the order to offered and sends the payment request.
// Non-billable customers are settled manually and skip the payment flow.
func (os *OrderService) ApproveOrder(ctx context.Context, order *models.Order, profile *models.CustomerProfile, dueDate time.Time) error {
	if !deliverableEmail(profile.Email) {
		return models.ErrMissingCustomerEmail
	}

	order.CustomerFirstName = profile.FirstName
	order.CustomerLastName = profile.LastName
	order.CustomerEmail = profile.Email
	order.CustomerPhone = profile.Phone
	order.CustomerAddress = profile.Address
	order.CustomerZipCode = profile.ZipCode
	order.CustomerCity = profile.City
	if err := os.orders.UpdateOrderCustomerInfo(ctx, order); err != nil {
		return err
	}

	if err := os.orders.UpdateOrderDueDate(ctx, order.ID, &dueDate); err != nil {
		return err
	}
	order.DueDate = &dueDate

	if profile.IsNonBillable() {
		return os.SetStatus(ctx, order, models.OrderStatusPaidManually, "non-billable customer")
	}

	if err := os.SetStatus(ctx, order, models.OrderStatusOffered, ""); err != nil {
		return err
	}

	return os.sendPaymentRequest(ctx, order, profile)
}

// ResendOrder refreshes the contact snapshot, resets the due date, moves a
// previously failed order back to offered and sends the payment request
// again.
func (os *OrderService) ResendOrder(ctx context.Context, order *models.Order, profile *models.CustomerProfile, dueDate time.Time) error {
	if !deliverableEmail(profile.Email) {
		return models.ErrMissingCustomerEmail
	}

	order.CustomerFirstName = profile.FirstName
	order.CustomerLastName = profile.LastName
	order.CustomerEmail = profile.Email
	order.CustomerPhone = profile.Phone
	order.CustomerAddress = profile.Address
	order.CustomerZipCode = profile.ZipCode
	order.CustomerCity = profile.City
	if err := os.orders.UpdateOrderCustomerInfo(ctx, order); err != nil {
		return err
	}

	if err := os.orders.UpdateOrderDueDate(ctx, order.ID, &dueDate); err != nil {
		return err
	}
	order.DueDate = &dueDate

	if err := os.SetStatus(ctx, order, models.OrderStatusOffered, "resent"); err != nil {
		return err
	}

	return os.sendPaymentRequest(ctx, order, profile)
}

func (os *OrderService) sendPaymentRequest(ctx context.Context, order *models.Order, profile *models.CustomerProfile) error {
	msgCtx := map[string]string{
		"order_number": order.OrderNumber,
		"payment_url":  os.paymentURL + "?order_number=" + order.OrderNumber,
	}
	if order.DueDate != nil {
		msgCtx["due_date"] = order.DueDate.Format("2006-01-02")
	}

	msg := notification.Message{
		Type:      approvalNotificationType(order),
		Context:   msgCtx,
		Recipient: order.CustomerEmail,
		Language:  profile.Language,
	}
	if err := os.notifier.Send(ctx, msg); err != nil {
		return err
	}

	return os.orders.MarkPaymentNotificationSent(ctx, order.ID, os.now())
}

func approvalNotificationType(order *models.Order) notification.Type {
	if order.OrderType == models.OrderTypeAdditionalProductOrder {
		return notification.TypeAdditionalProductApproved
	}
	if order.LeaseKind == models.LeaseKindWinterStorage {
		return notification.TypeWinterStorageOrderApproved
	}
	return notification.TypeBerthOrderApproved
}

// deliverableEmail rejects empty and placeholder addresses.
func deliverableEmail(email string) bool {
	return email != "" && !strings.HasSuffix(email, "@example.com")
}

// UpdateExpired expires every unpaid order whose due date has passed and
// returns the number of orders touched.
func (os *OrderService) UpdateExpired(ctx context.Context) (int, error) {
	orders, err := os.orders.ListWaitingPastDue(ctx, os.now())
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range orders {
		if err := os.SetStatus(ctx, &orders[i], models.OrderStatusExpired, "due date has passed"); err != nil {
			logger.Log.Error("expire order",
				zap.String("order_number", orders[i].OrderNumber), zap.Error(err))
			continue
		}
		expired++
	}

	return expired, nil
}

// ValidToken returns the live payment session token of the order.
// ErrDataNotFound means a new session must be opened.
func (os *OrderService) ValidToken(ctx context.Context, orderID uuid.UUID) (*models.OrderToken, error) {
	return os.orders.GetValidToken(ctx, orderID, os.now())
}

// LatestToken returns the newest token of the order regardless of validity.
func (os *OrderService) LatestToken(ctx context.Context, orderID uuid.UUID) (*models.OrderToken, error) {
	return os.orders.GetLatestToken(ctx, orderID)
}

// StoreToken invalidates every previous token of the order and stores the
// new provider token, valid until end of day six days out.
func (os *OrderService) StoreToken(ctx context.Context, orderID uuid.UUID, token string) (*models.OrderToken, error) {
	if err := os.orders.InvalidateTokens(ctx, orderID); err != nil {
		return nil, err
	}

	expiry := os.now().AddDate(0, 0, tokenValidDays)
	validUntil := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 23, 59, 59, 0, expiry.Location())

	orderToken := &models.OrderToken{
		OrderID:    orderID,
		Token:      token,
		ValidUntil: validUntil,
	}
	if err := os.orders.CreateToken(ctx, orderToken); err != nil {
		return nil, err
	}

	return orderToken, nil
}

// ValidateRefund checks that the order can be refunded: the order and its
// lease are both settled and no other refund is still pending. Providers run
// this before anything is sent out, so a doomed refund never reaches them.
func (os *OrderService) ValidateRefund(ctx context.Context, order *models.Order) error {
	if !models.IsPaidStatus(order.Status) {
		return models.ErrOrderNotPaid
	}
	if order.OrderType == models.OrderTypeLeaseOrder && order.LeaseID != nil {
		lease, err := os.leases.GetLease(ctx, order.LeaseKind, *order.LeaseID)
		if err != nil {
			return err
		}
		if lease.Status != models.LeaseStatusPaid {
			return models.ErrLeaseNotPaid
		}
	}

	refunds, err := os.refunds.ListRefundsByOrder(ctx, order.ID)
	if err != nil {
		return err
	}
	for i := range refunds {
		if refunds[i].Status == models.OrderRefundStatusPending {
			return models.ErrPendingRefund
		}
	}

	return nil
}

// CreateRefund records a pending refund over the order's full total.
func (os *OrderService) CreateRefund(ctx context.Context, order *models.Order, refundID string) (*models.OrderRefund, error) {
	if err := os.ValidateRefund(ctx, order); err != nil {
		return nil, err
	}

	refund := &models.OrderRefund{
		OrderID:  order.ID,
		RefundID: refundID,
		Status:   models.OrderRefundStatusPending,
		Amount:   order.TotalPrice(),
	}
	if err := os.refunds.CreateRefund(ctx, refund); err != nil {
		return nil, err
	}

	return refund, nil
}

// GetRefundByProviderID returns the refund keyed by the provider refund id.
func (os *OrderService) GetRefundByProviderID(ctx context.Context, refundID string) (*models.OrderRefund, error) {
	return os.refunds.GetRefundByProviderID(ctx, refundID)
}

// SetRefundStatus performs one refund transition with its audit entry.
// An accepted refund over the full order total drives the order to refunded
// and terminates its lease.
func (os *OrderService) SetRefundStatus(ctx context.Context, refund *models.OrderRefund, to models.OrderRefundStatus, comment string) error {
	if refund.Status == to {
		return nil
	}
	if !models.ValidRefundStatusTransition(refund.Status, to) {
		return &models.RefundStatusTransitionError{
			RefundID: refund.RefundID,
			From:     refund.Status,
			To:       to,
		}
	}

	from := refund.Status

	if err := os.refunds.UpdateRefundStatus(ctx, refund.ID, to); err != nil {
		return err
	}
	refund.Status = to

	if err := os.refunds.CreateRefundLogEntry(ctx, &models.OrderRefundLogEntry{
		RefundID:   refund.ID,
		FromStatus: from,
		ToStatus:   to,
		Comment:    comment,
	}); err != nil {
		return err
	}

	if to != models.OrderRefundStatusAccepted {
		return nil
	}

	order, err := os.orders.GetOrderByID(ctx, refund.OrderID)
	if err != nil {
		return err
	}
	if !refund.Amount.Equal(order.TotalPrice()) {
		return fmt.Errorf("refund %s amount %s does not cover order total %s",
			refund.RefundID, refund.Amount, order.TotalPrice())
	}

	if err := os.SetStatus(ctx, order, models.OrderStatusRefunded, comment); err != nil {
		return err
	}
	if order.OrderType == models.OrderTypeLeaseOrder && order.LeaseID != nil {
		if err := os.leases.UpdateLeaseStatus(ctx, *order.LeaseID, models.LeaseStatusTerminated); err != nil {
			return err
		}
	}

	return nil
}

// GetOrderByNumber returns the order with its lines.
func (os *OrderService) GetOrderByNumber(ctx context.Context, number string) (*models.Order, error) {
	return os.orders.GetOrderByNumber(ctx, number)
}

// GetOrderByTalpaID returns the order correlated with a Talpa order id.
func (os *OrderService) GetOrderByTalpaID(ctx context.Context, talpaID string) (*models.Order, error) {
	return os.orders.GetOrderByTalpaID(ctx, talpaID)
}

// SetTalpaID stores the provider correlation id on the order.
func (os *OrderService) SetTalpaID(ctx context.Context, order *models.Order, talpaID string) error {
	if err := os.orders.UpdateOrderTalpaID(ctx, order.ID, talpaID); err != nil {
		return err
	}
	order.TalpaEcomID = talpaID
	return nil
}
