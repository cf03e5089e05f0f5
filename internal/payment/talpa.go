package payment

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"

	"github.com/rookgm/marinapay/internal/logger"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Talpa eCom webhook event types.
const (
	TalpaEventPaymentPaid    = "PAYMENT_PAID"
	TalpaEventOrderCancelled = "ORDER_CANCELLED"
)

// Authoritative payment statuses reported by the payment details endpoint.
const (
	talpaStatusPaidOnline = "payment_paid_online"
	talpaStatusCancelled  = "payment_cancelled"
)

// The provider rejects free-form phone strings.
var talpaPhonePattern = regexp.MustCompile(`^\+?\d+$`)

// TalpaClient is the Talpa eCom adapter: REST order creation and a JSON
// webhook corroborated against the provider's own payment details endpoint.
// The checkout UI is fully hosted by the provider, so there is no success
// page handling here.
type TalpaClient struct {
	client *http.Client
	cfg    *Config
	orders OrderService
}

// NewTalpaClient creates new TalpaClient instance
func NewTalpaClient(cfg *Config, orders OrderService) *TalpaClient {
	return &TalpaClient{
		client: &http.Client{
			Timeout: requestTimeout,
		},
		cfg:    cfg,
		orders: orders,
	}
}

// userHash is a stable one-way hash of the customer identity. The raw
// customer id never leaves this service.
func userHash(customerID string) string {
	sum := sha256.Sum256([]byte(customerID))
	return hex.EncodeToString(sum[:])
}

type talpaCustomer struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone,omitempty"`
}

type talpaItem struct {
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	Quantity      int    `json:"quantity"`
	Unit          string `json:"unit"`
	RowPriceNet   string `json:"rowPriceNet"`
	RowPriceVat   string `json:"rowPriceVat"`
	RowPriceTotal string `json:"rowPriceTotal"`
	PriceNet      string `json:"priceNet"`
	PriceVat      string `json:"priceVat"`
	PriceGross    string `json:"priceGross"`
	VatPercentage string `json:"vatPercentage"`
}

type talpaOrderRequest struct {
	Namespace  string        `json:"namespace"`
	User       string        `json:"user"`
	Customer   talpaCustomer `json:"customer"`
	Items      []talpaItem   `json:"items"`
	PriceNet   string        `json:"priceNet"`
	PriceVat   string        `json:"priceVat"`
	PriceTotal string        `json:"priceTotal"`
}

type talpaOrderResponse struct {
	OrderID string `json:"orderId"`
}

// InitiatePayment creates a provider-side order and returns the hosted
// checkout URL, keyed by the opaque order id and the user hash.
func (tc *TalpaClient) InitiatePayment(ctx context.Context, order *models.Order) (string, error) {
	if order.Status == models.OrderStatusExpired {
		return "", ErrExpiredOrder
	}

	hash := userHash(order.CustomerID.String())

	payload := talpaOrderRequest{
		Namespace: tc.cfg.TalpaNamespace,
		User:      hash,
		Customer: talpaCustomer{
			FirstName: order.CustomerFirstName,
			LastName:  order.CustomerLastName,
			Email:     order.CustomerEmail,
			Phone:     filteredPhone(order.CustomerPhone),
		},
		Items:      talpaItems(order),
		PriceNet:   order.TotalPretaxPrice().String(),
		PriceVat:   order.TotalPrice().Sub(order.TotalPretaxPrice()).String(),
		PriceTotal: order.TotalPrice().String(),
	}

	u, err := url.JoinPath(tc.cfg.TalpaAPIURL, "order")
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("namespace", tc.cfg.TalpaNamespace)
	req.Header.Set("user", hash)

	resp, err := tc.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return "", ErrServiceUnavailable
	}

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", &PayloadValidationError{Reason: fmt.Sprintf("provider answered %d", resp.StatusCode)}
	default:
		return "", ErrServiceUnavailable
	}

	decoded := talpaOrderResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if decoded.OrderID == "" {
		return "", &PayloadValidationError{Reason: "provider returned no order id"}
	}

	if err := tc.orders.SetTalpaID(ctx, order, decoded.OrderID); err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s?user=%s", tc.cfg.TalpaCheckoutURL, decoded.OrderID, hash), nil
}

// filteredPhone drops phone values the provider would reject.
func filteredPhone(phone string) string {
	if talpaPhonePattern.MatchString(phone) {
		return phone
	}
	return ""
}

func talpaItems(order *models.Order) []talpaItem {
	items := []talpaItem{}

	if !order.Price.IsZero() {
		items = append(items, itemFor(order.OrderNumber, string(order.ProductKind),
			order.Price, order.PretaxPrice(), order.TaxPercentage))
	}
	for _, line := range order.Lines {
		name := ""
		if line.Product != nil {
			name = line.Product.Name()
		}
		items = append(items, itemFor(line.ID.String(), name,
			line.Price, line.PretaxPrice(), line.TaxPercentage))
	}

	return items
}

func itemFor(id, name string, gross, net, vatPercentage decimal.Decimal) talpaItem {
	vat := gross.Sub(net)
	return talpaItem{
		ProductID:     id,
		ProductName:   name,
		Quantity:      1,
		Unit:          "pcs",
		RowPriceNet:   net.String(),
		RowPriceVat:   vat.String(),
		RowPriceTotal: gross.String(),
		PriceNet:      net.String(),
		PriceVat:      vat.String(),
		PriceGross:    gross.String(),
		VatPercentage: vatPercentage.String(),
	}
}

// InitiateRefund is not offered by the Talpa integration: refunds are
// handled out of band in the provider's back office.
func (tc *TalpaClient) InitiateRefund(ctx context.Context, order *models.Order) (*models.OrderRefund, error) {
	return nil, &PayloadValidationError{Reason: "refunds are not supported by this provider"}
}

// WebhookPayload is the Talpa notify body.
type WebhookPayload struct {
	OrderID   string `json:"orderId"`
	Namespace string `json:"namespace"`
	EventType string `json:"eventType"`
	PaymentID string `json:"paymentId"`
	Timestamp string `json:"timestamp"`
}

type talpaPaymentDetails struct {
	Status string `json:"status"`
}

// HandleNotify verifies and applies one webhook event. The event is only
// trusted after the provider's own payment details endpoint confirms the
// same outcome; a contradicting webhook is rejected as invalid.
func (tc *TalpaClient) HandleNotify(ctx context.Context, payload *WebhookPayload) error {
	if payload.Namespace != tc.cfg.TalpaNamespace {
		return &PayloadValidationError{Reason: "unknown namespace"}
	}
	if payload.EventType != TalpaEventPaymentPaid && payload.EventType != TalpaEventOrderCancelled {
		return &UnknownWebhookEventError{Event: payload.EventType}
	}
	if payload.OrderID == "" {
		return ErrMissingOrderID
	}

	order, err := tc.orders.GetOrderByTalpaID(ctx, payload.OrderID)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return ErrMissingOrderID
		}
		return err
	}

	details, err := tc.paymentDetails(ctx, payload.OrderID)
	if err != nil {
		return err
	}

	switch payload.EventType {
	case TalpaEventPaymentPaid:
		if details.Status != talpaStatusPaidOnline {
			logger.Log.Warn("talpa webhook contradicts payment details",
				zap.String("order_id", payload.OrderID),
				zap.String("event_type", payload.EventType),
				zap.String("payment_status", details.Status))
			return &PayloadValidationError{Reason: "event type contradicts payment status"}
		}
		if models.IsPaidStatus(order.Status) {
			return nil
		}
		return tc.orders.SetStatus(ctx, order, models.OrderStatusPaid, "")

	case TalpaEventOrderCancelled:
		if details.Status != talpaStatusCancelled {
			logger.Log.Warn("talpa webhook contradicts payment details",
				zap.String("order_id", payload.OrderID),
				zap.String("event_type", payload.EventType),
				zap.String("payment_status", details.Status))
			return &PayloadValidationError{Reason: "event type contradicts payment status"}
		}
		if order.Status == models.OrderStatusCancelled {
			return nil
		}
		return tc.orders.SetStatus(ctx, order, models.OrderStatusCancelled, "")
	}

	return nil
}

// paymentDetails fetches the authoritative payment status for an order.
func (tc *TalpaClient) paymentDetails(ctx context.Context, orderID string) (*talpaPaymentDetails, error) {
	u, err := url.JoinPath(tc.cfg.TalpaAPIURL, "payment", "admin", orderID)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-key", tc.cfg.TalpaAPIKey)
	req.Header.Set("namespace", tc.cfg.TalpaNamespace)

	resp, err := tc.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, ErrServiceUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return nil, ErrServiceUnavailable
	}

	details := talpaPaymentDetails{}
	if err := json.NewDecoder(resp.Body).Decode(&details); err != nil {
		return nil, err
	}

	return &details, nil
}
