package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/rookgm/marinapay/internal/logger"
	"github.com/rookgm/marinapay/internal/models"
	"github.com/rookgm/marinapay/internal/pricing"
	"go.uber.org/zap"
)

// Bambora Payform return codes.
const (
	bamboraCodePaid          = "0"
	bamboraCodeFailed        = "1"
	bamboraCodeDuplicate     = "2"
	bamboraCodeStatusUpdated = "4"
	bamboraCodeMaintenance   = "10"
)

const bamboraAPIVersion = "w3.1"

// BamboraClient is the Bambora Payform adapter: HMAC-signed session
// issuance and GET webhooks for success, notify and refund notify.
type BamboraClient struct {
	client *http.Client
	cfg    *Config
	orders OrderService
}

// NewBamboraClient creates new BamboraClient instance
func NewBamboraClient(cfg *Config, orders OrderService) *BamboraClient {
	return &BamboraClient{
		client: &http.Client{
			Timeout: requestTimeout,
		},
		cfg:    cfg,
		orders: orders,
	}
}

// authCode signs the pipe-joined fields with HMAC-SHA256, hex uppercase.
// Every field given is signed, empty ones included as empty segments.
func (bc *BamboraClient) authCode(fields ...string) string {
	mac := hmac.New(sha256.New, []byte(bc.cfg.BamboraAPISecret))
	mac.Write([]byte(strings.Join(fields, "|")))
	return strings.ToUpper(hex.EncodeToString(mac.Sum(nil)))
}

func (bc *BamboraClient) verifyAuthCode(received string, fields ...string) bool {
	expected := bc.authCode(fields...)
	return hmac.Equal([]byte(expected), []byte(strings.ToUpper(received)))
}

// signedQueryFields collects the webhook parameters the provider signed, in
// signing order. Present-but-empty parameters stay in as empty segments;
// only absent ones are left out.
func signedQueryFields(query url.Values, keys ...string) []string {
	fields := make([]string, 0, len(keys))
	for _, key := range keys {
		if query.Has(key) {
			fields = append(fields, query.Get(key))
		}
	}
	return fields
}

type bamboraPaymentMethod struct {
	Type      string   `json:"type"`
	ReturnURL string   `json:"return_url"`
	NotifyURL string   `json:"notify_url"`
	Selected  []string `json:"selected,omitempty"`
}

type bamboraCustomer struct {
	FirstName     string `json:"firstname"`
	LastName      string `json:"lastname"`
	Email         string `json:"email"`
	AddressStreet string `json:"address_street"`
	AddressZip    string `json:"address_zip"`
	AddressCity   string `json:"address_city"`
}

type bamboraProduct struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Count       int    `json:"count"`
	PretaxPrice int64  `json:"pretax_price"`
	Tax         int64  `json:"tax"`
	Price       int64  `json:"price"`
	Type        int    `json:"type"`
}

type bamboraAuthRequest struct {
	Version       string               `json:"version"`
	APIKey        string               `json:"api_key"`
	PaymentMethod bamboraPaymentMethod `json:"payment_method"`
	Currency      string               `json:"currency"`
	Amount        int64                `json:"amount"`
	OrderNumber   string               `json:"order_number"`
	AuthCode      string               `json:"authcode"`
	Customer      bamboraCustomer      `json:"customer"`
	Products      []bamboraProduct     `json:"products"`
}

type bamboraAuthResponse struct {
	Result int    `json:"result"`
	Token  string `json:"token"`
	Type   string `json:"type"`
}

// InitiatePayment opens a Bambora payment session for the order and returns
// the hosted payment page URL. An order with a live token reuses its open
// session instead of minting a second one.
func (bc *BamboraClient) InitiatePayment(ctx context.Context, order *models.Order) (string, error) {
	if order.Status == models.OrderStatusExpired {
		return "", ErrExpiredOrder
	}

	if token, err := bc.orders.ValidToken(ctx, order.ID); err == nil {
		return bc.paymentURL(token.Token), nil
	} else if !errors.Is(err, models.ErrDataNotFound) {
		return "", err
	}

	payload := bamboraAuthRequest{
		Version: bamboraAPIVersion,
		APIKey:  bc.cfg.BamboraAPIKey,
		PaymentMethod: bamboraPaymentMethod{
			Type:      "e-payment",
			ReturnURL: bc.cfg.PublicBaseURL + "/payments/bambora/success",
			NotifyURL: bc.cfg.PublicBaseURL + "/payments/bambora/notify",
			Selected:  bc.cfg.BamboraPaymentMethods,
		},
		Currency:    "EUR",
		Amount:      pricing.AsFractionalInt(order.TotalPrice()),
		OrderNumber: order.OrderNumber,
		AuthCode:    bc.authCode(bc.cfg.BamboraAPIKey, order.OrderNumber),
		Customer: bamboraCustomer{
			FirstName:     order.CustomerFirstName,
			LastName:      order.CustomerLastName,
			Email:         order.CustomerEmail,
			AddressStreet: order.CustomerAddress,
			AddressZip:    order.CustomerZipCode,
			AddressCity:   order.CustomerCity,
		},
		Products: bamboraProducts(order),
	}

	resp := bamboraAuthResponse{}
	if err := bc.post(ctx, "auth_payment", payload, &resp); err != nil {
		return "", err
	}

	switch resp.Result {
	case 0:
	case 1:
		return "", &PayloadValidationError{Reason: "provider rejected the payment payload"}
	case 2:
		return "", ErrDuplicateOrder
	case 10:
		return "", ErrServiceUnavailable
	default:
		return "", &UnknownReturnCodeError{Code: fmt.Sprint(resp.Result)}
	}

	token, err := bc.orders.StoreToken(ctx, order.ID, resp.Token)
	if err != nil {
		return "", err
	}

	return bc.paymentURL(token.Token), nil
}

// bamboraProducts renders the order and its lines as provider line items
// with amounts in minor currency units.
func bamboraProducts(order *models.Order) []bamboraProduct {
	products := []bamboraProduct{}

	if !order.Price.IsZero() {
		products = append(products, bamboraProduct{
			ID:          order.OrderNumber,
			Title:       string(order.ProductKind),
			Count:       1,
			PretaxPrice: pricing.AsFractionalInt(order.PretaxPrice()),
			Tax:         pricing.AsFractionalInt(order.Price.Sub(order.PretaxPrice())),
			Price:       pricing.AsFractionalInt(order.Price),
			Type:        1,
		})
	}

	for _, line := range order.Lines {
		title := ""
		if line.Product != nil {
			title = line.Product.Name()
		}
		products = append(products, bamboraProduct{
			ID:          line.ID.String(),
			Title:       title,
			Count:       line.Quantity,
			PretaxPrice: pricing.AsFractionalInt(line.PretaxPrice()),
			Tax:         pricing.AsFractionalInt(line.Price.Sub(line.PretaxPrice())),
			Price:       pricing.AsFractionalInt(line.Price),
			Type:        1,
		})
	}

	return products
}

func (bc *BamboraClient) paymentURL(token string) string {
	return bc.cfg.BamboraAPIURL + "/token/" + token
}

func (bc *BamboraClient) post(ctx context.Context, endpoint string, payload, out any) error {
	u, err := url.JoinPath(bc.cfg.BamboraAPIURL, endpoint)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := bc.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return ErrServiceUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		return ErrServiceUnavailable
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// SuccessOutcome is the result of a success-page return, rendered by the
// handler as a UI redirect.
type SuccessOutcome struct {
	OrderNumber string
	Paid        bool
}

// RedirectURL builds the UI landing URL with the payment outcome appended.
func (o *SuccessOutcome) RedirectURL(uiReturnURL string) string {
	status := "failure"
	if o.Paid {
		status = "success"
	}

	sep := "?"
	if strings.Contains(uiReturnURL, "?") {
		sep = "&"
	}
	return uiReturnURL + sep + "payment_status=" + status + "&order_number=" + url.QueryEscape(o.OrderNumber)
}

// HandleSuccess processes the payer's browser return. The authcode is
// verified before any field is trusted; an already-paid order is fine.
func (bc *BamboraClient) HandleSuccess(ctx context.Context, query url.Values) (*SuccessOutcome, error) {
	returnCode := query.Get("RETURN_CODE")
	orderNumber := query.Get("ORDER_NUMBER")

	fields := signedQueryFields(query,
		"RETURN_CODE", "ORDER_NUMBER", "SETTLED", "CONTACT_ID", "INCIDENT_ID")
	if !bc.verifyAuthCode(query.Get("AUTHCODE"), fields...) {
		logger.Log.Warn("bambora success authcode mismatch", zap.String("order_number", orderNumber))
		return nil, &PayloadValidationError{Reason: "invalid authcode"}
	}

	outcome := &SuccessOutcome{OrderNumber: orderNumber}

	order, err := bc.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return nil, ErrMissingOrderID
		}
		return nil, err
	}

	switch returnCode {
	case bamboraCodePaid:
		if err := bc.markPaid(ctx, order); err != nil {
			return nil, err
		}
		outcome.Paid = true
		return outcome, nil
	case bamboraCodeFailed:
		// payer can retry, the order keeps its status
		return outcome, nil
	case bamboraCodeStatusUpdated:
		logger.Log.Warn("bambora reports order status could not be updated",
			zap.String("order_number", orderNumber))
		return outcome, nil
	case bamboraCodeMaintenance:
		return nil, ErrServiceUnavailable
	default:
		return nil, &UnknownReturnCodeError{Code: returnCode}
	}
}

// HandleNotify processes the asynchronous provider callback. Errors are
// logged and swallowed into the returned error only for the caller's logs;
// the HTTP layer always acknowledges.
func (bc *BamboraClient) HandleNotify(ctx context.Context, query url.Values) error {
	returnCode := query.Get("RETURN_CODE")
	orderNumber := query.Get("ORDER_NUMBER")

	fields := signedQueryFields(query,
		"RETURN_CODE", "ORDER_NUMBER", "SETTLED", "CONTACT_ID", "INCIDENT_ID")
	if !bc.verifyAuthCode(query.Get("AUTHCODE"), fields...) {
		logger.Log.Warn("bambora notify authcode mismatch", zap.String("order_number", orderNumber))
		return &PayloadValidationError{Reason: "invalid authcode"}
	}

	order, err := bc.orders.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return ErrMissingOrderID
		}
		return err
	}

	switch returnCode {
	case bamboraCodePaid:
		return bc.markPaid(ctx, order)
	case bamboraCodeFailed:
		return nil
	case bamboraCodeStatusUpdated:
		logger.Log.Warn("bambora reports order status could not be updated",
			zap.String("order_number", orderNumber))
		return nil
	case bamboraCodeMaintenance:
		return ErrServiceUnavailable
	default:
		return &UnknownReturnCodeError{Code: returnCode}
	}
}

// markPaid transitions the order to paid, tolerating duplicate delivery.
func (bc *BamboraClient) markPaid(ctx context.Context, order *models.Order) error {
	if models.IsPaidStatus(order.Status) {
		return nil
	}
	return bc.orders.SetStatus(ctx, order, models.OrderStatusPaid, "")
}

type bamboraRefundRequest struct {
	Version     string `json:"version"`
	APIKey      string `json:"api_key"`
	OrderNumber string `json:"order_number"`
	Email       string `json:"email"`
	Amount      int64  `json:"amount"`
	AuthCode    string `json:"authcode"`
	NotifyURL   string `json:"notify_url"`
}

type bamboraRefundResponse struct {
	Result   int   `json:"result"`
	RefundID int64 `json:"refund_id"`
}

type bamboraPaymentQuery struct {
	Version     string `json:"version"`
	APIKey      string `json:"api_key"`
	OrderNumber string `json:"order_number"`
	AuthCode    string `json:"authcode"`
}

type bamboraPaymentDetails struct {
	Result int   `json:"result"`
	Amount int64 `json:"amount"`
}

// InitiateRefund asks the provider to refund the order in full. The refund
// order number carries the timestamp of the settled payment session, so the
// provider can match it to the original payment. Every guard runs before
// anything is sent to the provider: a refund that must be rejected never
// reaches it.
func (bc *BamboraClient) InitiateRefund(ctx context.Context, order *models.Order) (*models.OrderRefund, error) {
	if err := bc.orders.ValidateRefund(ctx, order); err != nil {
		return nil, err
	}

	if _, err := bc.orders.ValidToken(ctx, order.ID); err == nil {
		return nil, ErrActiveToken
	} else if !errors.Is(err, models.ErrDataNotFound) {
		return nil, err
	}

	token, err := bc.orders.LatestToken(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	refundOrderNumber := fmt.Sprintf("%s-%d", order.OrderNumber, token.CreatedAt.Unix())

	amount := pricing.AsFractionalInt(order.TotalPrice())
	settled, err := bc.getPayment(ctx, refundOrderNumber)
	if err != nil {
		return nil, err
	}
	if settled.Amount != amount {
		return nil, fmt.Errorf("%w: paid %d, refunding %d", ErrRefundPrice, settled.Amount, amount)
	}

	payload := bamboraRefundRequest{
		Version:     bamboraAPIVersion,
		APIKey:      bc.cfg.BamboraAPIKey,
		OrderNumber: refundOrderNumber,
		Email:       order.CustomerEmail,
		Amount:      amount,
		AuthCode:    bc.authCode(bc.cfg.BamboraAPIKey, refundOrderNumber),
		NotifyURL:   bc.cfg.PublicBaseURL + "/payments/bambora/refund-notify",
	}

	decoded := bamboraRefundResponse{}
	if err := bc.post(ctx, "create_refund", payload, &decoded); err != nil {
		return nil, err
	}

	switch decoded.Result {
	case 0:
	case 1:
		return nil, &PayloadValidationError{Reason: "provider rejected the refund payload"}
	case 10:
		return nil, ErrServiceUnavailable
	default:
		return nil, &UnknownReturnCodeError{Code: fmt.Sprint(decoded.Result)}
	}

	return bc.orders.CreateRefund(ctx, order, fmt.Sprint(decoded.RefundID))
}

// getPayment fetches the settled payment the refund must match.
func (bc *BamboraClient) getPayment(ctx context.Context, orderNumber string) (*bamboraPaymentDetails, error) {
	payload := bamboraPaymentQuery{
		Version:     bamboraAPIVersion,
		APIKey:      bc.cfg.BamboraAPIKey,
		OrderNumber: orderNumber,
		AuthCode:    bc.authCode(bc.cfg.BamboraAPIKey, orderNumber),
	}

	details := bamboraPaymentDetails{}
	if err := bc.post(ctx, "get_payment", payload, &details); err != nil {
		return nil, err
	}

	switch details.Result {
	case 0:
		return &details, nil
	case 1:
		return nil, &PayloadValidationError{Reason: "provider rejected the payment lookup"}
	case 10:
		return nil, ErrServiceUnavailable
	default:
		return nil, &UnknownReturnCodeError{Code: fmt.Sprint(details.Result)}
	}
}

// HandleRefundNotify processes the provider's refund outcome callback.
func (bc *BamboraClient) HandleRefundNotify(ctx context.Context, query url.Values) error {
	returnCode := query.Get("RETURN_CODE")
	refundID := query.Get("REFUND_ID")

	fields := signedQueryFields(query, "RETURN_CODE", "REFUND_ID")
	if !bc.verifyAuthCode(query.Get("AUTHCODE"), fields...) {
		logger.Log.Warn("bambora refund notify authcode mismatch", zap.String("refund_id", refundID))
		return &PayloadValidationError{Reason: "invalid authcode"}
	}

	refund, err := bc.orders.GetRefundByProviderID(ctx, refundID)
	if err != nil {
		if errors.Is(err, models.ErrDataNotFound) {
			return ErrMissingOrderID
		}
		return err
	}

	if returnCode == bamboraCodePaid {
		return bc.orders.SetRefundStatus(ctx, refund, models.OrderRefundStatusAccepted, "")
	}
	return bc.orders.SetRefundStatus(ctx, refund, models.OrderRefundStatusRejected,
		"provider returned code "+returnCode)
}
