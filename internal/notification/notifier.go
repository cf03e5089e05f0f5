// Package notification sends templated messages through the external
// notification service.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Type selects the message template on the notification service side.
type Type string

const (
	TypeBerthOrderApproved         Type = "new_berth_order_approved"
	TypeWinterStorageOrderApproved Type = "new_winter_storage_order_approved"
	TypeAdditionalProductApproved  Type = "additional_product_order_approved"
	TypeOrderCancelled             Type = "order_cancelled"
	TypeOrderRefunded              Type = "order_refunded"
	TypeInvoicingSummary           Type = "automatic_invoicing_email_admins"
)

// Message is one notification request. Context carries the template
// variables, e.g. order number, due date and payment URL.
type Message struct {
	Type      Type              `json:"type"`
	Context   map[string]string `json:"context"`
	Recipient string            `json:"recipient"`
	Language  string            `json:"language"`
}

// Client talks to the notification service over HTTP.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewClient creates new Client instance
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Send posts the message. A non-2xx answer is returned as an error so the
// caller can record it as a failure.
func (c *Client) Send(ctx context.Context, msg Message) error {
	// POST /v1/message/send
	u, err := url.JoinPath(c.baseURL, "v1", "message", "send")
	if err != nil {
		return err
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "ApiKey "+c.apiKey)

	resp, err := c.client.Do(req)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notification service answered %d", resp.StatusCode)
	}

	return nil
}
