package sepay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Client struct {
	BaseURL       string
	MerchantID    string
	APIKey        string
	WebhookSecret string
	ReturnBaseURL string
	HTTPClient    *http.Client
}

type PaymentRequest struct {
	OrderID     string
	Amount      decimal.Decimal
	Description string
}

type PaymentResult struct {
	QRCode        string `json:"qrCode"`
	PaymentURL    string `json:"paymentUrl"`
	TransactionID string `json:"transactionId"`
}

type StatusResult struct {
	TransactionID string          `json:"transactionId"`
	OrderID       string          `json:"orderId"`
	Status        string          `json:"status"`
	Amount        json.Number     `json:"amount"`
	Raw           json.RawMessage `json:"-"`
}

// Succeeded reports whether the gateway settled the transaction.
func (s *StatusResult) Succeeded() bool {
	return s.Status == StatusSuccess
}

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type apiError struct {
	Message string `json:"message"`
}

func NewClient(baseURL, merchantID, apiKey, webhookSecret, returnBaseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:       strings.TrimRight(baseURL, "/"),
		MerchantID:    merchantID,
		APIKey:        apiKey,
		WebhookSecret: webhookSecret,
		ReturnBaseURL: strings.TrimRight(returnBaseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreatePayment registers a payment with the gateway and returns the QR code and payment URL.
func (c *Client) CreatePayment(ctx context.Context, req PaymentRequest) (*PaymentResult, error) {
	amount := req.Amount.String()
	fields := map[string]string{
		"merchantId":  c.MerchantID,
		"orderId":     req.OrderID,
		"amount":      amount,
		"description": req.Description,
		"returnUrl":   c.ReturnBaseURL + "/payment/result",
		"cancelUrl":   c.ReturnBaseURL + "/payment/cancel",
	}

	body := map[string]interface{}{
		"merchantId":  fields["merchantId"],
		"orderId":     fields["orderId"],
		"amount":      json.Number(amount),
		"description": fields["description"],
		"returnUrl":   fields["returnUrl"],
		"cancelUrl":   fields["cancelUrl"],
		"signature":   Sign(c.WebhookSecret, fields),
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal payment request")
	}

	var result PaymentResult
	if err := c.do(ctx, http.MethodPost, "/v1/payments/create", bytes.NewReader(jsonData), &result); err != nil {
		return nil, errors.Wrap(err, "create payment")
	}
	if result.TransactionID == "" {
		return nil, errors.New("create payment: gateway returned no transaction id")
	}

	return &result, nil
}

// CheckPaymentStatus asks the gateway for the current state of a transaction.
func (c *Client) CheckPaymentStatus(ctx context.Context, transactionID string) (*StatusResult, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+transactionID, nil, &raw); err != nil {
		return nil, errors.Wrapf(err, "check payment %s", transactionID)
	}

	var result StatusResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrap(err, "failed to parse payment status")
	}
	result.Raw = raw

	return &result, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("X-API-Key", c.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("gateway returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}

	return nil
}

// VerifyWebhook checks the signature of a notification with the client's secret.
func (c *Client) VerifyWebhook(n *Notification) bool {
	return Verify(c.WebhookSecret, n.Fields, n.Signature)
}
