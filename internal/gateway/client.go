package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds the merchant-side gateway parameters.
type Config struct {
	BaseURL            string
	PublicKey          string
	Currency           string
	Language           string
	SuccessRedirectURL string
	ErrorRedirectURL   string
	Timeout            time.Duration
}

// InitiateResult is the gateway's answer to a payment-initiation request.
// Failures are represented as data (status "error" plus a message), never as
// Go errors: the caller must still respond to the end user either way.
type InitiateResult struct {
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id,omitempty"`
	RedirectURL   string `json:"redirect_url,omitempty"`
	Message       string `json:"message,omitempty"`
}

// OK reports whether the gateway accepted the initiation.
func (r InitiateResult) OK() bool {
	return strings.EqualFold(r.Status, "success")
}

// Client issues signed payment-initiation requests to the remote gateway.
type Client struct {
	cfg    Config
	codec  *Codec
	http   *http.Client
	logger *slog.Logger
}

// NewClient creates a gateway client. A zero timeout defaults to 15s.
func NewClient(cfg Config, codec *Codec, logger *slog.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		cfg:    cfg,
		codec:  codec,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// initiationRequest is the canonical outbound JSON body. The amount travels
// as a fixed 2-decimal string so serialization cannot drift from the
// signature.
type initiationRequest struct {
	PublicKey          string `json:"public_key"`
	Amount             string `json:"amount"`
	Currency           string `json:"currency"`
	Language           string `json:"language"`
	Description        string `json:"description"`
	OrderID            string `json:"order_id"`
	SuccessRedirectURL string `json:"success_redirect_url"`
	ErrorRedirectURL   string `json:"error_redirect_url"`
}

// Initiate requests a payment page for the given purchase identifier.
// It returns the gateway's result and the raw request JSON for audit storage.
// All transport and protocol failures come back as status "error" results.
func (c *Client) Initiate(ctx context.Context, purchaseID string, amount decimal.Decimal, description string) (InitiateResult, string) {
	if description == "" {
		description = fmt.Sprintf("Order #%s", purchaseID)
	}

	body := initiationRequest{
		PublicKey:          strings.TrimSpace(c.cfg.PublicKey),
		Amount:             amount.StringFixed(2),
		Currency:           c.cfg.Currency,
		Language:           c.cfg.Language,
		Description:        description,
		OrderID:            purchaseID,
		SuccessRedirectURL: c.cfg.SuccessRedirectURL + "?order_id=" + url.QueryEscape(purchaseID),
		ErrorRedirectURL:   c.cfg.ErrorRedirectURL + "?order_id=" + url.QueryEscape(purchaseID),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return InitiateResult{Status: "error", Message: fmt.Sprintf("encoding request: %v", err)}, ""
	}

	encoded := base64.StdEncoding.EncodeToString(payload)
	form := url.Values{
		"data":      {encoded},
		"signature": {c.codec.Sign(payload)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+"/api/1/request", strings.NewReader(form.Encode()))
	if err != nil {
		return InitiateResult{Status: "error", Message: fmt.Sprintf("building request: %v", err)}, string(payload)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("gateway initiation transport failure", "purchase_id", purchaseID, "err", err)
		return InitiateResult{Status: "error", Message: fmt.Sprintf("gateway unreachable: %v", err)}, string(payload)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return InitiateResult{Status: "error", Message: fmt.Sprintf("reading gateway response: %v", err)}, string(payload)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("gateway initiation rejected",
			"purchase_id", purchaseID, "status_code", resp.StatusCode)
		return InitiateResult{
			Status:  "error",
			Message: fmt.Sprintf("gateway API error: %d - %s", resp.StatusCode, string(respBody)),
		}, string(payload)
	}

	var result InitiateResult
	if err := json.Unmarshal(respBody, &result); err != nil || result.Status == "" {
		return InitiateResult{Status: "error", Message: "failed to parse gateway response"}, string(payload)
	}
	return result, string(payload)
}
