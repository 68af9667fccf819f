// Package gateway implements the payment gateway's wire protocol: the
// message-authentication scheme shared by outbound requests and inbound
// callbacks, and the HTTP client for payment initiation.
package gateway

import (
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Codec computes and verifies the gateway's signature scheme:
//
//	signature = base64(SHA1(secret + base64(payload) + secret))
//
// The scheme must stay bit-exact with the gateway's own implementation; it is
// the trust boundary for every inbound settlement event.
type Codec struct {
	secret string
}

// NewCodec creates a Codec with the merchant's private key.
func NewCodec(secret string) *Codec {
	return &Codec{secret: secret}
}

// Sign computes the signature over a canonical payload.
func (c *Codec) Sign(payload []byte) string {
	encoded := base64.StdEncoding.EncodeToString(payload)
	sum := sha1.Sum([]byte(c.secret + encoded + c.secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// signedFields is the canonical sub-object covered by a callback signature.
// Field order matters: it defines the canonical byte form. The signature and
// message fields of the callback are not part of the signed payload.
type signedFields struct {
	TransactionID string `json:"transaction_id"`
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

// Callback is the gateway's server-to-server settlement notification.
type Callback struct {
	TransactionID string          `json:"transaction_id"`
	OrderID       string          `json:"order_id"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Signature     string          `json:"signature"`
	Message       string          `json:"message,omitempty"`
}

// SignCallback computes the signature a well-formed gateway would attach to
// the callback. Used by tests standing in for the gateway.
func (c *Codec) SignCallback(cb Callback) (string, error) {
	payload, err := json.Marshal(signedFields{
		TransactionID: cb.TransactionID,
		OrderID:       cb.OrderID,
		Status:        cb.Status,
		Amount:        cb.Amount.StringFixed(2),
		Currency:      cb.Currency,
	})
	if err != nil {
		return "", err
	}
	return c.Sign(payload), nil
}

// VerifyCallback recomputes the signature over the signed fields and compares
// it with the one the callback carries. Malformed input verifies as false, it
// never propagates an error.
func (c *Codec) VerifyCallback(cb Callback) bool {
	expected, err := c.SignCallback(cb)
	if err != nil {
		return false
	}
	return cb.Signature == expected
}
