package store

import (
	"time"

	"github.com/shopspring/decimal"
)

// User is a registered customer. Lookup only; account management lives
// elsewhere.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Product carries the catalog fields the settlement pipeline needs: identity,
// denormalization source, and stock.
type Product struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	SKU   string          `json:"sku"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

// CartItem is a single line of a cart snapshot.
type CartItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// CartSnapshot is the cart state frozen at payment initiation. Whatever the
// live cart does afterwards, settlement only ever sees this snapshot.
type CartSnapshot struct {
	Items           []CartItem      `json:"items"`
	SubTotal        decimal.Decimal `json:"sub_total"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	FinalTotal      decimal.Decimal `json:"final_total"`
	PromoCode       string          `json:"promo_code,omitempty"`
	PromoPercentage decimal.Decimal `json:"promo_percentage,omitempty"`
}

// CustomerInfo is the contact snapshot captured at initiation and denormalized
// onto the Order at materialization.
type CustomerInfo struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ShippingAddress string `json:"shipping_address,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

// Reservation is a pending purchase: the cart and customer snapshots held
// between payment initiation and the terminal callback. It exists only during
// that window and is deleted on any terminal outcome or expiry.
type Reservation struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id,omitempty"`
	CartJSON     string          `json:"cart_json"`
	CustomerJSON string          `json:"customer_json"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	PromoCode    string          `json:"promo_code,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	ExpiresAt    time.Time       `json:"expires_at"`
}

// TargetKind discriminates what a Payment points at.
type TargetKind string

const (
	TargetReservation TargetKind = "reservation"
	TargetOrder       TargetKind = "order"
)

// PaymentTarget is a tagged reference to exactly one of a Reservation or an
// Order. A payment is created against a reservation and re-pointed at the
// order the moment one is materialized; it never references both.
type PaymentTarget struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

// ReservationTarget builds a target for a pending reservation.
func ReservationTarget(id string) PaymentTarget {
	return PaymentTarget{Kind: TargetReservation, ID: id}
}

// OrderTarget builds a target for a materialized order.
func OrderTarget(id string) PaymentTarget {
	return PaymentTarget{Kind: TargetOrder, ID: id}
}

// PaymentStatus is the lifecycle state of a Payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentInitiated PaymentStatus = "initiated"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentCancelled PaymentStatus = "cancelled"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Terminal reports whether the status admits no further transition other than
// administrative refund.
func (s PaymentStatus) Terminal() bool {
	switch s {
	case PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded:
		return true
	}
	return false
}

// Payment records one attempt to collect money through the gateway.
type Payment struct {
	ID            string          `json:"id"`
	Target        PaymentTarget   `json:"target"`
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Status        PaymentStatus   `json:"status"`

	// Raw wire payloads kept for audit and replay diagnosis.
	RequestData  string `json:"request_data,omitempty"`
	ResponseData string `json:"response_data,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Installment purchase details, when the buyer selected one.
	InstallmentPeriod   int              `json:"installment_period,omitempty"`
	InstallmentInterest *decimal.Decimal `json:"installment_interest,omitempty"`
	OriginalAmount      *decimal.Decimal `json:"original_amount,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// OrderStatus is the lifecycle state of an Order.
type OrderStatus string

const (
	OrderPending          OrderStatus = "pending"
	OrderPaymentInitiated OrderStatus = "payment_initiated"
	OrderPaid             OrderStatus = "paid"
	OrderProcessing       OrderStatus = "processing"
	OrderShipped          OrderStatus = "shipped"
	OrderDelivered        OrderStatus = "delivered"
	OrderCancelled        OrderStatus = "cancelled"
	OrderRefunded         OrderStatus = "refunded"
	OrderFailed           OrderStatus = "failed"
)

// Terminal reports whether the order can no longer progress.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderDelivered, OrderCancelled, OrderRefunded, OrderFailed:
		return true
	}
	return false
}

// OrderItem is a purchased line with product fields denormalized at purchase
// time. Items are written once with the order and never mutated.
type OrderItem struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	ProductSKU  string          `json:"product_sku"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// Order is a confirmed purchase. In the reservation flow it is created only
// after the gateway confirms payment.
type Order struct {
	ID              string          `json:"id"`
	Number          string          `json:"number"`
	UserID          string          `json:"user_id,omitempty"`
	SubTotal        decimal.Decimal `json:"sub_total"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	PromoCode       string          `json:"promo_code,omitempty"`
	PromoPercentage decimal.Decimal `json:"promo_percentage,omitempty"`
	Status          OrderStatus     `json:"status"`
	PaymentID       string          `json:"payment_id,omitempty"`
	Customer        CustomerInfo    `json:"customer"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

// Wallet is a user's loyalty balance, created lazily on first credit.
// Wallets are stored keyed by user ID.
type Wallet struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
}

// WalletTransactionType classifies a ledger entry.
type WalletTransactionType string

const (
	WalletEarned     WalletTransactionType = "earned"
	WalletSpent      WalletTransactionType = "spent"
	WalletAdjustment WalletTransactionType = "adjustment"
)

// WalletTransaction is one immutable ledger entry. BalanceBefore and
// BalanceAfter are captured when the entry is written, never recomputed.
type WalletTransaction struct {
	ID            string                `json:"id"`
	WalletID      string                `json:"wallet_id"`
	UserID        string                `json:"user_id"`
	OrderID       string                `json:"order_id,omitempty"`
	Type          WalletTransactionType `json:"type"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceBefore decimal.Decimal       `json:"balance_before"`
	BalanceAfter  decimal.Decimal       `json:"balance_after"`
	Description   string                `json:"description"`
	CreatedAt     time.Time             `json:"created_at"`
}

// InstallmentOption is a bank's installment plan offer.
type InstallmentOption struct {
	ID              string           `json:"id"`
	BankName        string           `json:"bank_name"`
	Period          int              `json:"period"`
	InterestPercent decimal.Decimal  `json:"interest_percent"`
	Active          bool             `json:"active"`
	MinimumAmount   *decimal.Decimal `json:"minimum_amount,omitempty"`
	DisplayOrder    int              `json:"display_order"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       *time.Time       `json:"updated_at,omitempty"`
}

// InstallmentConfig is the global installment switch and floor.
type InstallmentConfig struct {
	Enabled       bool            `json:"enabled"`
	MinimumAmount decimal.Decimal `json:"minimum_amount"`
}

// Settings is the explicit business-configuration snapshot. It is read once
// at the start of an operation and passed along, never re-fetched mid-flight.
type Settings struct {
	LoyaltyBonusPercent decimal.Decimal   `json:"loyalty_bonus_percent"`
	Installments        InstallmentConfig `json:"installments"`
}
