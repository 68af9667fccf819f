// Package settlement implements the payment settlement state machine: it
// drives a purchase from reservation through gateway initiation to exactly one
// terminal outcome, no matter how many times, in what order, or through which
// entry point the gateway reports that outcome.
package settlement

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartteam/settlement/internal/errs"
	"github.com/smartteam/settlement/internal/gateway"
	"github.com/smartteam/settlement/internal/installment"
	"github.com/smartteam/settlement/internal/loyalty"
	"github.com/smartteam/settlement/internal/order"
	"github.com/smartteam/settlement/internal/store"
)

// CartProvider supplies the cart snapshot frozen at initiation.
type CartProvider interface {
	Cart(ctx context.Context, userID string) (store.CartSnapshot, error)
	ClearCart(ctx context.Context, userID string) error
}

// StockReducer decrements catalog stock once an order is paid.
type StockReducer interface {
	ReduceStock(ctx context.Context, productID string, qty int) error
}

// UserDirectory resolves user identifiers provided at initiation.
type UserDirectory interface {
	LookupUser(ctx context.Context, id string) (store.User, bool)
}

// PaymentGateway initiates payments with the remote gateway.
type PaymentGateway interface {
	Initiate(ctx context.Context, purchaseID string, amount decimal.Decimal, description string) (gateway.InitiateResult, string)
}

// Config carries the engine's fixed parameters.
type Config struct {
	Currency       string
	ReservationTTL time.Duration
	// Front-end URL templates the redirect fallbacks bounce the browser to.
	FrontendSuccessURL string
	FrontendErrorURL   string
}

// Engine is the settlement state machine. All state transitions for one
// purchase identifier are serialized through a per-identifier mutex, and
// every idempotency check is re-verified while that mutex is held.
type Engine struct {
	store        *store.MemoryStore
	gw           PaymentGateway
	codec        *gateway.Codec
	orders       *order.Materializer
	loyalty      *loyalty.Service
	installments *installment.Service
	carts        CartProvider
	stock        StockReducer
	users        UserDirectory
	cfg          Config
	logger       *slog.Logger

	mu    sync.Mutex
	locks map[string]*purchaseLock
}

// purchaseLock is a ref-counted per-purchase mutex. The map entry lives only
// while some goroutine holds or waits for the lock, so settled purchases do
// not accumulate entries for the lifetime of the process.
type purchaseLock struct {
	mu   sync.Mutex
	refs int
}

// Deps bundles the engine's collaborators.
type Deps struct {
	Store        *store.MemoryStore
	Gateway      PaymentGateway
	Codec        *gateway.Codec
	Orders       *order.Materializer
	Loyalty      *loyalty.Service
	Installments *installment.Service
	Carts        CartProvider
	Stock        StockReducer
	Users        UserDirectory
	Logger       *slog.Logger
}

// NewEngine creates the settlement engine.
func NewEngine(deps Deps, cfg Config) *Engine {
	if cfg.ReservationTTL == 0 {
		cfg.ReservationTTL = 30 * time.Minute
	}
	return &Engine{
		store:        deps.Store,
		gw:           deps.Gateway,
		codec:        deps.Codec,
		orders:       deps.Orders,
		loyalty:      deps.Loyalty,
		installments: deps.Installments,
		carts:        deps.Carts,
		stock:        deps.Stock,
		users:        deps.Users,
		cfg:          cfg,
		logger:       deps.Logger,
		locks:        make(map[string]*purchaseLock),
	}
}

// lock acquires the per-purchase mutex for id and returns its release func.
// The release func drops the map entry once the last holder or waiter lets go.
func (e *Engine) lock(id string) func() {
	e.mu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &purchaseLock{}
		e.locks[id] = l
	}
	l.refs++
	e.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		e.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(e.locks, id)
		}
		e.mu.Unlock()
	}
}

// InitiateRequest is a request to start paying for the user's cart.
type InitiateRequest struct {
	UserID              string
	Customer            store.CustomerInfo
	InstallmentOptionID string
}

// Initiate freezes the cart into a Reservation, records an Initiated Payment
// against it, and asks the gateway for a payment page. No Order is created
// here; that happens only when the gateway confirms money moved.
//
// Gateway failures are returned as data inside the result, not as errors: the
// payment is marked failed, the reservation discarded, and the caller still
// gets a structured response for the end user.
func (e *Engine) Initiate(ctx context.Context, req InitiateRequest) (gateway.InitiateResult, error) {
	if req.UserID != "" {
		if _, ok := e.users.LookupUser(ctx, req.UserID); !ok {
			return gateway.InitiateResult{}, errs.New(errs.KindValidation, "user %s not found", req.UserID)
		}
	}
	if req.Customer.Name == "" || req.Customer.Email == "" {
		return gateway.InitiateResult{}, errs.New(errs.KindValidation, "customer name and email are required")
	}

	cart, err := e.carts.Cart(ctx, req.UserID)
	if err != nil {
		return gateway.InitiateResult{}, errs.Wrap(errs.KindInternal, err, "loading cart")
	}
	if len(cart.Items) == 0 {
		return gateway.InitiateResult{}, errs.New(errs.KindValidation, "cart is empty")
	}

	chargeAmount := cart.FinalTotal
	var calc *installment.Calculation
	if req.InstallmentOptionID != "" {
		if err := e.installments.Validate(cart.FinalTotal, req.InstallmentOptionID); err != nil {
			return gateway.InitiateResult{}, err
		}
		c, err := e.installments.Calculate(cart.FinalTotal, req.InstallmentOptionID)
		if err != nil {
			return gateway.InitiateResult{}, err
		}
		calc = &c
		chargeAmount = c.TotalAmount
	}

	cartJSON, err := json.Marshal(cart)
	if err != nil {
		return gateway.InitiateResult{}, errs.Wrap(errs.KindInternal, err, "encoding cart snapshot")
	}
	customerJSON, err := json.Marshal(req.Customer)
	if err != nil {
		return gateway.InitiateResult{}, errs.Wrap(errs.KindInternal, err, "encoding customer snapshot")
	}

	now := e.store.Clock.Now()
	res := store.Reservation{
		ID:           uuid.NewString(),
		UserID:       req.UserID,
		CartJSON:     string(cartJSON),
		CustomerJSON: string(customerJSON),
		TotalAmount:  chargeAmount,
		PromoCode:    cart.PromoCode,
		CreatedAt:    now,
		ExpiresAt:    now.Add(e.cfg.ReservationTTL),
	}
	e.store.Reservations.Set(res.ID, res)

	payment := store.Payment{
		ID:            uuid.NewString(),
		Target:        store.ReservationTarget(res.ID),
		TransactionID: "TEMP_" + uuid.NewString(),
		Amount:        chargeAmount,
		Currency:      e.cfg.Currency,
		Status:        store.PaymentInitiated,
		CreatedAt:     now,
	}
	if calc != nil {
		payment.InstallmentPeriod = calc.Period
		payment.InstallmentInterest = &calc.InterestAmount
		payment.OriginalAmount = &calc.OriginalAmount
	}
	e.store.Payments.Set(payment.ID, payment)

	result, rawRequest := e.gw.Initiate(ctx, res.ID, chargeAmount, "")

	// The gateway can deliver the settlement callback before Initiate's own
	// HTTP call returns. Re-read the payment under the purchase lock and only
	// write while it is still non-terminal, so a settlement that already won
	// is never regressed by this stale local copy.
	unlock := e.lock(res.ID)
	if current, live := e.store.Payments.Get(payment.ID); live && !current.Status.Terminal() {
		current.RequestData = rawRequest
		if respJSON, err := json.Marshal(result); err == nil {
			current.ResponseData = string(respJSON)
		}
		if !result.OK() {
			current.Status = store.PaymentFailed
			current.ErrorMessage = result.Message
			e.store.Reservations.Delete(res.ID)
		} else if result.TransactionID != "" {
			current.TransactionID = result.TransactionID
		}
		e.store.Payments.Set(current.ID, current)
		payment = current
	}
	unlock()

	if !result.OK() {
		e.logger.Warn("gateway initiation failed",
			"reservation_id", res.ID, "message", result.Message)
		return result, nil
	}

	if err := e.carts.ClearCart(ctx, req.UserID); err != nil {
		e.logger.Warn("clearing cart after initiation", "user_id", req.UserID, "err", err)
	}

	e.logger.Info("payment initiated",
		"reservation_id", res.ID, "payment_id", payment.ID,
		"amount", chargeAmount.StringFixed(2), "transaction_id", payment.TransactionID)
	return result, nil
}

// markOrderPaid completes the Paid transition and fires its side effects.
// Caller holds the purchase lock. An order that is already Paid is left
// untouched; that is the duplicate-delivery no-op path.
func (e *Engine) markOrderPaid(ctx context.Context, ord store.Order) {
	if ord.Status == store.OrderPaid {
		return
	}

	now := e.store.Clock.Now()
	ord.Status = store.OrderPaid
	ord.UpdatedAt = &now
	e.store.Orders.Set(ord.ID, ord)

	// Stock reduction may fail without rolling back the Paid transition; the
	// gap is reconciled out of band and is logged loudly here.
	for _, item := range ord.Items {
		if err := e.stock.ReduceStock(ctx, item.ProductID, item.Quantity); err != nil {
			e.logger.Warn("stock reduction failed after paid transition",
				"order_id", ord.ID, "product_id", item.ProductID, "qty", item.Quantity, "err", err)
		}
	}

	if ord.UserID == "" {
		return
	}
	if _, err := e.loyalty.AwardBonus(ord.UserID, ord.ID, ord.TotalAmount); err != nil {
		e.logger.Warn("loyalty bonus award failed",
			"order_id", ord.ID, "user_id", ord.UserID, "err", err)
	}
}

// completePayment moves a payment to Completed with a completion timestamp.
// Caller holds the purchase lock.
func (e *Engine) completePayment(p store.Payment, transactionID string) store.Payment {
	now := e.store.Clock.Now()
	p.Status = store.PaymentCompleted
	p.CompletedAt = &now
	if transactionID != "" {
		p.TransactionID = transactionID
	}
	e.store.Payments.Set(p.ID, p)
	return p
}
