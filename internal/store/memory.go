package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartteam/settlement/internal/errs"
)

// MemoryStore aggregates all settlement state.
type MemoryStore struct {
	Users              *Store[User]
	Products           *Store[Product]
	Carts              *Store[CartSnapshot] // keyed by user ID
	Reservations       *Store[Reservation]
	Payments           *Store[Payment]
	Orders             *Store[Order]
	Wallets            *Store[Wallet] // keyed by user ID
	WalletTxns         *Store[WalletTransaction]
	InstallmentOptions *Store[InstallmentOption]

	settingsMu sync.RWMutex
	settings   Settings

	// orderNumMu serializes order-number generation; reservedNumbers covers
	// the window between picking a number and inserting the order.
	orderNumMu      sync.Mutex
	reservedNumbers map[string]struct{}

	Clock *Clock
}

// New creates an empty MemoryStore.
func New() *MemoryStore {
	return &MemoryStore{
		Users:              NewStore[User](),
		Products:           NewStore[Product](),
		Carts:              NewStore[CartSnapshot](),
		Reservations:       NewStore[Reservation](),
		Payments:           NewStore[Payment](),
		Orders:             NewStore[Order](),
		Wallets:            NewStore[Wallet](),
		WalletTxns:         NewStore[WalletTransaction](),
		InstallmentOptions: NewStore[InstallmentOption](),
		settings: Settings{
			Installments: InstallmentConfig{MinimumAmount: decimal.NewFromInt(100)},
		},
		reservedNumbers: make(map[string]struct{}),
		Clock:           NewClock(),
	}
}

// Settings returns the current business-configuration snapshot.
func (s *MemoryStore) Settings() Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// SetLoyaltyBonusPercent updates the global loyalty bonus percentage.
func (s *MemoryStore) SetLoyaltyBonusPercent(pct decimal.Decimal) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.settings.LoyaltyBonusPercent = pct
}

// SetInstallmentConfig replaces the global installment configuration.
func (s *MemoryStore) SetInstallmentConfig(cfg InstallmentConfig) {
	s.settingsMu.Lock()
	defer s.settingsMu.Unlock()
	s.settings.Installments = cfg
}

// PaymentByTarget finds the payment pointing at the given reservation or
// order.
func (s *MemoryStore) PaymentByTarget(kind TargetKind, id string) (Payment, bool) {
	return s.Payments.FindFirst(func(_ string, p Payment) bool {
		return p.Target.Kind == kind && p.Target.ID == id
	})
}

// OrderByNumber finds an order by its human-readable number.
func (s *MemoryStore) OrderByNumber(number string) (Order, bool) {
	return s.Orders.FindFirst(func(_ string, o Order) bool {
		return o.Number == number
	})
}

// NewOrderNumber generates a unique order number of the form
// ORD-<UTCDATE8>-<4digits>. It retries on collision a bounded number of times
// and falls back to a UUID-derived suffix. The returned number is reserved so
// concurrent callers cannot pick it before the order row lands.
func (s *MemoryStore) NewOrderNumber(now time.Time) string {
	s.orderNumMu.Lock()
	defer s.orderNumMu.Unlock()

	date := now.UTC().Format("20060102")
	for attempt := 0; attempt < 10; attempt++ {
		number := fmt.Sprintf("ORD-%s-%04d", date, 1000+rand.Intn(9000))
		if !s.orderNumberTaken(number) {
			s.reservedNumbers[number] = struct{}{}
			return number
		}
	}

	number := fmt.Sprintf("ORD-%s-%s", date, strings.ToUpper(uuid.NewString()[:8]))
	s.reservedNumbers[number] = struct{}{}
	return number
}

func (s *MemoryStore) orderNumberTaken(number string) bool {
	if _, ok := s.reservedNumbers[number]; ok {
		return true
	}
	_, ok := s.OrderByNumber(number)
	return ok
}

// Cart returns the user's current cart. An absent cart is an empty cart.
// Implements the settlement engine's CartProvider contract.
func (s *MemoryStore) Cart(_ context.Context, userID string) (CartSnapshot, error) {
	cart, ok := s.Carts.Get(userID)
	if !ok {
		return CartSnapshot{}, nil
	}
	return cart, nil
}

// ClearCart empties the user's cart after a successful initiation.
func (s *MemoryStore) ClearCart(_ context.Context, userID string) error {
	s.Carts.Delete(userID)
	return nil
}

// ReduceStock decrements a product's stock by qty. Implements the settlement
// engine's StockReducer contract.
func (s *MemoryStore) ReduceStock(_ context.Context, productID string, qty int) error {
	if qty <= 0 {
		return errs.New(errs.KindValidation, "stock reduction quantity must be positive, got %d", qty)
	}
	ok := s.Products.Update(productID, func(p Product) Product {
		p.Stock -= qty
		if p.Stock < 0 {
			p.Stock = 0
		}
		return p
	})
	if !ok {
		return errs.New(errs.KindNotFound, "product %s not found", productID)
	}
	return nil
}

// LookupUser resolves a user id. Implements the settlement engine's
// UserDirectory contract.
func (s *MemoryStore) LookupUser(_ context.Context, id string) (User, bool) {
	return s.Users.Get(id)
}

// stateSnapshot is the JSON shape for seeding and state export.
type stateSnapshot struct {
	Users              map[string]User              `json:"users"`
	Products           map[string]Product           `json:"products"`
	Carts              map[string]CartSnapshot      `json:"carts"`
	Reservations       map[string]Reservation       `json:"reservations"`
	Payments           map[string]Payment           `json:"payments"`
	Orders             map[string]Order             `json:"orders"`
	Wallets            map[string]Wallet            `json:"wallets"`
	WalletTxns         map[string]WalletTransaction `json:"wallet_transactions"`
	InstallmentOptions map[string]InstallmentOption `json:"installment_options"`
	Settings           Settings                     `json:"settings"`
}

// Snapshot exports the full state in seed-file form.
func (s *MemoryStore) Snapshot() any {
	return stateSnapshot{
		Users:              s.Users.Snapshot(),
		Products:           s.Products.Snapshot(),
		Carts:              s.Carts.Snapshot(),
		Reservations:       s.Reservations.Snapshot(),
		Payments:           s.Payments.Snapshot(),
		Orders:             s.Orders.Snapshot(),
		Wallets:            s.Wallets.Snapshot(),
		WalletTxns:         s.WalletTxns.Snapshot(),
		InstallmentOptions: s.InstallmentOptions.Snapshot(),
		Settings:           s.Settings(),
	}
}

// LoadState replaces the full state from a JSON seed body.
func (s *MemoryStore) LoadState(data []byte) error {
	var snap stateSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parsing state snapshot: %w", err)
	}
	s.Users.LoadSnapshot(snap.Users)
	s.Products.LoadSnapshot(snap.Products)
	s.Carts.LoadSnapshot(snap.Carts)
	s.Reservations.LoadSnapshot(snap.Reservations)
	s.Payments.LoadSnapshot(snap.Payments)
	s.Orders.LoadSnapshot(snap.Orders)
	s.Wallets.LoadSnapshot(snap.Wallets)
	s.WalletTxns.LoadSnapshot(snap.WalletTxns)
	s.InstallmentOptions.LoadSnapshot(snap.InstallmentOptions)

	s.settingsMu.Lock()
	s.settings = snap.Settings
	s.settingsMu.Unlock()
	return nil
}

// Reset clears all state.
func (s *MemoryStore) Reset() {
	s.Users.Reset()
	s.Products.Reset()
	s.Carts.Reset()
	s.Reservations.Reset()
	s.Payments.Reset()
	s.Orders.Reset()
	s.Wallets.Reset()
	s.WalletTxns.Reset()
	s.InstallmentOptions.Reset()
	s.Clock.Reset()

	s.settingsMu.Lock()
	s.settings = Settings{Installments: InstallmentConfig{MinimumAmount: decimal.NewFromInt(100)}}
	s.settingsMu.Unlock()

	s.orderNumMu.Lock()
	s.reservedNumbers = make(map[string]struct{})
	s.orderNumMu.Unlock()
}
