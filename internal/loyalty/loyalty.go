// Package loyalty maintains the per-user wallet ledger and awards purchase
// bonuses. Every balance change is recorded as an immutable transaction whose
// before/after amounts are captured at write time, and the wallet balance
// always equals the last transaction's balance-after.
package loyalty

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/smartteam/settlement/internal/errs"
	"github.com/smartteam/settlement/internal/store"
)

// Service owns all wallet mutations. A single mutex serializes them so a
// balance update and its ledger row always land together.
type Service struct {
	store  *store.MemoryStore
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a loyalty service.
func NewService(s *store.MemoryStore, logger *slog.Logger) *Service {
	return &Service{store: s, logger: logger}
}

// BonusPercent returns the configured global bonus percentage.
func (s *Service) BonusPercent() decimal.Decimal {
	return s.store.Settings().LoyaltyBonusPercent
}

// SetBonusPercent updates the global bonus percentage.
func (s *Service) SetBonusPercent(pct decimal.Decimal) error {
	if pct.IsNegative() {
		return errs.New(errs.KindValidation, "bonus percentage must not be negative")
	}
	s.store.SetLoyaltyBonusPercent(pct)
	return nil
}

// AwardBonus credits the purchase bonus for an order. It is idempotent per
// order: at most one earned transaction ever exists for a given order id, no
// matter how many times the settlement callback is redelivered. Returns true
// when a bonus was actually credited.
func (s *Service) AwardBonus(userID, orderID string, orderTotal decimal.Decimal) (bool, error) {
	pct := s.BonusPercent()
	if !pct.IsPositive() {
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Idempotency guard, re-checked under the lock.
	if _, ok := s.store.WalletTxns.FindFirst(func(_ string, t store.WalletTransaction) bool {
		return t.OrderID == orderID && t.Type == store.WalletEarned
	}); ok {
		return false, nil
	}

	bonus := orderTotal.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	if !bonus.IsPositive() {
		return false, nil
	}

	wallet := s.getOrCreateWalletLocked(userID)
	s.creditLocked(wallet, store.WalletTransaction{
		OrderID:     orderID,
		Type:        store.WalletEarned,
		Amount:      bonus,
		Description: fmt.Sprintf("Bonus (%s%%) for order", pct.String()),
	})

	s.logger.Info("loyalty bonus awarded",
		"user_id", userID, "order_id", orderID, "bonus", bonus.StringFixed(2))
	return true, nil
}

// Spend debits amount from the user's wallet.
func (s *Service) Spend(userID string, amount decimal.Decimal, description string) error {
	if !amount.IsPositive() {
		return errs.New(errs.KindValidation, "spend amount must be positive")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet, ok := s.store.Wallets.Get(userID)
	if !ok || wallet.Balance.LessThan(amount) {
		return errs.New(errs.KindConflict, "insufficient wallet balance")
	}

	s.debitLocked(wallet, store.WalletTransaction{
		Type:        store.WalletSpent,
		Amount:      amount,
		Description: description,
	})
	return nil
}

// Adjust applies a signed administrative correction to the user's wallet.
func (s *Service) Adjust(userID string, amount decimal.Decimal, description string) error {
	if amount.IsZero() {
		return errs.New(errs.KindValidation, "adjustment amount must not be zero")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	wallet := s.getOrCreateWalletLocked(userID)
	if amount.IsNegative() && wallet.Balance.LessThan(amount.Neg()) {
		return errs.New(errs.KindConflict, "adjustment would overdraw wallet")
	}

	txn := store.WalletTransaction{
		Type:        store.WalletAdjustment,
		Amount:      amount.Abs(),
		Description: description,
	}
	if amount.IsNegative() {
		s.debitLocked(wallet, txn)
	} else {
		s.creditLocked(wallet, txn)
	}
	return nil
}

// Wallet returns the user's wallet, or an empty zero-balance wallet if none
// has been created yet.
func (s *Service) Wallet(userID string) store.Wallet {
	wallet, ok := s.store.Wallets.Get(userID)
	if !ok {
		return store.Wallet{UserID: userID, Balance: decimal.Zero}
	}
	return wallet
}

// Transactions returns the user's ledger, newest first.
func (s *Service) Transactions(userID string) []store.WalletTransaction {
	txns := s.store.WalletTxns.Filter(func(_ string, t store.WalletTransaction) bool {
		return t.UserID == userID
	})
	sort.SliceStable(txns, func(i, j int) bool {
		return txns[i].CreatedAt.After(txns[j].CreatedAt)
	})
	return txns
}

func (s *Service) getOrCreateWalletLocked(userID string) store.Wallet {
	wallet, ok := s.store.Wallets.Get(userID)
	if !ok {
		wallet = store.Wallet{
			ID:        uuid.NewString(),
			UserID:    userID,
			Balance:   decimal.Zero,
			CreatedAt: s.store.Clock.Now(),
		}
		s.store.Wallets.Set(userID, wallet)
	}
	return wallet
}

// creditLocked applies a positive ledger entry. Caller holds s.mu.
func (s *Service) creditLocked(wallet store.Wallet, txn store.WalletTransaction) {
	before := wallet.Balance
	after := before.Add(txn.Amount)
	s.writeLocked(wallet, txn, before, after)
}

// debitLocked applies a negative ledger entry. Caller holds s.mu and has
// checked funds.
func (s *Service) debitLocked(wallet store.Wallet, txn store.WalletTransaction) {
	before := wallet.Balance
	after := before.Sub(txn.Amount)
	s.writeLocked(wallet, txn, before, after)
}

func (s *Service) writeLocked(wallet store.Wallet, txn store.WalletTransaction, before, after decimal.Decimal) {
	now := s.store.Clock.Now()
	wallet.Balance = after
	wallet.UpdatedAt = &now
	s.store.Wallets.Set(wallet.UserID, wallet)

	txn.ID = uuid.NewString()
	txn.WalletID = wallet.ID
	txn.UserID = wallet.UserID
	txn.BalanceBefore = before
	txn.BalanceAfter = after
	txn.CreatedAt = now
	s.store.WalletTxns.Set(txn.ID, txn)
}
