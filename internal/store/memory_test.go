package store

import (
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/smartteam/settlement/internal/errs"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{8}-[0-9A-F]{4,8}$|^ORD-\d{8}-\d{4}$`)

func TestNewOrderNumberFormat(t *testing.T) {
	s := New()
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	number := s.NewOrderNumber(now)
	if !orderNumberPattern.MatchString(number) {
		t.Errorf("unexpected order number format: %s", number)
	}
	if number[4:12] != "20260315" {
		t.Errorf("expected date segment 20260315, got %s", number[4:12])
	}
}

func TestNewOrderNumberConcurrentUniqueness(t *testing.T) {
	s := New()
	now := time.Now()

	var mu sync.Mutex
	seen := make(map[string]bool)
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			number := s.NewOrderNumber(now)
			mu.Lock()
			defer mu.Unlock()
			if seen[number] {
				t.Errorf("duplicate order number generated: %s", number)
			}
			seen[number] = true
		}()
	}
	wg.Wait()
}

func TestReduceStock(t *testing.T) {
	s := New()
	s.Products.Set("prod_1", Product{ID: "prod_1", Name: "Widget", Stock: 10})

	if err := s.ReduceStock(context.Background(), "prod_1", 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := s.Products.Get("prod_1")
	if p.Stock != 7 {
		t.Errorf("expected stock 7, got %d", p.Stock)
	}
}

func TestReduceStockClampsAtZero(t *testing.T) {
	s := New()
	s.Products.Set("prod_1", Product{ID: "prod_1", Stock: 2})

	if err := s.ReduceStock(context.Background(), "prod_1", 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, _ := s.Products.Get("prod_1")
	if p.Stock != 0 {
		t.Errorf("expected stock clamped at 0, got %d", p.Stock)
	}
}

func TestReduceStockUnknownProduct(t *testing.T) {
	s := New()
	err := s.ReduceStock(context.Background(), "ghost", 1)
	if !errs.Is(err, errs.KindNotFound) {
		t.Errorf("expected not_found error, got %v", err)
	}
}

func TestReduceStockRejectsNonPositiveQuantity(t *testing.T) {
	s := New()
	s.Products.Set("prod_1", Product{ID: "prod_1", Stock: 2})
	err := s.ReduceStock(context.Background(), "prod_1", 0)
	if !errs.Is(err, errs.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestPaymentByTarget(t *testing.T) {
	s := New()
	s.Payments.Set("pay_1", Payment{
		ID:     "pay_1",
		Target: ReservationTarget("res_1"),
		Status: PaymentInitiated,
	})
	s.Payments.Set("pay_2", Payment{
		ID:     "pay_2",
		Target: OrderTarget("ord_1"),
		Status: PaymentCompleted,
	})

	p, ok := s.PaymentByTarget(TargetReservation, "res_1")
	if !ok || p.ID != "pay_1" {
		t.Errorf("expected pay_1, got %+v ok=%v", p, ok)
	}

	p, ok = s.PaymentByTarget(TargetOrder, "ord_1")
	if !ok || p.ID != "pay_2" {
		t.Errorf("expected pay_2, got %+v ok=%v", p, ok)
	}

	if _, ok := s.PaymentByTarget(TargetOrder, "res_1"); ok {
		t.Error("expected no payment for mismatched kind")
	}
}

func TestOrderByNumber(t *testing.T) {
	s := New()
	s.Orders.Set("ord_1", Order{ID: "ord_1", Number: "ORD-20260101-1234"})

	o, ok := s.OrderByNumber("ORD-20260101-1234")
	if !ok || o.ID != "ord_1" {
		t.Errorf("expected ord_1, got %+v ok=%v", o, ok)
	}
	if _, ok := s.OrderByNumber("ORD-00000000-0000"); ok {
		t.Error("expected no match for unknown number")
	}
}

func TestCartAbsentIsEmpty(t *testing.T) {
	s := New()
	cart, err := s.Cart(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Items) != 0 {
		t.Errorf("expected empty cart, got %d items", len(cart.Items))
	}
}

func TestClearCart(t *testing.T) {
	s := New()
	s.Carts.Set("user_1", CartSnapshot{Items: []CartItem{{ProductID: "p1", Quantity: 1}}})

	if err := s.ClearCart(context.Background(), "user_1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, _ := s.Cart(context.Background(), "user_1")
	if len(cart.Items) != 0 {
		t.Error("expected cart to be cleared")
	}
}

func TestSettingsUpdates(t *testing.T) {
	s := New()

	s.SetLoyaltyBonusPercent(decimal.NewFromInt(2))
	if !s.Settings().LoyaltyBonusPercent.Equal(decimal.NewFromInt(2)) {
		t.Errorf("expected bonus percent 2, got %s", s.Settings().LoyaltyBonusPercent)
	}

	s.SetInstallmentConfig(InstallmentConfig{Enabled: true, MinimumAmount: decimal.NewFromInt(50)})
	cfg := s.Settings().Installments
	if !cfg.Enabled || !cfg.MinimumAmount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected installment config: %+v", cfg)
	}
}

func TestSnapshotLoadStateRoundTrip(t *testing.T) {
	s := New()
	s.Users.Set("user_1", User{ID: "user_1", Name: "Aysel", Email: "aysel@example.com"})
	s.Products.Set("prod_1", Product{ID: "prod_1", Name: "Widget", Stock: 5})
	s.SetLoyaltyBonusPercent(decimal.NewFromInt(1))

	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}

	restored := New()
	if err := restored.LoadState(data); err != nil {
		t.Fatalf("load state: %v", err)
	}

	u, ok := restored.Users.Get("user_1")
	if !ok || u.Name != "Aysel" {
		t.Errorf("unexpected restored user: %+v ok=%v", u, ok)
	}
	if !restored.Settings().LoyaltyBonusPercent.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected restored bonus percent 1, got %s", restored.Settings().LoyaltyBonusPercent)
	}
}

func TestReset(t *testing.T) {
	s := New()
	s.Users.Set("user_1", User{ID: "user_1"})
	s.Orders.Set("ord_1", Order{ID: "ord_1"})
	s.SetLoyaltyBonusPercent(decimal.NewFromInt(5))

	s.Reset()

	if s.Users.Count() != 0 || s.Orders.Count() != 0 {
		t.Error("expected stores to be empty after reset")
	}
	if !s.Settings().LoyaltyBonusPercent.IsZero() {
		t.Error("expected settings reset")
	}
}

func TestPaymentStatusTerminal(t *testing.T) {
	terminal := []PaymentStatus{PaymentCompleted, PaymentFailed, PaymentCancelled, PaymentRefunded}
	for _, st := range terminal {
		if !st.Terminal() {
			t.Errorf("expected %s to be terminal", st)
		}
	}
	open := []PaymentStatus{PaymentPending, PaymentInitiated}
	for _, st := range open {
		if st.Terminal() {
			t.Errorf("expected %s to be non-terminal", st)
		}
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	terminal := []OrderStatus{OrderDelivered, OrderCancelled, OrderRefunded, OrderFailed}
	for _, st := range terminal {
		if !st.Terminal() {
			t.Errorf("expected %s to be terminal", st)
		}
	}
	open := []OrderStatus{OrderPending, OrderPaymentInitiated, OrderPaid, OrderProcessing, OrderShipped}
	for _, st := range open {
		if st.Terminal() {
			t.Errorf("expected %s to be non-terminal", st)
		}
	}
}
