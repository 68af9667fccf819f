// Package order turns validated reservation snapshots into persisted orders
// and serves order queries. Orders are only ever created here, and only from
// a reservation whose payment has been confirmed.
package order

import (
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/smartteam/settlement/internal/errs"
	"github.com/smartteam/settlement/internal/store"
)

// Materializer constructs orders from reservation snapshots.
type Materializer struct {
	store  *store.MemoryStore
	logger *slog.Logger
}

// NewMaterializer creates a Materializer.
func NewMaterializer(s *store.MemoryStore, logger *slog.Logger) *Materializer {
	return &Materializer{store: s, logger: logger}
}

// Materialize builds an Order plus its items from the reservation's frozen
// cart and customer snapshots and persists them as one unit. A reservation
// with an empty or unparsable snapshot indicates data corruption and fails
// with a validation error; no order is written.
func (m *Materializer) Materialize(res store.Reservation) (store.Order, error) {
	var cart store.CartSnapshot
	if err := json.Unmarshal([]byte(res.CartJSON), &cart); err != nil {
		return store.Order{}, errs.Wrap(errs.KindValidation, err,
			"reservation %s has an unparsable cart snapshot", res.ID)
	}
	if len(cart.Items) == 0 {
		return store.Order{}, errs.New(errs.KindValidation,
			"reservation %s has an empty cart snapshot", res.ID)
	}

	var customer store.CustomerInfo
	if err := json.Unmarshal([]byte(res.CustomerJSON), &customer); err != nil {
		return store.Order{}, errs.Wrap(errs.KindValidation, err,
			"reservation %s has an unparsable customer snapshot", res.ID)
	}

	now := m.store.Clock.Now()
	order := store.Order{
		// The order keeps the reservation's identifier so the gateway's
		// purchase id resolves to it after the reservation is gone.
		ID:              res.ID,
		Number:          m.store.NewOrderNumber(now),
		UserID:          res.UserID,
		SubTotal:        cart.SubTotal,
		DiscountAmount:  cart.DiscountAmount,
		TotalAmount:     res.TotalAmount,
		PromoCode:       cart.PromoCode,
		PromoPercentage: cart.PromoPercentage,
		Status:          store.OrderPending,
		Customer:        customer,
		CreatedAt:       now,
	}

	for _, item := range cart.Items {
		order.Items = append(order.Items, store.OrderItem{
			ID:          uuid.NewString(),
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			ProductSKU:  item.ProductSKU,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}

	m.store.Orders.Set(order.ID, order)
	m.logger.Info("order materialized",
		"order_id", order.ID, "order_number", order.Number, "total", order.TotalAmount.StringFixed(2))
	return order, nil
}

// ByID returns an order by identifier.
func (m *Materializer) ByID(id string) (store.Order, error) {
	order, ok := m.store.Orders.Get(id)
	if !ok {
		return store.Order{}, errs.New(errs.KindNotFound, "order %s not found", id)
	}
	return order, nil
}

// ByNumber returns an order by its human-readable number.
func (m *Materializer) ByNumber(number string) (store.Order, error) {
	order, ok := m.store.OrderByNumber(number)
	if !ok {
		return store.Order{}, errs.New(errs.KindNotFound, "order %s not found", number)
	}
	return order, nil
}

// ForUser returns a user's orders, newest first.
func (m *Materializer) ForUser(userID string) []store.Order {
	orders := m.store.Orders.Filter(func(_ string, o store.Order) bool {
		return o.UserID == userID
	})
	sortNewestFirst(orders)
	return orders
}

// All returns every order, newest first.
func (m *Materializer) All() []store.Order {
	orders := m.store.Orders.List()
	sortNewestFirst(orders)
	return orders
}

// Paid returns orders whose payment completed, newest first.
func (m *Materializer) Paid() []store.Order {
	completed := make(map[string]bool)
	for _, p := range m.store.Payments.Filter(func(_ string, p store.Payment) bool {
		return p.Status == store.PaymentCompleted && p.Target.Kind == store.TargetOrder
	}) {
		completed[p.Target.ID] = true
	}

	orders := m.store.Orders.Filter(func(id string, _ store.Order) bool {
		return completed[id]
	})
	sortNewestFirst(orders)
	return orders
}

// UpdateStatus moves an order along the fulfilment tail. Terminal states are
// final: once an order is failed, cancelled, refunded, or delivered, the only
// permitted follow-up is an administrative refund of a delivered order.
func (m *Materializer) UpdateStatus(id string, status store.OrderStatus) (store.Order, error) {
	order, ok := m.store.Orders.Get(id)
	if !ok {
		return store.Order{}, errs.New(errs.KindNotFound, "order %s not found", id)
	}

	if order.Status.Terminal() && !(order.Status == store.OrderDelivered && status == store.OrderRefunded) {
		return store.Order{}, errs.New(errs.KindConflict,
			"order %s is %s and cannot move to %s", id, order.Status, status)
	}

	now := m.store.Clock.Now()
	order.Status = status
	order.UpdatedAt = &now
	m.store.Orders.Set(id, order)
	return order, nil
}

func sortNewestFirst(orders []store.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
