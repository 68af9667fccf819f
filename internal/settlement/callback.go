package settlement

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/smartteam/settlement/internal/errs"
	"github.com/smartteam/settlement/internal/gateway"
	"github.com/smartteam/settlement/internal/store"
)

// resolution is what the callback's purchase identifier resolved to.
type resolution struct {
	order       *store.Order
	reservation *store.Reservation
}

// HandleCallback processes the gateway's authoritative server-to-server
// settlement notification. Redelivered callbacks are expected gateway
// behavior: replays of an already-settled outcome succeed without mutating
// anything.
func (e *Engine) HandleCallback(ctx context.Context, cb gateway.Callback) error {
	if !e.codec.VerifyCallback(cb) {
		e.logger.Warn("callback rejected: signature verification failed",
			"order_id", cb.OrderID, "transaction_id", cb.TransactionID)
		return errs.New(errs.KindAuth, "invalid callback signature")
	}

	if cb.OrderID == "" {
		return errs.New(errs.KindValidation, "callback carries no purchase identifier")
	}

	unlock := e.lock(cb.OrderID)
	defer unlock()

	res, err := e.resolve(cb.OrderID)
	if err != nil {
		return err
	}

	payment := e.loadOrSynthesizePayment(cb, res)
	if cb.TransactionID != "" {
		payment.TransactionID = cb.TransactionID
	}

	switch strings.ToLower(cb.Status) {
	case "success", "completed":
		payment = e.settleSuccess(ctx, cb, payment, res)
	case "failed", "error":
		payment = e.settleFailure(cb, payment, res, store.PaymentFailed, store.OrderFailed)
	case "cancelled":
		payment = e.settleFailure(cb, payment, res, store.PaymentCancelled, store.OrderCancelled)
	default:
		// Unknown event, not a failure: record it and wait for a recognized
		// status in a later callback.
		e.logger.Warn("callback carries unrecognized status",
			"order_id", cb.OrderID, "status", cb.Status)
		payment.ErrorMessage = "unrecognized callback status: " + cb.Status
	}

	// The raw payload lands on the payment regardless of branch.
	if raw, err := json.Marshal(cb); err == nil {
		payment.ResponseData = string(raw)
	}
	e.store.Payments.Set(payment.ID, payment)

	e.logger.Info("callback processed",
		"order_id", cb.OrderID, "status", cb.Status, "payment_status", payment.Status)
	return nil
}

// resolve maps the callback's purchase identifier to an existing order (post-
// materialization flow) or a pending reservation. Caller holds the purchase
// lock.
func (e *Engine) resolve(id string) (resolution, error) {
	if ord, ok := e.store.Orders.Get(id); ok {
		return resolution{order: &ord}, nil
	}
	if res, ok := e.store.Reservations.Get(id); ok {
		return resolution{reservation: &res}, nil
	}
	return resolution{}, errs.New(errs.KindNotFound, "no order or reservation for identifier %s", id)
}

// loadOrSynthesizePayment loads the payment for the resolved purchase. A
// missing payment row means initiation state was lost; rather than dropping a
// real-money event, a replacement row is synthesized from the callback and the
// irregularity logged. Caller holds the purchase lock.
func (e *Engine) loadOrSynthesizePayment(cb gateway.Callback, res resolution) store.Payment {
	var target store.PaymentTarget
	if res.order != nil {
		target = store.OrderTarget(res.order.ID)
	} else {
		target = store.ReservationTarget(res.reservation.ID)
	}

	if p, ok := e.store.PaymentByTarget(target.Kind, target.ID); ok {
		return p
	}

	e.logger.Warn("payment row missing for settled purchase, synthesizing from callback",
		"target_kind", target.Kind, "target_id", target.ID)

	transactionID := cb.TransactionID
	if transactionID == "" {
		transactionID = "UNKNOWN_" + uuid.NewString()
	}
	p := store.Payment{
		ID:            uuid.NewString(),
		Target:        target,
		TransactionID: transactionID,
		Amount:        cb.Amount,
		Currency:      cb.Currency,
		Status:        store.PaymentInitiated,
		CreatedAt:     e.store.Clock.Now(),
	}
	e.store.Payments.Set(p.ID, p)
	return p
}

// settleSuccess drives the confirmed-money branch. For the reservation flow
// this is the first and only moment an Order comes into existence. Caller
// holds the purchase lock.
func (e *Engine) settleSuccess(ctx context.Context, cb gateway.Callback, payment store.Payment, res resolution) store.Payment {
	if res.order != nil {
		if payment.Status != store.PaymentCompleted {
			if payment.Status.Terminal() {
				// A success after failed/cancelled would reopen a terminal
				// payment; record, do not transition.
				e.logger.Warn("success callback for terminally settled payment ignored",
					"payment_id", payment.ID, "payment_status", payment.Status)
				return payment
			}
			payment = e.completePayment(payment, cb.TransactionID)
		}
		e.markOrderPaid(ctx, *res.order)
		return payment
	}

	if payment.Status.Terminal() {
		e.logger.Warn("success callback for terminally settled payment ignored",
			"payment_id", payment.ID, "payment_status", payment.Status)
		return payment
	}

	ord, err := e.orders.Materialize(*res.reservation)
	if err != nil {
		// Corrupt snapshot: money moved but the order cannot exist. Keep the
		// payment completed for the audit trail and scream.
		e.logger.Error("order materialization failed for confirmed payment",
			"reservation_id", res.reservation.ID, "err", err)
		payment.ErrorMessage = err.Error()
		return payment
	}

	payment.Target = store.OrderTarget(ord.ID)
	payment = e.completePayment(payment, cb.TransactionID)

	ord.PaymentID = payment.ID
	e.store.Orders.Set(ord.ID, ord)

	e.markOrderPaid(ctx, ord)
	e.store.Reservations.Delete(res.reservation.ID)
	return payment
}

// settleFailure drives the failed and cancelled branches symmetrically.
// Caller holds the purchase lock.
func (e *Engine) settleFailure(cb gateway.Callback, payment store.Payment, res resolution, ps store.PaymentStatus, os store.OrderStatus) store.Payment {
	if payment.Status.Terminal() {
		// Duplicate delivery of a terminal outcome: no further transition.
		return payment
	}

	payment.Status = ps
	payment.ErrorMessage = cb.Message
	e.store.Payments.Set(payment.ID, payment)

	if res.reservation != nil {
		// No order is ever created for an unpaid reservation.
		e.store.Reservations.Delete(res.reservation.ID)
		return payment
	}

	if _, err := e.orders.UpdateStatus(res.order.ID, os); err != nil {
		e.logger.Warn("order status update on settlement failure",
			"order_id", res.order.ID, "err", err)
	}
	return payment
}
