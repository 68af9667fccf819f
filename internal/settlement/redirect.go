package settlement

import (
	"context"
	"net/url"
	"strings"

	"github.com/smartteam/settlement/internal/store"
)

// The gateway's browser redirects carry identifiers under inconsistent names
// depending on deployment configuration, so every known variant is probed.
var (
	orderParamNames       = []string{"order_id", "order", "orderId", "order_number", "orderNumber"}
	transactionParamNames = []string{"transaction_id", "transaction", "transactionId", "trans_id"}
)

func probeParam(q url.Values, names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// HandleSuccessRedirect is the best-effort fallback entry point used when the
// browser returns from the gateway before (or instead of) the authoritative
// callback. It may only corroborate a success against an existing
// non-terminal payment whose transaction id is absent, a placeholder, or a
// match; it can never forge a success from nothing. Every failure inside is
// swallowed so the user's redirect is never blocked.
//
// The return value is the front-end URL to bounce the browser to.
func (e *Engine) HandleSuccessRedirect(ctx context.Context, q url.Values) string {
	orderID := probeParam(q, orderParamNames)
	transactionID := probeParam(q, transactionParamNames)

	e.logger.Info("success redirect received",
		"order_id", orderID, "transaction_id", transactionID, "raw_query", q.Encode())

	if orderID != "" {
		e.corroborateSuccess(ctx, orderID, transactionID)
	}

	return e.cfg.FrontendSuccessURL +
		"?orderId=" + url.QueryEscape(orderID) +
		"&transactionId=" + url.QueryEscape(transactionID) +
		"&status=paid"
}

// corroborateSuccess applies the failsafe completion when the redirect's
// claims line up with stored state. Only an already-materialized order can be
// advanced here; a bare reservation waits for the signed callback.
func (e *Engine) corroborateSuccess(ctx context.Context, orderID, transactionID string) {
	unlock := e.lock(orderID)
	defer unlock()

	ord, ok := e.store.Orders.Get(orderID)
	if !ok {
		// Reservation-only purchase or unknown id: nothing to corroborate.
		e.logger.Info("success redirect for unmaterialized purchase, awaiting callback", "order_id", orderID)
		return
	}
	if ord.Status == store.OrderPaid {
		return
	}

	payment, ok := e.store.PaymentByTarget(store.TargetOrder, orderID)
	if !ok || payment.Status.Terminal() {
		return
	}

	corroborated := transactionID == "" ||
		payment.TransactionID == transactionID ||
		strings.HasPrefix(payment.TransactionID, "TEMP")
	if !corroborated {
		e.logger.Warn("success redirect transaction id mismatch, ignoring",
			"order_id", orderID, "redirect_transaction_id", transactionID)
		return
	}

	e.logger.Info("failsafe: completing payment from success redirect", "order_id", orderID)
	e.completePayment(payment, transactionID)
	e.markOrderPaid(ctx, ord)
}

// HandleErrorRedirect is the failure-side fallback. It marks a still-open
// payment failed and tears down its reservation or order, then bounces the
// browser to the front-end error page. Like the success side, it never
// surfaces an error to the user.
func (e *Engine) HandleErrorRedirect(ctx context.Context, q url.Values) string {
	_ = ctx
	orderID := probeParam(q, orderParamNames)
	transactionID := probeParam(q, transactionParamNames)
	message := strings.TrimSpace(q.Get("message"))

	e.logger.Info("error redirect received",
		"order_id", orderID, "transaction_id", transactionID, "message", message, "raw_query", q.Encode())

	if orderID != "" {
		e.corroborateFailure(orderID, message)
	}

	return e.cfg.FrontendErrorURL +
		"?orderId=" + url.QueryEscape(orderID) +
		"&transactionId=" + url.QueryEscape(transactionID) +
		"&message=" + url.QueryEscape(message) +
		"&status=failed"
}

func (e *Engine) corroborateFailure(purchaseID, message string) {
	unlock := e.lock(purchaseID)
	defer unlock()

	res, err := e.resolve(purchaseID)
	if err != nil {
		// Already settled, expired, or never ours. Benign for this path.
		e.logger.Info("error redirect for unknown purchase", "order_id", purchaseID)
		return
	}

	var target store.PaymentTarget
	if res.order != nil {
		target = store.OrderTarget(res.order.ID)
	} else {
		target = store.ReservationTarget(res.reservation.ID)
	}

	payment, ok := e.store.PaymentByTarget(target.Kind, target.ID)
	if !ok || payment.Status.Terminal() {
		return
	}

	e.logger.Info("failsafe: marking payment failed from error redirect", "order_id", purchaseID)
	payment.Status = store.PaymentFailed
	payment.ErrorMessage = message
	e.store.Payments.Set(payment.ID, payment)

	if res.reservation != nil {
		e.store.Reservations.Delete(res.reservation.ID)
		return
	}
	if _, err := e.orders.UpdateStatus(res.order.ID, store.OrderFailed); err != nil {
		e.logger.Warn("order status update from error redirect", "order_id", res.order.ID, "err", err)
	}
}
