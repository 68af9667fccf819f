package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartteam/settlement/internal/server"
	"github.com/smartteam/settlement/internal/store"
)

// GetOrder handles GET /orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ord, err := h.orders.ByID(chi.URLParam(r, "id"))
	if err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusOK, ord)
}

// GetOrderByNumber handles GET /orders/number/{number}.
func (h *Handler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	ord, err := h.orders.ByNumber(chi.URLParam(r, "number"))
	if err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusOK, ord)
}

// ListOrders handles GET /orders with optional user_id and paid filters.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var orders []store.Order
	switch {
	case q.Get("user_id") != "":
		orders = h.orders.ForUser(q.Get("user_id"))
	case q.Get("paid") == "true":
		orders = h.orders.Paid()
	default:
		orders = h.orders.All()
	}

	server.JSON(w, http.StatusOK, map[string]any{
		"data":  orders,
		"total": len(orders),
	})
}

// UpdateOrderStatus handles PUT /orders/{id}/status for the fulfilment tail
// (processing, shipped, delivered, refunded). Settlement-owned transitions
// are not reachable through here.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status store.OrderStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	switch req.Status {
	case store.OrderProcessing, store.OrderShipped, store.OrderDelivered, store.OrderRefunded, store.OrderCancelled:
	default:
		server.Error(w, http.StatusBadRequest, "status not allowed through this endpoint")
		return
	}

	ord, err := h.orders.UpdateStatus(chi.URLParam(r, "id"), req.Status)
	if err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusOK, ord)
}
