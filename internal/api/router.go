// Package api exposes the settlement pipeline over HTTP: payment initiation,
// the gateway's callback and redirect entry points, and the read/admin
// surfaces for orders, wallets, installments, and loyalty settings.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"github.com/smartteam/settlement/internal/installment"
	"github.com/smartteam/settlement/internal/loyalty"
	"github.com/smartteam/settlement/internal/order"
	"github.com/smartteam/settlement/internal/server"
	"github.com/smartteam/settlement/internal/settlement"
	"github.com/smartteam/settlement/internal/store"
)

type contextKey string

const userIDCtxKey contextKey = "user_id"

// Handler holds the API handler state.
type Handler struct {
	store        *store.MemoryStore
	engine       *settlement.Engine
	orders       *order.Materializer
	loyalty      *loyalty.Service
	installments *installment.Service
	jwtSecret    string
	logger       *slog.Logger
}

// NewHandler creates the API handler.
func NewHandler(
	s *store.MemoryStore,
	engine *settlement.Engine,
	orders *order.Materializer,
	loyaltySvc *loyalty.Service,
	installments *installment.Service,
	jwtSecret string,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		store:        s,
		engine:       engine,
		orders:       orders,
		loyalty:      loyaltySvc,
		installments: installments,
		jwtSecret:    jwtSecret,
		logger:       logger,
	}
}

// Routes mounts all endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/payment", func(r chi.Router) {
		r.With(h.identity).Post("/initiate", h.InitiatePayment)
		r.Post("/result", h.PaymentResult)
		r.Get("/success", h.PaymentSuccess)
		r.Get("/error", h.PaymentError)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Get("/number/{number}", h.GetOrderByNumber)
		r.Put("/{id}/status", h.UpdateOrderStatus)
	})

	r.Route("/wallet", func(r chi.Router) {
		r.Get("/{userID}", h.GetWallet)
		r.Get("/{userID}/transactions", h.GetWalletTransactions)
	})

	r.Route("/installments", func(r chi.Router) {
		r.Get("/options", h.ListInstallmentOptions)
		r.Post("/options", h.CreateInstallmentOption)
		r.Put("/options/{id}", h.UpdateInstallmentOption)
		r.Delete("/options/{id}", h.DeleteInstallmentOption)
		r.Post("/calculate", h.CalculateInstallment)
		r.Get("/config", h.GetInstallmentConfig)
		r.Put("/config", h.SetInstallmentConfig)
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/loyalty", h.GetLoyaltySettings)
		r.Put("/loyalty", h.SetLoyaltySettings)
	})
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	server.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// identity extracts an optional user identity from a Bearer token. Purchases
// are allowed anonymously, so a missing or invalid token degrades to an
// anonymous request rather than rejecting it.
func (h *Handler) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if h.jwtSecret == "" || !strings.HasPrefix(auth, "Bearer ") {
			next.ServeHTTP(w, r)
			return
		}

		token, err := jwt.Parse(strings.TrimPrefix(auth, "Bearer "), func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			h.logger.Debug("ignoring invalid bearer token", "err", err)
			next.ServeHTTP(w, r)
			return
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := context.WithValue(r.Context(), userIDCtxKey, sub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userID returns the authenticated user id, or "" for anonymous requests.
func userID(r *http.Request) string {
	if v, ok := r.Context().Value(userIDCtxKey).(string); ok {
		return v
	}
	return ""
}
