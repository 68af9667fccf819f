package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/smartteam/settlement/internal/server"
)

// GetWallet handles GET /wallet/{userID}. Users without a wallet get a zero
// balance, not a 404; wallets are created lazily on first credit.
func (h *Handler) GetWallet(w http.ResponseWriter, r *http.Request) {
	server.JSON(w, http.StatusOK, h.loyalty.Wallet(chi.URLParam(r, "userID")))
}

// GetWalletTransactions handles GET /wallet/{userID}/transactions, newest
// first.
func (h *Handler) GetWalletTransactions(w http.ResponseWriter, r *http.Request) {
	txns := h.loyalty.Transactions(chi.URLParam(r, "userID"))
	server.JSON(w, http.StatusOK, map[string]any{
		"data":  txns,
		"total": len(txns),
	})
}
