package api

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/smartteam/settlement/internal/server"
)

// GetLoyaltySettings handles GET /settings/loyalty.
func (h *Handler) GetLoyaltySettings(w http.ResponseWriter, r *http.Request) {
	server.JSON(w, http.StatusOK, map[string]any{
		"bonus_percent": h.loyalty.BonusPercent(),
	})
}

// SetLoyaltySettings handles PUT /settings/loyalty.
func (h *Handler) SetLoyaltySettings(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BonusPercent decimal.Decimal `json:"bonus_percent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.loyalty.SetBonusPercent(req.BonusPercent); err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]any{
		"bonus_percent": h.loyalty.BonusPercent(),
	})
}
