package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/smartteam/settlement/internal/server"
	"github.com/smartteam/settlement/internal/store"
)

// ListInstallmentOptions handles GET /installments/options. With an amount
// query parameter it returns only the options a buyer may pick for that
// amount; without one it returns the full catalog.
func (h *Handler) ListInstallmentOptions(w http.ResponseWriter, r *http.Request) {
	var options []store.InstallmentOption
	if raw := r.URL.Query().Get("amount"); raw != "" {
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			server.Error(w, http.StatusBadRequest, "invalid amount")
			return
		}
		options = h.installments.ActiveOptions(amount)
	} else {
		options = h.installments.Options()
	}

	server.JSON(w, http.StatusOK, map[string]any{
		"data":  options,
		"total": len(options),
	})
}

// CreateInstallmentOption handles POST /installments/options.
func (h *Handler) CreateInstallmentOption(w http.ResponseWriter, r *http.Request) {
	var option store.InstallmentOption
	if err := json.NewDecoder(r.Body).Decode(&option); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	created, err := h.installments.Create(option)
	if err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusCreated, created)
}

// UpdateInstallmentOption handles PUT /installments/options/{id}.
func (h *Handler) UpdateInstallmentOption(w http.ResponseWriter, r *http.Request) {
	var option store.InstallmentOption
	if err := json.NewDecoder(r.Body).Decode(&option); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := h.installments.Update(chi.URLParam(r, "id"), option)
	if err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusOK, updated)
}

// DeleteInstallmentOption handles DELETE /installments/options/{id}.
func (h *Handler) DeleteInstallmentOption(w http.ResponseWriter, r *http.Request) {
	if err := h.installments.Delete(chi.URLParam(r, "id")); err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// CalculateInstallment handles POST /installments/calculate.
func (h *Handler) CalculateInstallment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount   decimal.Decimal `json:"amount"`
		OptionID string          `json:"option_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Amount.IsPositive() {
		server.Error(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	calc, err := h.installments.Calculate(req.Amount, req.OptionID)
	if err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusOK, calc)
}

// GetInstallmentConfig handles GET /installments/config.
func (h *Handler) GetInstallmentConfig(w http.ResponseWriter, r *http.Request) {
	server.JSON(w, http.StatusOK, h.installments.Config())
}

// SetInstallmentConfig handles PUT /installments/config.
func (h *Handler) SetInstallmentConfig(w http.ResponseWriter, r *http.Request) {
	var cfg store.InstallmentConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.installments.SetConfig(cfg); err != nil {
		server.ErrorFrom(w, err)
		return
	}
	server.JSON(w, http.StatusOK, h.installments.Config())
}
