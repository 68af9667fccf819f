package api

import (
	"encoding/json"
	"net/http"

	"github.com/smartteam/settlement/internal/errs"
	"github.com/smartteam/settlement/internal/gateway"
	"github.com/smartteam/settlement/internal/server"
	"github.com/smartteam/settlement/internal/settlement"
	"github.com/smartteam/settlement/internal/store"
)

// InitiatePayment handles POST /payment/initiate. The gateway's answer is
// returned as data either way; only input problems reject the request.
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Customer            store.CustomerInfo `json:"customer"`
		InstallmentOptionID string             `json:"installment_option_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.engine.Initiate(r.Context(), settlement.InitiateRequest{
		UserID:              userID(r),
		Customer:            req.Customer,
		InstallmentOptionID: req.InstallmentOptionID,
	})
	if err != nil {
		server.ErrorFrom(w, err)
		return
	}

	server.JSON(w, http.StatusOK, result)
}

// PaymentResult handles POST /payment/result, the gateway's authoritative
// server-to-server callback. Signature failures and unresolvable identifiers
// are both 400s; replays of settled outcomes are 200s.
func (h *Handler) PaymentResult(w http.ResponseWriter, r *http.Request) {
	var cb gateway.Callback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.engine.HandleCallback(r.Context(), cb); err != nil {
		switch errs.KindOf(err) {
		case errs.KindAuth, errs.KindValidation, errs.KindNotFound:
			server.Error(w, http.StatusBadRequest, err.Error())
		default:
			server.Error(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	server.JSON(w, http.StatusOK, map[string]string{"message": "callback processed"})
}

// PaymentSuccess handles GET /payment/success, the browser's return leg after
// a successful gateway payment. It always redirects to the front end.
func (h *Handler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	target := h.engine.HandleSuccessRedirect(r.Context(), r.URL.Query())
	http.Redirect(w, r, target, http.StatusFound)
}

// PaymentError handles GET /payment/error, the browser's return leg after a
// failed gateway payment. It always redirects to the front end.
func (h *Handler) PaymentError(w http.ResponseWriter, r *http.Request) {
	target := h.engine.HandleErrorRedirect(r.Context(), r.URL.Query())
	http.Redirect(w, r, target, http.StatusFound)
}
