package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/padmaraj-kv/powersplit-sub000/internal/payment"
	"github.com/padmaraj-kv/powersplit-sub000/internal/storage"
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) handleBillStatus(w http.ResponseWriter, r *http.Request) {
	billID := mux.Vars(r)["bill_id"]

	bill, err := a.bills.GetBill(r.Context(), billID)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "bill not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Failed to load bill", "bill_id", billID, "error", err)
		http.Error(w, "failed to load bill", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, payment.StatusOf(bill))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
