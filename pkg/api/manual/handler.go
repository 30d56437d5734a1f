// Package manual serves the dashboard's manual-entry forms: direct price and
// freight writes that bypass the extractor but share the store's
// find-or-create resolution.
package manual

import (
	"encoding/json"
	"net/http"
	"time"

	"morroverde/pkg/core/store"
)

// PriceRequest is a manually entered price quote.
type PriceRequest struct {
	Product  string  `json:"produto"`
	Location string  `json:"local"`
	Price    float64 `json:"preco"`
	Currency string  `json:"moeda"`
	Date     string  `json:"data"` // YYYY-MM-DD, today when empty
}

// FreightRequest is a manually entered freight cost in USD.
type FreightRequest struct {
	Origin  string  `json:"origem"`
	Dest    string  `json:"destino"`
	CostUSD float64 `json:"custo_usd"`
	Date    string  `json:"data"`
}

type result struct {
	OK      bool   `json:"ok"`
	Message string `json:"mensagem"`
}

// Handler serves the manual-entry endpoints.
type Handler struct {
	store  *store.Store
	backup *store.BackupManager
}

// NewHandler creates the manual-entry handler. backup may be nil.
func NewHandler(st *store.Store, backup *store.BackupManager) *Handler {
	return &Handler{store: st, backup: backup}
}

// HandlePrice inserts one manually entered price.
func (h *Handler) HandlePrice(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req PriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid data: expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if h.backup != nil {
		if err := h.backup.Snapshot("Inserção manual de preço: " + req.Product); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := h.store.SaveManualPrice(r.Context(), req.Product, req.Location, req.Price, req.Currency, date); err != nil {
		json.NewEncoder(w).Encode(result{OK: false, Message: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(result{OK: true, Message: "Preço inserido com sucesso"})
}

// HandleFreight inserts one manually entered freight.
func (h *Handler) HandleFreight(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req FreightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		http.Error(w, "invalid data: expected YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	if h.backup != nil {
		if err := h.backup.Snapshot("Inserção manual de frete: " + req.Origin + " -> " + req.Dest); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := h.store.SaveManualFreight(r.Context(), req.Origin, req.Dest, req.CostUSD, date); err != nil {
		json.NewEncoder(w).Encode(result{OK: false, Message: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(result{OK: true, Message: "Frete inserido com sucesso"})
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Now(), nil
	}
	return time.Parse("2006-01-02", s)
}

func allowCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")
}
