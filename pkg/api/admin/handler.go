// Package admin serves the maintenance surface of the dashboard backend:
// backup/restore, the action log, database cleanup and diagnostics.
package admin

import (
	"encoding/json"
	"net/http"

	"morroverde/pkg/core/store"
)

// Handler holds the store-side dependencies of the admin endpoints.
type Handler struct {
	store  *store.Store
	backup *store.BackupManager
}

// NewHandler creates the admin handler.
func NewHandler(st *store.Store, backup *store.BackupManager) *Handler {
	return &Handler{store: st, backup: backup}
}

// HandleRestore restores the most recent database snapshot and pops the
// matching entry from the action log.
func (h *Handler) HandleRestore(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	undone, err := h.backup.RestoreLatest()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	json.NewEncoder(w).Encode(map[string]string{
		"mensagem":      "Backup restaurado",
		"acao_desfeita": undone,
	})
}

// HandleActions lists the logged mutating actions, oldest first.
func (h *Handler) HandleActions(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	actions, err := h.backup.Actions()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if actions == nil {
		actions = []string{}
	}
	json.NewEncoder(w).Encode(map[string][]string{"acoes": actions})
}

// HandleCleanup runs the post-hoc maintenance routine (orphans, duplicates,
// all-null rows) behind a fresh snapshot.
func (h *Handler) HandleCleanup(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if h.backup != nil {
		if err := h.backup.Snapshot("Limpeza do banco"); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	stats, err := h.store.Cleanup(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(stats)
}

// HandleDiagnostics reports row counts and dangling references.
func (h *Handler) HandleDiagnostics(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	report, err := h.store.Diagnostics(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(report)
}

func allowCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")
}
