// Package ingest exposes the report import pipeline over HTTP: launching a
// run on a background worker and polling its progress record.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"

	"morroverde/pkg/core/pipeline"
	"morroverde/pkg/core/progress"
)

// ImportRequest launches an ingestion run for a report already on disk.
type ImportRequest struct {
	PDFPath string `json:"caminho_pdf"`
	Parts   int    `json:"partes"`
	// Artifact, when set, replays a saved extraction JSON instead of
	// reading a PDF and calling the model.
	Artifact string `json:"caminho_json"`
}

// ImportResponse acknowledges a launched run.
type ImportResponse struct {
	RunID   string `json:"run_id"`
	Message string `json:"mensagem"`
}

// Handler serves the import and status endpoints. A single import at a time
// is the supported contract; the running flag rejects overlapping launches.
type Handler struct {
	newRun     func(parts int) *pipeline.Orchestrator
	statusPath string
	logger     *slog.Logger
	running    atomic.Bool
}

// NewHandler creates the ingest handler. newRun builds a fresh orchestrator
// for the requested part count.
func NewHandler(newRun func(parts int) *pipeline.Orchestrator, statusPath string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{newRun: newRun, statusPath: statusPath, logger: logger}
}

// HandleImport starts an import on a background worker and returns 202. While
// a run is in flight further launches get 409; the UI is expected to disable
// its import control, this is the backstop.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PDFPath == "" && req.Artifact == "" {
		http.Error(w, "caminho_pdf or caminho_json is required", http.StatusBadRequest)
		return
	}

	if !h.running.CompareAndSwap(false, true) {
		http.Error(w, "an import is already in progress", http.StatusConflict)
		return
	}

	orch := h.newRun(req.Parts)
	go func() {
		defer h.running.Store(false)
		// The worker is detached from the request: the UI observes it only
		// through the status record. There is no cancellation.
		var err error
		if req.Artifact != "" {
			_, err = orch.RunFromArtifact(context.Background(), req.Artifact)
		} else {
			_, err = orch.Run(context.Background(), req.PDFPath)
		}
		if err != nil {
			h.logger.Error("import run failed", slog.String("error", err.Error()))
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(ImportResponse{Message: "Importação iniciada"})
}

// HandleStatus serves the persisted progress record for the UI poll loop.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	allowCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	status, err := progress.ReadStatus(h.statusPath)
	if err != nil {
		// No record yet means no run has happened.
		status = progress.Status{Stage: progress.StageIdle, Message: "Nenhum relatório em processamento"}
	}
	json.NewEncoder(w).Encode(status)
}

// Running reports whether an import is currently in flight.
func (h *Handler) Running() bool { return h.running.Load() }

func allowCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	w.Header().Set("Content-Type", "application/json")
}
