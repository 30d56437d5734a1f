// Package progress reports ingestion progress to two consumers at once: an
// in-process observer callback for live feedback, and a durable status record
// on disk that a separate UI process polls. The worker owns the record; the
// UI only ever reads it.
package progress

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Stage names the steps of a single ingestion run.
type Stage string

const (
	StageIdle       Stage = "ocioso"
	StageReading    Stage = "lendo"
	StageSegmenting Stage = "segmentando"
	StageExtracting Stage = "extraindo"
	StageMerging    Stage = "combinando"
	StageLoading    Stage = "carregando"
	StageDone       Stage = "concluido"
	StageFailed     Stage = "falhou"
)

// Status is the persisted progress record, overwritten on every update.
type Status struct {
	RunID     string `json:"run_id"`
	Stage     Stage  `json:"etapa"`
	Progress  int    `json:"progresso"`
	Message   string `json:"mensagem"`
	UpdatedAt string `json:"atualizado_em"`
}

// Observer receives every status update as it happens.
type Observer func(Status)

// Reporter writes status updates. It assumes a single writer; concurrent
// ingestion runs are not a supported configuration.
type Reporter struct {
	path     string
	runID    string
	observer Observer
	last     Status
}

// NewReporter creates a reporter persisting to path. observer may be nil.
func NewReporter(path, runID string, observer Observer) *Reporter {
	return &Reporter{path: path, runID: runID, observer: observer}
}

// Report records a progress update. The percentage is clamped to 0..100.
// The record is written to a temp file and renamed into place so a polling
// reader never observes a partially written record.
func (r *Reporter) Report(stage Stage, pct int, message string) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}

	status := Status{
		RunID:     r.runID,
		Stage:     stage,
		Progress:  pct,
		Message:   message,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}
	r.last = status

	if r.observer != nil {
		r.observer(status)
	}

	// Status persistence is best effort: a failed write must never take the
	// pipeline down with it.
	_ = writeStatus(r.path, status)
}

// Last returns the most recently reported status.
func (r *Reporter) Last() Status { return r.last }

func writeStatus(path string, status Status) error {
	data, err := json.Marshal(status)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ReadStatus loads the persisted status record; used by the polling side.
func ReadStatus(path string) (Status, error) {
	var status Status
	data, err := os.ReadFile(path)
	if err != nil {
		return status, fmt.Errorf("read status record: %w", err)
	}
	if err := json.Unmarshal(data, &status); err != nil {
		return status, fmt.Errorf("decode status record: %w", err)
	}
	return status, nil
}
