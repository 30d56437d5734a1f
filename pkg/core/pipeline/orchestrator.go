// Package pipeline drives a full ingestion run: read the report, segment it,
// extract each chunk through the model, merge the per-chunk results and load
// them into the store, reporting progress along the way.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"morroverde/pkg/core/extract"
	"morroverde/pkg/core/llm"
	"morroverde/pkg/core/merge"
	"morroverde/pkg/core/progress"
	"morroverde/pkg/core/report"
	"morroverde/pkg/core/store"
	"morroverde/pkg/core/utils"
)

// Config carries the per-run settings of the orchestrator.
type Config struct {
	// Parts is the requested chunk count (clamped to 1..report.MaxParts).
	Parts int
	// StatusPath is where the progress record is persisted for polling.
	StatusPath string
	// ArtifactPath is where the combined JSON result is saved after merging,
	// both for inspection and for replay with RunFromArtifact.
	ArtifactPath string
	// Observer, when set, receives every progress update in-process.
	Observer progress.Observer
}

// Orchestrator wires the pipeline stages together. One orchestrator runs one
// import at a time; the HTTP layer guards against concurrent launches.
type Orchestrator struct {
	reader    report.Reader
	extractor *extract.Extractor
	store     *store.Store
	backups   *store.BackupManager
	logger    *slog.Logger
	cfg       Config
}

// New creates an orchestrator. backups may be nil, in which case no snapshot
// is taken before loading.
func New(reader report.Reader, provider llm.Provider, st *store.Store, backups *store.BackupManager, logger *slog.Logger, cfg Config) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StatusPath == "" {
		cfg.StatusPath = "progresso.json"
	}
	return &Orchestrator{
		reader:    reader,
		extractor: extract.NewExtractor(provider),
		store:     st,
		backups:   backups,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run executes a full import of the report at pdfPath. Chunk-level failures
// are logged and skipped; acquisition and load failures are fatal to the run
// and leave the status record in the failed state with the error message.
func (o *Orchestrator) Run(ctx context.Context, pdfPath string) (store.LoadStats, error) {
	runID := uuid.NewString()
	reporter := progress.NewReporter(o.cfg.StatusPath, runID, o.cfg.Observer)
	logger := o.logger.With(slog.String("run_id", runID))

	stats, err := o.run(ctx, pdfPath, reporter, logger)
	if err != nil {
		reporter.Report(progress.StageFailed, reporter.Last().Progress, fmt.Sprintf("Erro: %v", err))
		return stats, err
	}
	return stats, nil
}

func (o *Orchestrator) run(ctx context.Context, pdfPath string, reporter *progress.Reporter, logger *slog.Logger) (store.LoadStats, error) {
	var stats store.LoadStats

	reporter.Report(progress.StageReading, 0, "Lendo o relatório PDF...")
	text, err := o.reader.ReadText(pdfPath)
	if err != nil {
		return stats, fmt.Errorf("read report: %w", err)
	}

	reporter.Report(progress.StageSegmenting, 0, "Dividindo o texto em partes...")
	parts := report.ClampParts(o.cfg.Parts, len(text))
	chunks := report.Split(text, parts)
	logger.Info("report segmented",
		slog.Int("parts", len(chunks)), slog.Int("text_len", len(text)))

	results := make([]*extract.ReportData, 0, len(chunks))
	for i, chunk := range chunks {
		msg := fmt.Sprintf("Processando parte %d/%d com o modelo...", i+1, len(chunks))
		data, err := o.extractor.Extract(ctx, chunk)
		if err != nil {
			// Per-chunk failure: the chunk contributes nothing, the run goes on.
			logger.Warn("chunk extraction failed",
				slog.Int("part", i+1), slog.String("error", err.Error()))
		} else {
			results = append(results, data)
		}
		pct := (i + 1) * 100 / len(chunks)
		reporter.Report(progress.StageExtracting, pct, msg)
	}

	reporter.Report(progress.StageMerging, reporter.Last().Progress, "Combinando os resultados...")
	combined := merge.Combine(results...)

	if o.cfg.ArtifactPath != "" {
		if err := saveArtifact(o.cfg.ArtifactPath, combined); err != nil {
			// The artifact is a convenience copy; losing it does not abort the run.
			logger.Warn("could not save extraction artifact", slog.String("error", err.Error()))
		}
	}

	return o.load(ctx, combined, reporter, logger)
}

// RunFromArtifact loads a previously saved combined JSON artifact instead of
// calling the model, then runs the load stage. Artifacts may have been
// truncated or edited by hand, so parsing is lenient.
func (o *Orchestrator) RunFromArtifact(ctx context.Context, artifactPath string) (store.LoadStats, error) {
	runID := uuid.NewString()
	reporter := progress.NewReporter(o.cfg.StatusPath, runID, o.cfg.Observer)
	logger := o.logger.With(slog.String("run_id", runID))

	reporter.Report(progress.StageReading, 0, "Usando JSON salvo...")
	raw, err := os.ReadFile(artifactPath)
	if err != nil {
		err = fmt.Errorf("read artifact: %w", err)
		reporter.Report(progress.StageFailed, 0, fmt.Sprintf("Erro: %v", err))
		return store.LoadStats{}, err
	}

	var combined extract.ReportData
	if err := utils.SmartParse(string(raw), &combined); err != nil {
		err = fmt.Errorf("parse artifact %s: %w", artifactPath, err)
		reporter.Report(progress.StageFailed, 0, fmt.Sprintf("Erro: %v", err))
		return store.LoadStats{}, err
	}
	if !hasReportSections(&combined) {
		err := fmt.Errorf("artifact %s contains no report sections", artifactPath)
		reporter.Report(progress.StageFailed, 0, fmt.Sprintf("Erro: %v", err))
		return store.LoadStats{}, err
	}
	extract.Normalize(&combined)

	stats, err := o.load(ctx, &combined, reporter, logger)
	if err != nil {
		reporter.Report(progress.StageFailed, reporter.Last().Progress, fmt.Sprintf("Erro: %v", err))
	}
	return stats, err
}

func (o *Orchestrator) load(ctx context.Context, combined *extract.ReportData, reporter *progress.Reporter, logger *slog.Logger) (store.LoadStats, error) {
	reporter.Report(progress.StageLoading, reporter.Last().Progress, "Inserindo dados no banco...")

	if o.backups != nil {
		if err := o.backups.Snapshot("Importação de relatório"); err != nil {
			return store.LoadStats{}, fmt.Errorf("pre-load snapshot: %w", err)
		}
	}

	stats, err := o.store.Load(ctx, combined)
	if err != nil {
		return stats, fmt.Errorf("load report data: %w", err)
	}

	logger.Info("report loaded",
		slog.Int("products", stats.Products),
		slog.Int("locations", stats.Locations),
		slog.Int("prices", stats.Prices),
		slog.Int("freights", stats.Freights),
		slog.Int("barter_ratios", stats.BarterRatios),
		slog.Int("exchange_rates", stats.ExchangeRates),
		slog.Int("port_costs", stats.PortCosts),
		slog.Int("skipped", stats.Skipped))

	reporter.Report(progress.StageDone, 100, "Dados inseridos com sucesso no banco!")
	return stats, nil
}

// hasReportSections reports whether at least one of the seven lists was
// present in the artifact. Empty lists count: a report with nothing in it is
// a valid (if useless) artifact, a JSON value with none of the section keys
// is not a report at all.
func hasReportSections(data *extract.ReportData) bool {
	return data.Products != nil ||
		data.Locations != nil ||
		data.Prices != nil ||
		data.Freights != nil ||
		data.BarterRatios != nil ||
		data.ExchangeRates != nil ||
		data.PortCosts != nil
}

func saveArtifact(path string, data *extract.ReportData) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0644)
}
