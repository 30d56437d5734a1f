// Command importer runs one report import from the terminal, printing live
// progress. Useful for scheduled imports and for replaying a saved extraction
// artifact without the API server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"morroverde/pkg/core/config"
	"morroverde/pkg/core/llm"
	"morroverde/pkg/core/pipeline"
	"morroverde/pkg/core/progress"
	"morroverde/pkg/core/report"
	"morroverde/pkg/core/store"
)

func main() {
	pdfPath := flag.String("pdf", "", "path to the report PDF")
	artifact := flag.String("json", "", "replay a saved extraction JSON instead of calling the model")
	parts := flag.Int("partes", 0, "number of chunks (default from config)")
	configPath := flag.String("config", "config.yaml", "configuration file")
	flag.Parse()

	if *pdfPath == "" && *artifact == "" {
		fmt.Println("usage: importer -pdf relatorio.pdf [-partes 15] | importer -json saida_extracao.json")
		os.Exit(2)
	}

	godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}
	if *parts != 0 {
		cfg.Parts = *parts
	}

	st, err := store.Open(cfg.DBPath, logger)
	if err != nil {
		fmt.Printf("[FATAL] Could not open database %s: %v\n", cfg.DBPath, err)
		os.Exit(1)
	}
	defer st.Close()

	backups, err := store.NewBackupManager(cfg.DBPath, cfg.BackupDir, cfg.BackupRetain)
	if err != nil {
		fmt.Printf("[FATAL] Could not set up backups: %v\n", err)
		os.Exit(1)
	}

	provider, err := llm.NewProvider(cfg.Provider, cfg.Model)
	if err != nil {
		fmt.Printf("[FATAL] %v\n", err)
		os.Exit(1)
	}

	orch := pipeline.New(&report.PDFReader{}, provider, st, backups, logger, pipeline.Config{
		Parts:        cfg.Parts,
		StatusPath:   cfg.StatusPath,
		ArtifactPath: cfg.ArtifactPath,
		Observer: func(s progress.Status) {
			fmt.Printf("[%3d%%] %s\n", s.Progress, s.Message)
		},
	})

	ctx := context.Background()
	var stats store.LoadStats
	if *artifact != "" {
		stats, err = orch.RunFromArtifact(ctx, *artifact)
	} else {
		stats, err = orch.Run(ctx, *pdfPath)
	}
	if err != nil {
		fmt.Printf("[FATAL] Import failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Done: %d products, %d locations, %d prices, %d freights, %d barter ratios, %d exchange rates, %d port costs (%d entries skipped)\n",
		stats.Products, stats.Locations, stats.Prices, stats.Freights,
		stats.BarterRatios, stats.ExchangeRates, stats.PortCosts, stats.Skipped)
}
