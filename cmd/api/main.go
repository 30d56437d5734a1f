package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"morroverde/pkg/api/admin"
	"morroverde/pkg/api/ingest"
	"morroverde/pkg/api/manual"
	"morroverde/pkg/core/config"
	"morroverde/pkg/core/llm"
	"morroverde/pkg/core/pipeline"
	"morroverde/pkg/core/report"
	"morroverde/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Printf("[FATAL] Could not load configuration: %v\n", err)
		os.Exit(1)
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
	newRun := func(parts int) *pipeline.Orchestrator {
		if parts == 0 {
			parts = cfg.Parts
		}
		return pipeline.New(&report.PDFReader{}, provider, st, backups, logger, pipeline.Config{
			Parts:        parts,
			StatusPath:   cfg.StatusPath,
			ArtifactPath: cfg.ArtifactPath,
		})
	}

	// Report import endpoints
	ingestHandler := ingest.NewHandler(newRun, cfg.StatusPath, logger)
	http.HandleFunc("/api/relatorio/importar", ingestHandler.HandleImport)
	http.HandleFunc("/api/relatorio/status", ingestHandler.HandleStatus)

	// Manual entry endpoints
	manualHandler := manual.NewHandler(st, backups)
	http.HandleFunc("/api/manual/preco", manualHandler.HandlePrice)
	http.HandleFunc("/api/manual/frete", manualHandler.HandleFreight)

	// Maintenance endpoints
	adminHandler := admin.NewHandler(st, backups)
	http.HandleFunc("/api/backup/restaurar", adminHandler.HandleRestore)
	http.HandleFunc("/api/backup/acoes", adminHandler.HandleActions)
	http.HandleFunc("/api/manutencao/limpar", adminHandler.HandleCleanup)
	http.HandleFunc("/api/manutencao/diagnostico", adminHandler.HandleDiagnostics)

	fmt.Printf("API server starting on %s...\n", cfg.ListenAddr)
	fmt.Println("  - POST /api/relatorio/importar")
	fmt.Println("  - GET  /api/relatorio/status")
	fmt.Println("  - POST /api/manual/preco")
	fmt.Println("  - POST /api/manual/frete")
	fmt.Println("  - POST /api/backup/restaurar")
	fmt.Println("  - GET  /api/backup/acoes")
	fmt.Println("  - POST /api/manutencao/limpar")
	fmt.Println("  - GET  /api/manutencao/diagnostico")

	if err := http.ListenAndServe(cfg.ListenAddr, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
