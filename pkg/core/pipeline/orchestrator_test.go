package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"morroverde/pkg/core/extract"
	"morroverde/pkg/core/llm"
	"morroverde/pkg/core/progress"
	"morroverde/pkg/core/store"
	"morroverde/pkg/core/utils"
)

type textReader struct {
	text string
	err  error
}

func (r textReader) ReadText(path string) (string, error) {
	return r.text, r.err
}

// flakyProvider fails the first n calls and answers reply afterwards.
type flakyProvider struct {
	failFirst int
	reply     string
	calls     int
}

func (p *flakyProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.calls++
	if p.calls <= p.failFirst {
		return "", errors.New("modelo indisponível")
	}
	return p.reply, nil
}

const chunkReply = `{
  "produtos": [{"nome_produto": "MAP", "formulacao": "11-52", "origem": "Marrocos", "tipo": "MAP", "unidade": "USD/t"}],
  "locais": [], "precos": [], "fretes": [], "barter_ratios": [], "cambio": [], "custos_portos": []
}`

func testStore(t *testing.T) *store.Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st, err := store.Open(filepath.Join(t.TempDir(), "morro_verde.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestRunSkipsFailedChunks(t *testing.T) {
	st := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	provider := &flakyProvider{failFirst: 2, reply: chunkReply}

	orch := New(textReader{text: "um texto de relatório razoavelmente longo"}, provider, st, nil, logger, Config{
		Parts:      4,
		StatusPath: filepath.Join(t.TempDir(), "status.json"),
	})

	stats, err := orch.Run(context.Background(), "relatorio.pdf")
	if err != nil {
		t.Fatalf("run should tolerate chunk failures: %v", err)
	}
	if provider.calls != 4 {
		t.Errorf("provider called %d times, want 4", provider.calls)
	}
	// The two surviving chunks carry the same product, merged to one.
	if stats.Products != 1 {
		t.Errorf("products loaded = %d, want 1", stats.Products)
	}
}

func TestRunFailsWhenReportUnreadable(t *testing.T) {
	st := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	statusPath := filepath.Join(t.TempDir(), "status.json")

	orch := New(textReader{err: errors.New("arquivo corrompido")}, &llm.StubProvider{Reply: chunkReply}, st, nil, logger, Config{
		Parts:      2,
		StatusPath: statusPath,
	})

	if _, err := orch.Run(context.Background(), "relatorio.pdf"); err == nil {
		t.Fatal("expected a fatal error for an unreadable report")
	}

	status, err := progress.ReadStatus(statusPath)
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status.Stage != progress.StageFailed {
		t.Errorf("etapa = %q, want %q", status.Stage, progress.StageFailed)
	}
	if status.Message == "" {
		t.Error("failed status should carry the error message")
	}
}

func TestRunSavesArtifact(t *testing.T) {
	st := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	artifactPath := filepath.Join(t.TempDir(), "saida_extracao.json")

	orch := New(textReader{text: "texto do relatório"}, &llm.StubProvider{Reply: chunkReply}, st, nil, logger, Config{
		Parts:        2,
		StatusPath:   filepath.Join(t.TempDir(), "status.json"),
		ArtifactPath: artifactPath,
	})

	if _, err := orch.Run(context.Background(), "relatorio.pdf"); err != nil {
		t.Fatalf("run: %v", err)
	}

	raw, err := os.ReadFile(artifactPath)
	if err != nil {
		t.Fatalf("artifact not saved: %v", err)
	}
	var combined extract.ReportData
	if err := utils.SmartParse(string(raw), &combined); err != nil {
		t.Fatalf("artifact not parseable: %v", err)
	}
	if len(combined.Products) != 1 {
		t.Errorf("artifact has %d products, want 1", len(combined.Products))
	}
}

func TestRunFromArtifactRejectsGarbage(t *testing.T) {
	st := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := t.TempDir()
	statusPath := filepath.Join(root, "status.json")

	orch := New(textReader{}, &llm.StubProvider{}, st, nil, logger, Config{
		StatusPath: statusPath,
	})

	// Bytes that are not JSON at all must fail the replay, not quietly load
	// an empty report.
	artifact := filepath.Join(root, "lixo.json")
	if err := os.WriteFile(artifact, []byte("\x00\x01garbage not json"), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if _, err := orch.RunFromArtifact(context.Background(), artifact); err == nil {
		t.Fatal("expected an error for a garbage artifact")
	}

	status, err := progress.ReadStatus(statusPath)
	if err != nil {
		t.Fatalf("read status: %v", err)
	}
	if status.Stage != progress.StageFailed {
		t.Errorf("etapa = %q, want %q", status.Stage, progress.StageFailed)
	}

	var rows int
	if err := st.DB().QueryRow(`SELECT COUNT(*) FROM produtos`).Scan(&rows); err != nil {
		t.Fatalf("count produtos: %v", err)
	}
	if rows != 0 {
		t.Errorf("produtos = %d, nothing should have loaded", rows)
	}
}

func TestRunFromArtifactRejectsJSONWithoutSections(t *testing.T) {
	st := testStore(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := t.TempDir()

	orch := New(textReader{}, &llm.StubProvider{}, st, nil, logger, Config{
		StatusPath: filepath.Join(root, "status.json"),
	})

	// Valid JSON carrying none of the seven section keys is not a report.
	artifact := filepath.Join(root, "outro.json")
	if err := os.WriteFile(artifact, []byte(`{"observacoes": "nada aqui"}`), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if _, err := orch.RunFromArtifact(context.Background(), artifact); err == nil {
		t.Fatal("expected an error for an artifact with no sections")
	}

	// An artifact with empty sections is a valid empty report.
	empty := filepath.Join(root, "vazio.json")
	if err := os.WriteFile(empty, []byte(`{"produtos": []}`), 0644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	if _, err := orch.RunFromArtifact(context.Background(), empty); err != nil {
		t.Fatalf("empty sections should replay cleanly: %v", err)
	}
}

func TestRunTakesSnapshotBeforeLoading(t *testing.T) {
	root := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	dbPath := filepath.Join(root, "morro_verde.db")
	st, err := store.Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	backups, err := store.NewBackupManager(dbPath, filepath.Join(root, "backups"), 0)
	if err != nil {
		t.Fatalf("backup manager: %v", err)
	}

	orch := New(textReader{text: "texto do relatório"}, &llm.StubProvider{Reply: chunkReply}, st, backups, logger, Config{
		Parts:      1,
		StatusPath: filepath.Join(root, "status.json"),
	})

	if _, err := orch.Run(context.Background(), "relatorio.pdf"); err != nil {
		t.Fatalf("run: %v", err)
	}

	actions, err := backups.Actions()
	if err != nil {
		t.Fatalf("actions: %v", err)
	}
	if len(actions) != 1 {
		t.Fatalf("got %d logged actions, want 1", len(actions))
	}
}
