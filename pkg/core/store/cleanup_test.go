package store

import (
	"context"
	"testing"
)

func TestCleanupRemovesOrphanFacts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Fact rows pointing at ids that were never created.
	seed := []string{
		`INSERT INTO precos (produto_id, local_id, data) VALUES (99, 99, '2024-01-11')`,
		`INSERT INTO fretes (tipo, origem_id, destino_id, data) VALUES ('rodoviario', 99, 99, '2024-01-11')`,
		`INSERT INTO barter_ratios (cultura, produto_id, data) VALUES ('Soja', 99, '2024-01-11')`,
		`INSERT INTO custos_portos (porto_id, data) VALUES (99, '2024-01-11')`,
	}
	for _, q := range seed {
		if _, err := s.DB().Exec(q); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	stats, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	for _, table := range []string{"precos", "fretes", "barter_ratios", "custos_portos"} {
		if stats.Orphans[table] != 1 {
			t.Errorf("orphans[%s] = %d, want 1", table, stats.Orphans[table])
		}
		if n := countRows(t, s, table); n != 0 {
			t.Errorf("%s = %d rows after cleanup, want 0", table, n)
		}
	}
}

func TestCleanupCollapsesExactDuplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.DB().Exec(`INSERT INTO produtos (nome_produto, tipo, unidade) VALUES ('Ureia', 'Ureia', 'USD/t')`); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	if _, err := s.DB().Exec(`INSERT INTO locais (nome, estado, pais, tipo) VALUES ('Santos', 'SP', 'Brasil', 'porto')`); err != nil {
		t.Fatalf("seed location: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := s.DB().Exec(`
			INSERT INTO precos (produto_id, local_id, data, tipo_preco, modalidade, fonte, moeda, preco_min, preco_max, variacao, simbolo_var)
			VALUES (1, 1, '2024-01-11', 'FOB', 'Spot', 'relatorio', 'USD', 300, 310, 5, '▲')`); err != nil {
			t.Fatalf("seed price %d: %v", i, err)
		}
	}

	stats, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if stats.Duplicates["precos"] != 2 {
		t.Errorf("duplicates[precos] = %d, want 2", stats.Duplicates["precos"])
	}

	// The surviving row is the oldest one.
	var id int64
	if err := s.DB().QueryRow(`SELECT id FROM precos`).Scan(&id); err != nil {
		t.Fatalf("query survivor: %v", err)
	}
	if id != 1 {
		t.Errorf("survivor id = %d, want 1", id)
	}
}

func TestCleanupPurgesAllNullRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.DB().Exec(`INSERT INTO produtos (nome_produto, formulacao, origem, tipo, unidade) VALUES (NULL, NULL, NULL, NULL, NULL)`); err != nil {
		t.Fatalf("seed null product: %v", err)
	}
	if _, err := s.DB().Exec(`INSERT INTO cambio (data, usd_brl) VALUES ('2024-01-11', NULL)`); err != nil {
		t.Fatalf("seed null rate: %v", err)
	}
	if _, err := s.DB().Exec(`INSERT INTO produtos (nome_produto, tipo, unidade) VALUES ('MAP', 'MAP', 'USD/t')`); err != nil {
		t.Fatalf("seed real product: %v", err)
	}

	stats, err := s.Cleanup(ctx)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if stats.NullRows["produtos"] != 1 {
		t.Errorf("null rows[produtos] = %d, want 1", stats.NullRows["produtos"])
	}
	if stats.NullRows["cambio"] != 1 {
		t.Errorf("null rows[cambio] = %d, want 1", stats.NullRows["cambio"])
	}
	// Rows with real data are untouched.
	if n := countRows(t, s, "produtos"); n != 1 {
		t.Errorf("produtos = %d, want 1", n)
	}
}

func TestCleanupOnHealthyDataIsANoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Load(ctx, sampleReport()); err != nil {
		t.Fatalf("load: %v", err)
	}
	before := map[string]int64{}
	for _, table := range []string{"produtos", "locais", "precos", "fretes", "barter_ratios", "cambio", "custos_portos"} {
		before[table] = countRows(t, s, table)
	}

	if _, err := s.Cleanup(ctx); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	for table, want := range before {
		if n := countRows(t, s, table); n != want {
			t.Errorf("%s = %d after cleanup, want %d", table, n, want)
		}
	}
}

func TestDiagnosticsCountsDanglingReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Load(ctx, sampleReport()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := s.DB().Exec(`INSERT INTO precos (produto_id, local_id, data) VALUES (99, 1, '2024-01-11')`); err != nil {
		t.Fatalf("seed dangling price: %v", err)
	}

	report, err := s.Diagnostics(ctx)
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if report.Counts["produtos"] != 1 {
		t.Errorf("counts[produtos] = %d, want 1", report.Counts["produtos"])
	}
	if report.Counts["precos"] != 2 {
		t.Errorf("counts[precos] = %d, want 2", report.Counts["precos"])
	}
	if report.DanglingRef["precos_sem_produto"] != 1 {
		t.Errorf("dangling precos_sem_produto = %d, want 1", report.DanglingRef["precos_sem_produto"])
	}
	if report.DanglingRef["precos_sem_local"] != 0 {
		t.Errorf("dangling precos_sem_local = %d, want 0", report.DanglingRef["precos_sem_local"])
	}
}
