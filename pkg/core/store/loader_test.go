package store

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"morroverde/pkg/core/extract"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := Open(filepath.Join(t.TempDir(), "morro_verde.db"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func countRows(t *testing.T, s *Store, table string) int64 {
	t.Helper()
	var n int64
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func sampleReport() *extract.ReportData {
	product := extract.Product{
		Name:   "Ureia",
		Origin: extract.StrPtr("Brasil"),
		Type:   "Ureia",
		Unit:   "USD/t",
	}
	santos := extract.Location{Name: "Santos", State: extract.StrPtr("SP"), Country: "Brasil", Kind: "porto"}
	rondonopolis := extract.Location{Name: "Rondonópolis", State: extract.StrPtr("MT"), Country: "Brasil", Kind: "cidade"}

	return &extract.ReportData{
		Products:  []extract.Product{product},
		Locations: []extract.Location{santos, rondonopolis},
		Prices: []extract.Price{
			{
				Product:   extract.ProductRef{Product: &product},
				Location:  extract.LocationRef{Location: &santos},
				Date:      "2024-01-11",
				PriceType: extract.StrPtr("FOB"),
				Modality:  "Spot",
				Source:    "relatorio",
				Currency:  "USD",
				MinPrice:  extract.FloatPtr(300),
				MaxPrice:  extract.FloatPtr(310),
				Variation: extract.FloatPtr(5),
				VarSymbol: "▲",
			},
		},
		Freights: []extract.Freight{
			{
				Mode:    "rodoviario",
				Origin:  extract.LocationRef{Location: &santos},
				Dest:    extract.LocationRef{Location: &rondonopolis},
				Date:    "2024-01-11",
				CostUSD: extract.FloatPtr(38),
				CostBRL: extract.FloatPtr(209),
			},
		},
		BarterRatios: []extract.BarterRatio{
			{
				Crop:      "Soja",
				Product:   extract.ProductRef{Product: &product},
				State:     "MT",
				Date:      "2024-01-11",
				CropPrice: extract.FloatPtr(115),
				Ratio:     extract.FloatPtr(2.6),
			},
		},
		ExchangeRates: []extract.ExchangeRate{
			{Date: "2024-01-11", USDBRL: extract.FloatPtr(4.92)},
		},
		PortCosts: []extract.PortCost{
			{Port: "Paranaguá", Date: "2024-01-11", Storage: extract.FloatPtr(8), Demurrage: extract.FloatPtr(15), Total: extract.FloatPtr(23)},
		},
	}
}

func TestLoadInsertsAllSections(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.Load(ctx, sampleReport())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stats.Skipped != 0 {
		t.Errorf("skipped %d entries, want 0", stats.Skipped)
	}

	if n := countRows(t, s, "produtos"); n != 1 {
		t.Errorf("produtos = %d, want 1", n)
	}
	// Santos, Rondonópolis, plus the port location created for the port cost.
	if n := countRows(t, s, "locais"); n != 3 {
		t.Errorf("locais = %d, want 3", n)
	}
	for table, want := range map[string]int64{
		"precos": 1, "fretes": 1, "barter_ratios": 1, "cambio": 1, "custos_portos": 1,
	} {
		if n := countRows(t, s, table); n != want {
			t.Errorf("%s = %d, want %d", table, n, want)
		}
	}
}

func TestLoadTwiceKeepsEntityCountsStable(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Load(ctx, sampleReport()); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := s.Load(ctx, sampleReport()); err != nil {
		t.Fatalf("second load: %v", err)
	}

	// Entities resolve by natural key: repeating the run creates no new rows.
	if n := countRows(t, s, "produtos"); n != 1 {
		t.Errorf("produtos = %d, want 1", n)
	}
	if n := countRows(t, s, "locais"); n != 3 {
		t.Errorf("locais = %d, want 3", n)
	}
	// Fact rows are append-only.
	if n := countRows(t, s, "precos"); n != 2 {
		t.Errorf("precos = %d, want 2", n)
	}
	if n := countRows(t, s, "fretes"); n != 2 {
		t.Errorf("fretes = %d, want 2", n)
	}
	// One exchange rate per date regardless of how often it is loaded.
	if n := countRows(t, s, "cambio"); n != 1 {
		t.Errorf("cambio = %d, want 1", n)
	}
}

func TestLoadNeverOverwritesExchangeRate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &extract.ReportData{ExchangeRates: []extract.ExchangeRate{{Date: "2024-01-11", USDBRL: extract.FloatPtr(4.92)}}}
	second := &extract.ReportData{ExchangeRates: []extract.ExchangeRate{{Date: "2024-01-11", USDBRL: extract.FloatPtr(5.10)}}}

	if _, err := s.Load(ctx, first); err != nil {
		t.Fatalf("first load: %v", err)
	}
	if _, err := s.Load(ctx, second); err != nil {
		t.Fatalf("second load: %v", err)
	}

	var rate float64
	if err := s.DB().QueryRow(`SELECT usd_brl FROM cambio WHERE data = '2024-01-11'`).Scan(&rate); err != nil {
		t.Fatalf("query rate: %v", err)
	}
	if rate != 4.92 {
		t.Errorf("rate = %v, the first value should survive", rate)
	}
}

func TestLoadSkipsMalformedReferences(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	data := &extract.ReportData{
		Prices: []extract.Price{
			{Product: extract.ProductRef{}, Location: extract.LocationRef{}, Date: "2024-01-11"},
		},
		Freights: []extract.Freight{
			{Mode: "rodoviario", Origin: extract.LocationRef{}, Dest: extract.LocationRef{}, Date: "2024-01-11"},
		},
		BarterRatios: []extract.BarterRatio{
			{Crop: "Milho", Product: extract.ProductRef{}, Date: "2024-01-11"},
		},
	}

	stats, err := s.Load(ctx, data)
	if err != nil {
		t.Fatalf("load should not fail on malformed references: %v", err)
	}
	if stats.Skipped != 3 {
		t.Errorf("skipped = %d, want 3", stats.Skipped)
	}
	for _, table := range []string{"precos", "fretes", "barter_ratios"} {
		if n := countRows(t, s, table); n != 0 {
			t.Errorf("%s = %d, want 0", table, n)
		}
	}
}

func TestLoadNilReportFails(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Load(context.Background(), nil); err == nil {
		t.Fatal("expected an error for a nil report")
	}
}

func TestLoadResolvesEmbeddedEntitiesNotInTopLevelLists(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A price whose product/location never appeared in the top-level lists
	// still resolves: find-or-create covers embedded references too.
	data := &extract.ReportData{
		Prices: []extract.Price{
			{
				Product:  extract.ProductRef{Product: &extract.Product{Name: "SSP", Origin: extract.StrPtr("Brasil"), Type: "Fosfatado", Unit: "BRL/t"}},
				Location: extract.LocationRef{Location: &extract.Location{Name: "Uberaba", State: extract.StrPtr("MG"), Country: "Brasil", Kind: "cidade"}},
				Date:     "2024-01-11",
				Modality: "Spot",
			},
		},
	}
	if _, err := s.Load(ctx, data); err != nil {
		t.Fatalf("load: %v", err)
	}
	if n := countRows(t, s, "produtos"); n != 1 {
		t.Errorf("produtos = %d, want 1", n)
	}
	if n := countRows(t, s, "locais"); n != 1 {
		t.Errorf("locais = %d, want 1", n)
	}
}
