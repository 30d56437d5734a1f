package store

import (
	"context"
	"fmt"
	"log/slog"

	"morroverde/pkg/core/extract"
)

// LoadStats summarizes one Loader run. Skipped counts malformed entries that
// were dropped with a warning; they do not fail the run.
type LoadStats struct {
	Products      int `json:"produtos"`
	Locations     int `json:"locais"`
	Prices        int `json:"precos"`
	Freights      int `json:"fretes"`
	BarterRatios  int `json:"barter_ratios"`
	ExchangeRates int `json:"cambio"`
	PortCosts     int `json:"custos_portos"`
	Skipped       int `json:"ignorados"`
}

// Load persists one combined report inside a single transaction. Products and
// locations (both the top-level lists and every reference embedded in fact
// entries) are resolved with find-or-create, so repeated runs with the same
// input never duplicate them. Fact rows are append-only. Any database error
// rolls the whole transaction back.
func (s *Store) Load(ctx context.Context, data *extract.ReportData) (LoadStats, error) {
	var stats LoadStats
	if data == nil {
		return stats, fmt.Errorf("store: nothing to load")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return stats, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for i := range data.Products {
		if _, err = getOrCreateProduct(ctx, tx, &data.Products[i]); err != nil {
			return stats, fmt.Errorf("store: resolve product %q: %w", data.Products[i].Name, err)
		}
		stats.Products++
	}

	for i := range data.Locations {
		if _, err = getOrCreateLocation(ctx, tx, &data.Locations[i]); err != nil {
			return stats, fmt.Errorf("store: resolve location %q: %w", data.Locations[i].Name, err)
		}
		stats.Locations++
	}

	for i := range data.Prices {
		p := &data.Prices[i]
		if !p.Product.Valid() || !p.Location.Valid() {
			s.logger.Warn("skipping price with malformed reference",
				slog.Int("index", i), slog.String("data", p.Date))
			stats.Skipped++
			continue
		}
		var productID, localID int64
		if productID, err = getOrCreateProduct(ctx, tx, p.Product.Product); err != nil {
			return stats, fmt.Errorf("store: price product: %w", err)
		}
		if localID, err = getOrCreateLocation(ctx, tx, p.Location.Location); err != nil {
			return stats, fmt.Errorf("store: price location: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO precos (produto_id, local_id, data, tipo_preco, modalidade, fonte, moeda, preco_min, preco_max, variacao, simbolo_var)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			productID, localID, p.Date, p.PriceType, p.Modality, p.Source, p.Currency,
			p.MinPrice, p.MaxPrice, p.Variation, p.VarSymbol,
		); err != nil {
			return stats, fmt.Errorf("store: insert price: %w", err)
		}
		stats.Prices++
	}

	for i := range data.Freights {
		f := &data.Freights[i]
		if !f.Origin.Valid() || !f.Dest.Valid() {
			s.logger.Warn("skipping freight with malformed reference",
				slog.Int("index", i), slog.String("data", f.Date))
			stats.Skipped++
			continue
		}
		var originID, destID int64
		if originID, err = getOrCreateLocation(ctx, tx, f.Origin.Location); err != nil {
			return stats, fmt.Errorf("store: freight origin: %w", err)
		}
		if destID, err = getOrCreateLocation(ctx, tx, f.Dest.Location); err != nil {
			return stats, fmt.Errorf("store: freight destination: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO fretes (tipo, origem_id, destino_id, data, custo_usd, custo_brl)
			VALUES (?, ?, ?, ?, ?, ?)`,
			f.Mode, originID, destID, f.Date, f.CostUSD, f.CostBRL,
		); err != nil {
			return stats, fmt.Errorf("store: insert freight: %w", err)
		}
		stats.Freights++
	}

	for i := range data.BarterRatios {
		b := &data.BarterRatios[i]
		if !b.Product.Valid() {
			s.logger.Warn("skipping barter ratio with malformed product reference",
				slog.Int("index", i), slog.String("cultura", b.Crop))
			stats.Skipped++
			continue
		}
		var productID int64
		if productID, err = getOrCreateProduct(ctx, tx, b.Product.Product); err != nil {
			return stats, fmt.Errorf("store: barter product: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO barter_ratios (cultura, produto_id, estado, data, preco_cultura, barter_ratio, barter_index)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.Crop, productID, b.State, b.Date, b.CropPrice, b.Ratio, b.Index,
		); err != nil {
			return stats, fmt.Errorf("store: insert barter ratio: %w", err)
		}
		stats.BarterRatios++
	}

	for i := range data.ExchangeRates {
		c := &data.ExchangeRates[i]
		// One rate per date; an existing rate is never overwritten here.
		if _, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO cambio (data, usd_brl) VALUES (?, ?)`,
			c.Date, c.USDBRL,
		); err != nil {
			return stats, fmt.Errorf("store: insert exchange rate: %w", err)
		}
		stats.ExchangeRates++
	}

	for i := range data.PortCosts {
		pc := &data.PortCosts[i]
		port := extract.Location{Name: pc.Port, State: extract.StrPtr(""), Country: "Brasil", Kind: "porto"}
		var portID int64
		if portID, err = getOrCreateLocation(ctx, tx, &port); err != nil {
			return stats, fmt.Errorf("store: port location: %w", err)
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO custos_portos (porto_id, data, armazenagem, demurrage, custo_total)
			VALUES (?, ?, ?, ?, ?)`,
			portID, pc.Date, pc.Storage, pc.Demurrage, pc.Total,
		); err != nil {
			return stats, fmt.Errorf("store: insert port cost: %w", err)
		}
		stats.PortCosts++
	}

	if err = tx.Commit(); err != nil {
		return stats, fmt.Errorf("store: commit load: %w", err)
	}
	return stats, nil
}
