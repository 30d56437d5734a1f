package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"morroverde/pkg/core/extract"
)

// defaultUSDBRL is used to derive the local-currency freight cost when the
// cambio table has no rate yet.
const defaultUSDBRL = 5.5

// SaveManualPrice records a price typed into the dashboard's manual-entry
// form. It bypasses the extractor but reuses the same find-or-create
// resolution as the loader, so manual rows share product/location ids with
// extracted ones.
func (s *Store) SaveManualPrice(ctx context.Context, product, location string, price float64, currency string, date time.Time) error {
	if product == "" || location == "" {
		return fmt.Errorf("store: product and location are required")
	}
	if date.IsZero() {
		date = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p := extract.Product{
		Name:        product,
		Formulation: extract.StrPtr(""),
		Origin:      extract.StrPtr(""),
		Type:        "Manual",
		Unit:        currency,
	}
	var productID int64
	if productID, err = getOrCreateProduct(ctx, tx, &p); err != nil {
		return fmt.Errorf("store: manual price product: %w", err)
	}

	l := extract.Location{Name: location, State: extract.StrPtr(""), Country: "", Kind: "Manual"}
	var localID int64
	if localID, err = getOrCreateLocation(ctx, tx, &l); err != nil {
		return fmt.Errorf("store: manual price location: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO precos (produto_id, local_id, data, tipo_preco, modalidade, fonte, moeda, preco_min, preco_max, variacao, simbolo_var)
		VALUES (?, ?, ?, 'Manual', 'Spot', 'Input Manual', ?, ?, ?, 0, '')`,
		productID, localID, date.Format("2006-01-02"), currency, price, price,
	); err != nil {
		return fmt.Errorf("store: insert manual price: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit manual price: %w", err)
	}
	return nil
}

// SaveManualFreight records a freight cost from the manual-entry form. The
// cost is entered in USD; the BRL column is derived from the most recent
// stored exchange rate, falling back to a fixed rate when none exists.
func (s *Store) SaveManualFreight(ctx context.Context, origin, dest string, costUSD float64, date time.Time) error {
	if origin == "" || dest == "" {
		return fmt.Errorf("store: origin and destination are required")
	}
	if date.IsZero() {
		date = time.Now()
	}

	rate := s.latestExchangeRate(ctx)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	o := extract.Location{Name: origin, State: extract.StrPtr(""), Country: "", Kind: "Manual"}
	var originID int64
	if originID, err = getOrCreateLocation(ctx, tx, &o); err != nil {
		return fmt.Errorf("store: manual freight origin: %w", err)
	}

	d := extract.Location{Name: dest, State: extract.StrPtr(""), Country: "", Kind: "Manual"}
	var destID int64
	if destID, err = getOrCreateLocation(ctx, tx, &d); err != nil {
		return fmt.Errorf("store: manual freight destination: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO fretes (tipo, origem_id, destino_id, data, custo_usd, custo_brl)
		VALUES ('Manual', ?, ?, ?, ?, ?)`,
		originID, destID, date.Format("2006-01-02"), costUSD, costUSD*rate,
	); err != nil {
		return fmt.Errorf("store: insert manual freight: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: commit manual freight: %w", err)
	}
	return nil
}

func (s *Store) latestExchangeRate(ctx context.Context) float64 {
	var rate sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		`SELECT usd_brl FROM cambio ORDER BY data DESC LIMIT 1`).Scan(&rate)
	if err != nil || !rate.Valid || rate.Float64 <= 0 {
		return defaultUSDBRL
	}
	return rate.Float64
}
