package store

import (
	"context"
	"fmt"
)

// DiagnosticsReport is a health snapshot of the database: row counts per
// table and how many fact rows carry references that no longer resolve.
type DiagnosticsReport struct {
	Counts      map[string]int64 `json:"contagens"`
	DanglingRef map[string]int64 `json:"referencias_invalidas"`
}

// Diagnostics counts rows and dangling foreign keys. Read-only; safe to call
// while the dashboard is live.
func (s *Store) Diagnostics(ctx context.Context) (DiagnosticsReport, error) {
	report := DiagnosticsReport{
		Counts:      map[string]int64{},
		DanglingRef: map[string]int64{},
	}

	tables := []string{"produtos", "locais", "precos", "fretes", "barter_ratios", "cambio", "custos_portos"}
	for _, table := range tables {
		var n int64
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return report, fmt.Errorf("store: count %s: %w", table, err)
		}
		report.Counts[table] = n
	}

	danglingQueries := map[string]string{
		"precos_sem_produto": `
			SELECT COUNT(*) FROM precos pr
			LEFT JOIN produtos p ON pr.produto_id = p.id
			WHERE p.id IS NULL`,
		"precos_sem_local": `
			SELECT COUNT(*) FROM precos pr
			LEFT JOIN locais l ON pr.local_id = l.id
			WHERE l.id IS NULL`,
		"fretes_sem_origem": `
			SELECT COUNT(*) FROM fretes f
			LEFT JOIN locais l ON f.origem_id = l.id
			WHERE l.id IS NULL`,
		"fretes_sem_destino": `
			SELECT COUNT(*) FROM fretes f
			LEFT JOIN locais l ON f.destino_id = l.id
			WHERE l.id IS NULL`,
		"barter_sem_produto": `
			SELECT COUNT(*) FROM barter_ratios b
			LEFT JOIN produtos p ON b.produto_id = p.id
			WHERE p.id IS NULL`,
		"custos_sem_porto": `
			SELECT COUNT(*) FROM custos_portos c
			LEFT JOIN locais l ON c.porto_id = l.id
			WHERE l.id IS NULL`,
	}
	for name, query := range danglingQueries {
		var n int64
		if err := s.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
			return report, fmt.Errorf("store: diagnostics %s: %w", name, err)
		}
		report.DanglingRef[name] = n
	}

	return report, nil
}
