package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type execerContext interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CleanupStats counts the rows removed by each cleanup rule, keyed by table.
type CleanupStats struct {
	Orphans    map[string]int64 `json:"orfaos"`
	Duplicates map[string]int64 `json:"duplicados"`
	NullRows   map[string]int64 `json:"vazios"`
}

// factDedupColumns lists, per fact table, the columns whose exact tuple
// identifies a duplicate row. Of the duplicates, the lowest id survives.
var factDedupColumns = map[string][]string{
	"produtos":      {"nome_produto", "formulacao", "origem", "tipo", "unidade"},
	"locais":        {"nome", "estado", "pais", "tipo"},
	"precos":        {"produto_id", "local_id", "data", "tipo_preco", "modalidade", "fonte", "moeda", "preco_min", "preco_max", "variacao", "simbolo_var"},
	"fretes":        {"tipo", "origem_id", "destino_id", "data", "custo_usd", "custo_brl"},
	"barter_ratios": {"cultura", "produto_id", "estado", "data", "preco_cultura", "barter_ratio", "barter_index"},
	"custos_portos": {"porto_id", "data", "armazenagem", "demurrage", "custo_total"},
}

// nullRowColumns lists the columns that must all be NULL for a row to count
// as empty and be purged.
var nullRowColumns = map[string][]string{
	"produtos":      {"nome_produto", "formulacao", "origem", "tipo", "unidade"},
	"locais":        {"nome", "estado", "pais", "tipo"},
	"precos":        {"produto_id", "local_id", "data", "tipo_preco", "modalidade", "fonte", "moeda", "preco_min", "preco_max", "variacao", "simbolo_var"},
	"fretes":        {"tipo", "origem_id", "destino_id", "data", "custo_usd", "custo_brl"},
	"barter_ratios": {"cultura", "produto_id", "estado", "data", "preco_cultura", "barter_ratio", "barter_index"},
	"cambio":        {"usd_brl"},
	"custos_portos": {"porto_id", "data", "armazenagem", "demurrage", "custo_total"},
}

// Cleanup is the post-hoc maintenance routine: it purges fact rows whose
// references no longer resolve, collapses exact-duplicate rows, and deletes
// rows whose fields are all NULL. Runs in one transaction.
func (s *Store) Cleanup(ctx context.Context) (CleanupStats, error) {
	stats := CleanupStats{
		Orphans:    map[string]int64{},
		Duplicates: map[string]int64{},
		NullRows:   map[string]int64{},
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

	orphanRules := []struct {
		table string
		where string
	}{
		{"precos", `produto_id NOT IN (SELECT id FROM produtos) OR local_id NOT IN (SELECT id FROM locais)`},
		{"fretes", `origem_id NOT IN (SELECT id FROM locais) OR destino_id NOT IN (SELECT id FROM locais)`},
		{"barter_ratios", `produto_id NOT IN (SELECT id FROM produtos)`},
		{"custos_portos", `porto_id NOT IN (SELECT id FROM locais)`},
	}
	for _, rule := range orphanRules {
		var res int64
		if res, err = execCount(ctx, tx, fmt.Sprintf(`DELETE FROM %s WHERE %s`, rule.table, rule.where)); err != nil {
			return stats, fmt.Errorf("store: cleanup orphans in %s: %w", rule.table, err)
		}
		stats.Orphans[rule.table] = res
	}

	for table, columns := range factDedupColumns {
		query := fmt.Sprintf(`
			DELETE FROM %s WHERE id NOT IN (
				SELECT MIN(id) FROM %s GROUP BY %s
			)`, table, table, strings.Join(columns, ", "))
		var res int64
		if res, err = execCount(ctx, tx, query); err != nil {
			return stats, fmt.Errorf("store: cleanup duplicates in %s: %w", table, err)
		}
		stats.Duplicates[table] = res
	}

	for table, columns := range nullRowColumns {
		conditions := make([]string, len(columns))
		for i, col := range columns {
			conditions[i] = col + " IS NULL"
		}
		query := fmt.Sprintf(`DELETE FROM %s WHERE %s`, table, strings.Join(conditions, " AND "))
		var res int64
		if res, err = execCount(ctx, tx, query); err != nil {
			return stats, fmt.Errorf("store: cleanup null rows in %s: %w", table, err)
		}
		stats.NullRows[table] = res
	}

	if err = tx.Commit(); err != nil {
		return stats, fmt.Errorf("store: commit cleanup: %w", err)
	}
	return stats, nil
}

func execCount(ctx context.Context, tx execerContext, query string) (int64, error) {
	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
