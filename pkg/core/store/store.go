// Package store persists the extracted market data in a single-file SQLite
// database. Table and column names keep the report's Portuguese vocabulary so
// the schema reads the same as the data it holds.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"morroverde/pkg/core/extract"
)

// Store wraps the SQLite database backing the dashboard.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("store: path is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db, path: path, logger: logger}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path (the backup side-channel snapshots it).
func (s *Store) Path() string { return s.path }

// DB exposes the raw handle for read-only dashboard queries.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) migrate() error {
	// Foreign keys stay unenforced, matching the dashboard's expectations:
	// dangling references are surfaced by Diagnostics and purged by Cleanup
	// rather than rejected at insert time.
	statements := []string{
		`CREATE TABLE IF NOT EXISTS produtos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nome_produto TEXT,
			formulacao TEXT,
			origem TEXT,
			tipo TEXT,
			unidade TEXT,
			UNIQUE(nome_produto, formulacao, origem, tipo, unidade)
		);`,
		`CREATE TABLE IF NOT EXISTS locais (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			nome TEXT,
			estado TEXT,
			pais TEXT,
			tipo TEXT
		);`,
		`CREATE TABLE IF NOT EXISTS precos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			produto_id INTEGER,
			local_id INTEGER,
			data TEXT,
			tipo_preco TEXT,
			modalidade TEXT,
			fonte TEXT,
			moeda TEXT,
			preco_min REAL,
			preco_max REAL,
			variacao REAL,
			simbolo_var TEXT,
			FOREIGN KEY (produto_id) REFERENCES produtos(id),
			FOREIGN KEY (local_id) REFERENCES locais(id)
		);`,
		`CREATE TABLE IF NOT EXISTS fretes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			tipo TEXT,
			origem_id INTEGER,
			destino_id INTEGER,
			data TEXT,
			custo_usd REAL,
			custo_brl REAL,
			FOREIGN KEY (origem_id) REFERENCES locais(id),
			FOREIGN KEY (destino_id) REFERENCES locais(id)
		);`,
		`CREATE TABLE IF NOT EXISTS barter_ratios (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			cultura TEXT,
			produto_id INTEGER,
			estado TEXT,
			data TEXT,
			preco_cultura REAL,
			barter_ratio REAL,
			barter_index REAL,
			FOREIGN KEY (produto_id) REFERENCES produtos(id)
		);`,
		`CREATE TABLE IF NOT EXISTS cambio (
			data TEXT PRIMARY KEY,
			usd_brl REAL
		);`,
		`CREATE TABLE IF NOT EXISTS custos_portos (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			porto_id INTEGER,
			data TEXT,
			armazenagem REAL,
			demurrage REAL,
			custo_total REAL,
			FOREIGN KEY (porto_id) REFERENCES locais(id)
		);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// getOrCreateProduct resolves a product to its row id by full natural key,
// inserting only when no match exists. Idempotent across runs.
func getOrCreateProduct(ctx context.Context, tx *sql.Tx, p *extract.Product) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM produtos
		WHERE nome_produto IS ? AND formulacao IS ? AND origem IS ? AND tipo IS ? AND unidade IS ?`,
		p.Name, p.Formulation, p.Origin, p.Type, p.Unit,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO produtos (nome_produto, formulacao, origem, tipo, unidade)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Formulation, p.Origin, p.Type, p.Unit,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// getOrCreateLocation resolves a location by its (name, state) natural key.
func getOrCreateLocation(ctx context.Context, tx *sql.Tx, l *extract.Location) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM locais WHERE nome IS ? AND estado IS ?`,
		l.Name, l.State,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO locais (nome, estado, pais, tipo) VALUES (?, ?, ?, ?)`,
		l.Name, l.State, l.Country, l.Kind,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}
