// Package db opens the DuckDB database that backs the dataset service and
// loads the CSV and GeoJSON exports into it.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

var (
	instance *sql.DB
	once     sync.Once
	initErr  error
)

// Config holds database configuration. An empty DataDir opens an in-memory
// database.
type Config struct {
	DataDir string
	DBName  string
}

// Get returns the process-wide DuckDB connection.
func Get(cfg Config) (*sql.DB, error) {
	once.Do(func() {
		instance, initErr = Open(cfg)
	})
	return instance, initErr
}

// Open opens a new DuckDB connection.
func Open(cfg Config) (*sql.DB, error) {
	dsn := ""
	if cfg.DataDir != "" {
		dir := filepath.Join(cfg.DataDir, "duckdb")
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create duckdb directory: %w", err)
		}
		name := cfg.DBName
		if name == "" {
			name = "transit"
		}
		dsn = filepath.Join(dir, name+".duckdb")
	}

	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening duckdb: %w", err)
	}
	return conn, nil
}

// Close closes the process-wide connection.
func Close() error {
	if instance != nil {
		return instance.Close()
	}
	return nil
}

// LoadCSV (re)creates table from the CSV file at path, sniffing the
// delimiter and column types.
func LoadCSV(ctx context.Context, conn *sql.DB, table, path string) error {
	q := fmt.Sprintf("CREATE OR REPLACE TABLE %s AS SELECT * FROM read_csv_auto(%s, header = true)",
		quoteIdent(table), quoteLiteral(path))
	if _, err := conn.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("loading %s into %s: %w", path, table, err)
	}
	return nil
}

// Columns returns the lower-cased column names of table.
func Columns(ctx context.Context, conn *sql.DB, table string) ([]string, error) {
	rows, err := conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", quoteIdent(table)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	for i, c := range cols {
		cols[i] = strings.ToLower(c)
	}
	return cols, nil
}

// Tables lists the tables in the main schema.
func Tables(ctx context.Context, conn *sql.DB) ([]string, error) {
	rows, err := conn.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Count returns the number of rows in table.
func Count(ctx context.Context, conn *sql.DB, table string) (int, error) {
	var n int
	err := conn.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", quoteIdent(table))).Scan(&n)
	return n, err
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
