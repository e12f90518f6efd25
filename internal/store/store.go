// Package store persists run history to a SQL database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // for sqlserver
	"github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq" // for postgres

	"api-conformance/internal/config"
	"api-conformance/internal/reporter"
)

// Store writes conformance runs and their cases.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.StoreConfig) (*Store, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", cfg.Driver, err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", cfg.Driver, err)
	}

	return New(db, cfg.Driver), nil
}

// New wraps an open database handle. driver selects the SQL dialect.
func New(db *sql.DB, driver string) *Store {
	return &Store{db: db, driver: driver}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BuildDSN returns cfg.DSN, or assembles one from the discrete fields in the
// driver's own syntax.
func BuildDSN(cfg config.StoreConfig) (string, error) {
	switch cfg.Driver {
	case "postgres", "mysql", "sqlserver":
	default:
		return "", fmt.Errorf("unsupported database type: %s", cfg.Driver)
	}
	if cfg.DSN != "" {
		if cfg.Driver == "mysql" {
			return withParseTime(cfg.DSN)
		}
		return cfg.DSN, nil
	}

	switch cfg.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, portOr(cfg.Port, 5432), cfg.User, cfg.Password, cfg.Database), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			cfg.User, cfg.Password, cfg.Host, portOr(cfg.Port, 3306), cfg.Database), nil
	default:
		return fmt.Sprintf("server=%s;port=%d;user id=%s;password=%s;database=%s",
			cfg.Host, portOr(cfg.Port, 1433), cfg.User, cfg.Password, cfg.Database), nil
	}
}

// withParseTime turns on parseTime so DATETIME columns scan into time.Time.
func withParseTime(dsn string) (string, error) {
	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	mc.ParseTime = true
	return mc.FormatDSN(), nil
}

func portOr(port, fallback int) int {
	if port == 0 {
		return fallback
	}
	return port
}

// EnsureSchema creates the history tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema(s.driver) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}

// SaveReport records the run row and one row per case in a single transaction.
func (s *Store) SaveReport(ctx context.Context, r *reporter.Report) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, insertRun(s.driver),
		r.RunID, r.BaseURL, r.StartTime.UTC(), r.EndTime.UTC(),
		r.Summary.Total, r.Summary.Passed, r.Summary.Failed, r.Summary.Errored,
	); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertResult(s.driver))
	if err != nil {
		return fmt.Errorf("failed to prepare result insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range r.Modules {
		for _, c := range m.Cases() {
			if _, err = stmt.ExecContext(ctx,
				r.RunID, c.Module, c.Name, string(c.Method), c.Template, c.Path,
				c.Status, string(c.Outcome), c.Message, c.Duration.Milliseconds(), c.RequestID,
			); err != nil {
				return fmt.Errorf("failed to insert result for %s: %w", c.Name, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// RunSummary is one row of run history.
type RunSummary struct {
	RunID     string
	BaseURL   string
	StartTime time.Time
	EndTime   time.Time
	Total     int
	Passed    int
	Failed    int
	Errored   int
}

// Recent returns the latest runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, selectRecent(s.driver, limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.BaseURL, &r.StartTime, &r.EndTime, &r.Total, &r.Passed, &r.Failed, &r.Errored); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
