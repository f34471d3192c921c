package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/personal-finance-assistant/backend/internal/config"
	"github.com/personal-finance-assistant/backend/internal/model/ledger"
)

const dateLayout = "2006-01-02 15:04:05"

// LedgerStore persists expenses and incomes in two append-only tables.
type LedgerStore struct {
	db      *sql.DB
	dialect string
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*LedgerStore, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Driver {
	case config.DriverMySQL:
		dsn := mysql.NewConfig()
		dsn.User = cfg.User
		dsn.Passwd = cfg.Password
		dsn.Net = "tcp"
		dsn.Addr = cfg.Addr()
		dsn.DBName = cfg.Name
		dsn.ParseTime = true
		db, err = sql.Open("mysql", dsn.FormatDSN())
	case config.DriverSQLite:
		db, err = sql.Open("sqlite", cfg.Path)
		if err == nil {
			// 内存库每个连接都是独立的数据库，只能保留一个连接。
			db.SetMaxOpenConns(1)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, cfg.Driver), nil
}

// New wraps an already opened handle. dialect is config.DriverMySQL or config.DriverSQLite.
func New(db *sql.DB, dialect string) *LedgerStore {
	return &LedgerStore{db: db, dialect: dialect}
}

// Close releases the connection pool.
func (s *LedgerStore) Close() error {
	return s.db.Close()
}

// Migrate creates the Expenses and Incomes tables when they are missing.
func (s *LedgerStore) Migrate(ctx context.Context) error {
	statements, ok := schemaStatements[s.dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", s.dialect)
	}

	// mysql 驱动默认不允许多语句，逐条执行。
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// Insert appends one record. A zero Date falls back to the column default.
func (s *LedgerStore) Insert(ctx context.Context, kind ledger.Kind, rec ledger.Record) error {
	table, err := kind.Table()
	if err != nil {
		return err
	}

	if rec.Date.IsZero() {
		query := fmt.Sprintf("INSERT INTO %s (name, amount) VALUES (?, ?)", table)
		_, err = s.db.ExecContext(ctx, query, rec.Name, rec.Amount)
	} else {
		query := fmt.Sprintf("INSERT INTO %s (name, amount, date) VALUES (?, ?, ?)", table)
		_, err = s.db.ExecContext(ctx, query, rec.Name, rec.Amount, rec.Date.UTC().Format(dateLayout))
	}
	if err != nil {
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// Sum totals the amount column, optionally bounded by an inclusive date range.
// An empty table or range yields 0.
func (s *LedgerStore) Sum(ctx context.Context, kind ledger.Kind, r ledger.Range) (float64, error) {
	table, err := kind.Table()
	if err != nil {
		return 0, err
	}

	var total sql.NullFloat64
	if r.IsZero() {
		query := fmt.Sprintf("SELECT SUM(amount) FROM %s", table)
		err = s.db.QueryRowContext(ctx, query).Scan(&total)
	} else {
		query := fmt.Sprintf("SELECT SUM(amount) FROM %s WHERE date BETWEEN ? AND ?", table)
		err = s.db.QueryRowContext(ctx, query, r.From, r.To).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("sum %s: %w", table, err)
	}

	if !total.Valid {
		return 0, nil
	}
	return total.Float64, nil
}

// List returns records of one kind, newest first, capped at limit (0 = no cap).
func (s *LedgerStore) List(ctx context.Context, kind ledger.Kind, limit int) ([]ledger.Record, error) {
	table, err := kind.Table()
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT name, amount, date FROM %s ORDER BY date DESC, id DESC", table)
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	var records []ledger.Record
	for rows.Next() {
		var (
			rec  ledger.Record
			date any
		)
		if err := rows.Scan(&rec.Name, &rec.Amount, &date); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		rec.Date = parseDate(date)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return records, nil
}

// parseDate normalizes the driver-specific date column representation.
func parseDate(raw any) time.Time {
	switch v := raw.(type) {
	case time.Time:
		return v.UTC()
	case string:
		return parseDateString(v)
	case []byte:
		return parseDateString(string(v))
	default:
		return time.Time{}
	}
}

func parseDateString(v string) time.Time {
	for _, layout := range []string{dateLayout, time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

var schemaStatements = map[string][]string{
	config.DriverMySQL: {
		`CREATE TABLE IF NOT EXISTS Expenses (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			amount DOUBLE NOT NULL,
			date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_expenses_date (date)
		)`,
		`CREATE TABLE IF NOT EXISTS Incomes (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			amount DOUBLE NOT NULL,
			date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			INDEX idx_incomes_date (date)
		)`,
	},
	config.DriverSQLite: {
		`CREATE TABLE IF NOT EXISTS Expenses (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			amount REAL NOT NULL,
			date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_date ON Expenses(date)`,
		`CREATE TABLE IF NOT EXISTS Incomes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			amount REAL NOT NULL,
			date DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_incomes_date ON Incomes(date)`,
	},
}
