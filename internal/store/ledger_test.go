package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/personal-finance-assistant/backend/internal/config"
	"github.com/personal-finance-assistant/backend/internal/model/ledger"
)

func openTestStore(t *testing.T) *LedgerStore {
	t.Helper()

	s, err := Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func day(value string) time.Time {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSumEmptyTablesIsZero(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	total, err := s.Sum(ctx, ledger.Expense, ledger.Range{})
	require.NoError(t, err)
	assert.Zero(t, total)

	total, err = s.Sum(ctx, ledger.Income, ledger.Range{From: "2024-01-01", To: "2024-12-31"})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestInsertWithDatabaseAssignedDate(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, ledger.Expense, ledger.Record{Name: "Bought an iphone", Amount: 79999.5}))

	total, err := s.Sum(ctx, ledger.Expense, ledger.Range{})
	require.NoError(t, err)
	assert.Equal(t, 79999.5, total)

	records, err := s.List(ctx, ledger.Expense, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Bought an iphone", records[0].Name)
	assert.False(t, records[0].Date.IsZero())
	assert.WithinDuration(t, time.Now().UTC(), records[0].Date, 24*time.Hour)
}

func TestSumRangeIsInclusive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	rows := []ledger.Record{
		{Name: "rent", Amount: 15000, Date: day("2024-01-01")},
		{Name: "groceries", Amount: 2500.25, Date: day("2024-01-15")},
		{Name: "movie", Amount: 400, Date: day("2024-01-31")},
		{Name: "flight", Amount: 9000, Date: day("2024-02-10")},
	}
	for _, rec := range rows {
		require.NoError(t, s.Insert(ctx, ledger.Expense, rec))
	}
	require.NoError(t, s.Insert(ctx, ledger.Income, ledger.Record{Name: "salary", Amount: 50000, Date: day("2024-01-05")}))

	total, err := s.Sum(ctx, ledger.Expense, ledger.Range{From: "2024-01-01 00:00:00", To: "2024-01-31 00:00:00"})
	require.NoError(t, err)
	assert.Equal(t, 17900.25, total)

	total, err = s.Sum(ctx, ledger.Expense, ledger.Range{From: "2023-01-01", To: "2023-12-31"})
	require.NoError(t, err)
	assert.Zero(t, total)

	total, err = s.Sum(ctx, ledger.Expense, ledger.Range{})
	require.NoError(t, err)
	assert.Equal(t, 26900.25, total)

	income, err := s.Sum(ctx, ledger.Income, ledger.Range{})
	require.NoError(t, err)
	assert.Equal(t, 50000.0, income)
}

func TestListNewestFirstWithLimit(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, ledger.Income, ledger.Record{Name: "bonus", Amount: 1000, Date: day("2024-03-01")}))
	require.NoError(t, s.Insert(ctx, ledger.Income, ledger.Record{Name: "salary", Amount: 50000, Date: day("2024-04-01")}))

	records, err := s.List(ctx, ledger.Income, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "salary", records[0].Name)
	assert.True(t, day("2024-04-01").Equal(records[0].Date), "got %s", records[0].Date)
}

func TestMigrateIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	s, err := Open(context.Background(), config.DatabaseConfig{Driver: config.DriverSQLite, Path: path})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Migrate(context.Background()))
}

func TestUnknownKindAndDriver(t *testing.T) {
	s := openTestStore(t)

	_, err := s.Sum(context.Background(), ledger.Kind("refund"), ledger.Range{})
	assert.Error(t, err)
	assert.Error(t, s.Insert(context.Background(), ledger.Kind("refund"), ledger.Record{Name: "x", Amount: 1}))

	_, err = Open(context.Background(), config.DatabaseConfig{Driver: "postgres"})
	assert.Error(t, err)
}

func TestClosedStoreReturnsErrors(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Close())

	_, err := s.Sum(context.Background(), ledger.Expense, ledger.Range{})
	assert.Error(t, err)
	assert.Error(t, s.Insert(context.Background(), ledger.Expense, ledger.Record{Name: "x", Amount: 1}))
}

func TestAmountsKeepFullPrecision(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Insert(ctx, ledger.Income, ledger.Record{Name: "Interest", Amount: 0.125}))

	total, err := s.Sum(ctx, ledger.Income, ledger.Range{})
	require.NoError(t, err)
	assert.Equal(t, 0.125, total)

	for dialect, statements := range schemaStatements {
		for _, stmt := range statements {
			assert.NotContains(t, strings.ToUpper(stmt), "DECIMAL", "%s schema rounds amounts", dialect)
		}
	}
}
