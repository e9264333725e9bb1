package services

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/diewo77/facturation/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type testEnv struct {
	db       *gorm.DB
	clients  *ClientService
	invoices *InvoiceService
	totals   *Totals
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return openTestDB(t, fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", name))
}

// setupFileTestDB opens an on-disk database where writers queue on the
// write lock, for tests that run services from several goroutines.
func setupFileTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "invoices.db")
	return openTestDB(t, path+"?_foreign_keys=on&_busy_timeout=5000&_txlock=immediate")
}

func openTestDB(t *testing.T, dsn string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Discard,
	})
	require.NoError(t, err, "open db")
	require.NoError(t, db.AutoMigrate(&models.Client{}, &models.Invoice{}), "migrate")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvOn(setupTestDB(t))
}

func newTestEnvOn(db *gorm.DB) *testEnv {
	log := zap.NewNop()
	totals := NewTotals(db, log)
	return &testEnv{
		db:       db,
		clients:  NewClientService(db, log),
		invoices: NewInvoiceService(db, totals, log),
		totals:   totals,
	}
}

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func (e *testEnv) createClient(t *testing.T, name, email string) *models.Client {
	t.Helper()
	c, err := e.clients.Create(context.Background(), ClientInput{Name: name, Email: email, Entreprise: name + " Inc"})
	require.NoError(t, err)
	return c
}

func (e *testEnv) createInvoice(t *testing.T, clientID uint, montant string) *models.Invoice {
	t.Helper()
	inv, err := e.invoices.Create(context.Background(), InvoiceInput{
		ClientID:  clientID,
		DateEnvoi: "2024-01-01",
		Status:    string(models.InvoiceStatusSent),
		Montant:   money(montant),
	})
	require.NoError(t, err)
	return inv
}

// requireCounters reloads the client and checks its stored counters.
func (e *testEnv) requireCounters(t *testing.T, clientID uint, count int, total string) {
	t.Helper()
	c, err := e.clients.Get(context.Background(), clientID)
	require.NoError(t, err)
	require.Equal(t, count, c.TotalFactures, "total_factures")
	require.True(t, c.MontantTotal.Equal(decimal.RequireFromString(total)),
		"montant_total = %s, want %s", c.MontantTotal, total)
}

// requireConsistent asserts that no client has drifting counters.
func (e *testEnv) requireConsistent(t *testing.T) {
	t.Helper()
	drifts, err := e.totals.Check(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifts)
}
