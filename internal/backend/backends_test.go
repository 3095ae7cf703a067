package backend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository/file"
	"invoicing-api/internal/repository/memory"
	"invoicing-api/internal/repository/sqlite"
)

func blockedPath(t *testing.T, name string) string {
	t.Helper()
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))
	return filepath.Join(blocker, name)
}

func TestBuildPrefersConfiguredLocations(t *testing.T) {
	dir := t.TempDir()
	b, err := Build(context.Background(), Options{
		ProductsPath:         filepath.Join(dir, "products.json"),
		ProductsFallbackPath: filepath.Join(dir, "fallback", "products.json"),
		DatabasePath:         filepath.Join(dir, "app.db"),
		DatabaseFallbackPath: filepath.Join(dir, "fallback", "app.db"),
		Logger:               quietLogger(),
		Registerer:           prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &file.ProductRepository{}, b.Products)
	assert.IsType(t, &sqlite.UserRepository{}, b.Users)
	assert.IsType(t, &sqlite.InvoiceRepository{}, b.Invoices)
	assert.Equal(t, []Status{
		{Aggregate: AggregateProducts, Backend: BackendFile},
		{Aggregate: AggregateDatabase, Backend: BackendSQLite},
		{Aggregate: AggregateUsers, Backend: BackendSQLite, Fallbacks: []string{BackendPostgres}},
		{Aggregate: AggregateInvoices, Backend: BackendSQLite},
	}, b.Status())

	products, err := b.Products.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, len(file.DefaultCatalog))
	assert.FileExists(t, filepath.Join(dir, "app.db"))
}

func TestBuildUsesSecondaryLocations(t *testing.T) {
	dir := t.TempDir()
	b, err := Build(context.Background(), Options{
		ProductsPath:         blockedPath(t, "products.json"),
		ProductsFallbackPath: filepath.Join(dir, "products.json"),
		DatabasePath:         blockedPath(t, "app.db"),
		DatabaseFallbackPath: filepath.Join(dir, "app.db"),
		Logger:               quietLogger(),
		Registerer:           prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	defer b.Close()

	status := b.Status()
	assert.Equal(t, BackendFileFallback, status[0].Backend)
	assert.Equal(t, []string{BackendFile}, status[0].Fallbacks)
	assert.Equal(t, BackendSQLiteFallback, status[1].Backend)
	assert.Equal(t, BackendSQLiteFallback, status[3].Backend)
}

// activeGauge returns the invoicing_backend_active value for the label pair, or -1 when no series exists.
func activeGauge(t *testing.T, reg *prometheus.Registry, aggregate, backend string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "invoicing_backend_active" {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["aggregate"] == aggregate && labels["backend"] == backend {
				return m.GetGauge().GetValue()
			}
		}
	}
	return -1
}

func TestBuildEndsOnMemory(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	b, err := Build(ctx, Options{
		ProductsPath: blockedPath(t, "products.json"),
		DatabasePath: blockedPath(t, "app.db"),
		Logger:       quietLogger(),
		Registerer:   reg,
	})
	require.NoError(t, err)
	defer b.Close()

	assert.IsType(t, &memory.ProductRepository{}, b.Products)
	assert.IsType(t, &memory.UserRepository{}, b.Users)
	assert.IsType(t, &memory.InvoiceRepository{}, b.Invoices)

	status := b.Status()
	assert.Equal(t, Status{Aggregate: AggregateDatabase, Backend: BackendUnavailable, Fallbacks: []string{BackendSQLite, BackendSQLiteFallback}}, status[1])
	assert.Equal(t, 1.0, activeGauge(t, reg, AggregateDatabase, BackendUnavailable))
	assert.Equal(t, 1.0, activeGauge(t, reg, AggregateUsers, BackendMemory))
	assert.Equal(t, 1.0, activeGauge(t, reg, AggregateInvoices, BackendMemory))
	assert.Equal(t, []string{BackendPostgres}, status[2].Fallbacks)

	products, err := b.Products.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, products, len(file.DefaultCatalog))

	created, err := b.Invoices.Create(ctx, domain.Invoice{Number: "NF-1", CustomerName: "Alice", LineItems: []domain.LineItem{}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
}
