package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"invoicing-api/internal/repository"
	"invoicing-api/internal/repository/file"
	"invoicing-api/internal/repository/memory"
	"invoicing-api/internal/repository/postgres"
	"invoicing-api/internal/repository/sqlite"
)

// Aggregate names used in logs, metrics and Status.
const (
	AggregateProducts = "products"
	AggregateDatabase = "database"
	AggregateUsers    = "users"
	AggregateInvoices = "invoices"
)

// Backend identifiers.
const (
	BackendFile           = "file"
	BackendFileFallback   = "file-fallback"
	BackendSQLite         = "sqlite"
	BackendSQLiteFallback = "sqlite-fallback"
	BackendPostgres       = "postgres"
	BackendMemory         = "memory"

	// BackendUnavailable marks an aggregate with no working backend.
	BackendUnavailable = "unavailable"
)

// Options configures the preference lists walked by Build.
type Options struct {
	ProductsPath         string
	ProductsFallbackPath string
	DatabasePath         string
	DatabaseFallbackPath string
	PostgresDSN          string
	Postgres             postgres.Options
	Logger               *logrus.Logger
	Registerer           prometheus.Registerer
}

// Status describes the backend chosen for one aggregate.
type Status struct {
	Aggregate string   `json:"aggregate"`
	Backend   string   `json:"backend"`
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// Backends holds one working repository per aggregate and the resources they own.
type Backends struct {
	Products repository.ProductRepository
	Users    repository.UserRepository
	Invoices repository.InvoiceRepository

	status  []Status
	closers []func()
}

// Build resolves every aggregate. Products, users and invoices always end on a
// working repository because memory closes each chain; only a metrics
// registration failure or a cancelled context makes Build fail.
func Build(ctx context.Context, opts Options) (*Backends, error) {
	metrics, err := NewMetrics(opts.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register backend metrics: %w", err)
	}
	r := NewResolver(opts.Logger, metrics)
	b := &Backends{}

	products, err := Resolve(ctx, r, AggregateProducts,
		Attempt[repository.ProductRepository]{Backend: BackendFile, Open: openFileProducts(opts.ProductsPath)},
		Attempt[repository.ProductRepository]{Backend: BackendFileFallback, Open: openFileProducts(opts.ProductsFallbackPath)},
		Attempt[repository.ProductRepository]{Backend: BackendMemory, Open: func(context.Context) (repository.ProductRepository, error) {
			return memory.NewProductRepository(file.DefaultCatalog), nil
		}},
	)
	if err != nil {
		return nil, err
	}
	b.Products = products.Repository
	record(b, AggregateProducts, products)

	// The embedded store has no tertiary target; a miss here only removes it from the later chains.
	database, dbErr := Resolve(ctx, r, AggregateDatabase,
		Attempt[*sql.DB]{Backend: BackendSQLite, Open: openSQLite(opts.DatabasePath)},
		Attempt[*sql.DB]{Backend: BackendSQLiteFallback, Open: openSQLite(opts.DatabaseFallbackPath)},
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	db := database.Repository
	if dbErr == nil {
		b.closers = append(b.closers, func() { _ = db.Close() })
		record(b, AggregateDatabase, database)
	} else {
		db = nil
		metrics.selected(AggregateDatabase, BackendUnavailable)
		b.status = append(b.status, Status{Aggregate: AggregateDatabase, Backend: BackendUnavailable, Fallbacks: failedBackends(database.Failures)})
	}

	userAttempts := []Attempt[repository.UserRepository]{
		{Backend: BackendPostgres, Open: b.openPostgresUsers(opts.PostgresDSN, opts.Postgres)},
	}
	if db != nil {
		userAttempts = append(userAttempts, Attempt[repository.UserRepository]{Backend: database.Backend, Open: func(ctx context.Context) (repository.UserRepository, error) {
			repo := sqlite.NewUserRepository(db)
			if err := repo.Init(ctx); err != nil {
				return nil, err
			}
			return repo, nil
		}})
	}
	userAttempts = append(userAttempts, Attempt[repository.UserRepository]{Backend: BackendMemory, Open: func(context.Context) (repository.UserRepository, error) {
		return memory.NewUserRepository(), nil
	}})
	users, err := Resolve(ctx, r, AggregateUsers, userAttempts...)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Users = users.Repository
	record(b, AggregateUsers, users)

	var invoiceAttempts []Attempt[repository.InvoiceRepository]
	if db != nil {
		invoiceAttempts = append(invoiceAttempts, Attempt[repository.InvoiceRepository]{Backend: database.Backend, Open: func(ctx context.Context) (repository.InvoiceRepository, error) {
			repo := sqlite.NewInvoiceRepository(db)
			if err := repo.Init(ctx); err != nil {
				return nil, err
			}
			return repo, nil
		}})
	}
	invoiceAttempts = append(invoiceAttempts, Attempt[repository.InvoiceRepository]{Backend: BackendMemory, Open: func(context.Context) (repository.InvoiceRepository, error) {
		return memory.NewInvoiceRepository(), nil
	}})
	invoices, err := Resolve(ctx, r, AggregateInvoices, invoiceAttempts...)
	if err != nil {
		b.Close()
		return nil, err
	}
	b.Invoices = invoices.Repository
	record(b, AggregateInvoices, invoices)

	return b, nil
}

// Status lists the chosen backend per aggregate in resolution order.
func (b *Backends) Status() []Status {
	out := make([]Status, len(b.status))
	copy(out, b.status)
	return out
}

// Close releases owned pools and database handles.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

func (b *Backends) openPostgresUsers(dsn string, opts postgres.Options) func(context.Context) (repository.UserRepository, error) {
	return func(ctx context.Context) (repository.UserRepository, error) {
		pool, err := postgres.Open(ctx, dsn, opts)
		if err != nil {
			return nil, err
		}
		repo := postgres.NewUserRepository(pool)
		if err := repo.Init(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		b.closers = append(b.closers, pool.Close)
		return repo, nil
	}
}

func record[T any](b *Backends, aggregate string, res Resolution[T]) {
	b.status = append(b.status, Status{Aggregate: aggregate, Backend: res.Backend, Fallbacks: failedBackends(res.Failures)})
}

func failedBackends(failures []Failure) []string {
	if len(failures) == 0 {
		return nil
	}
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = f.Backend
	}
	return out
}

func openFileProducts(path string) func(context.Context) (repository.ProductRepository, error) {
	return func(context.Context) (repository.ProductRepository, error) {
		if path == "" {
			return nil, errors.New("path is not configured")
		}
		repo, err := file.Open(path, file.DefaultCatalog)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}
}

// openSQLite opens the database and creates both tables so an unwritable
// location fails here rather than on the first request.
func openSQLite(path string) func(context.Context) (*sql.DB, error) {
	return func(ctx context.Context) (*sql.DB, error) {
		if path == "" {
			return nil, errors.New("path is not configured")
		}
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		if err := sqlite.NewInvoiceRepository(db).Init(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		if err := sqlite.NewUserRepository(db).Init(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}
}
