package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

const createInvoicesTable = `
CREATE TABLE IF NOT EXISTS invoices (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	number TEXT NOT NULL UNIQUE,
	customer_name TEXT NOT NULL,
	line_items TEXT NOT NULL,
	total REAL NOT NULL,
	created_at TEXT NOT NULL
);
`

const selectInvoice = `SELECT id, number, customer_name, line_items, total, created_at FROM invoices`

// InvoiceRepository persists invoices with line items serialized as a JSON array.
type InvoiceRepository struct {
	db *sql.DB
}

func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{db: db}
}

var _ repository.InvoiceRepository = (*InvoiceRepository)(nil)

func (r *InvoiceRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createInvoicesTable); err != nil {
		return fmt.Errorf("create invoices table: %w", err)
	}
	return nil
}

func (r *InvoiceRepository) FindAll(ctx context.Context) ([]domain.Invoice, error) {
	rows, err := r.db.QueryContext(ctx, selectInvoice+` ORDER BY id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	defer rows.Close()

	invoices := []domain.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) FindByID(ctx context.Context, id int64) (*domain.Invoice, error) {
	return scanInvoice(r.db.QueryRowContext(ctx, selectInvoice+` WHERE id = ?`, id))
}

func (r *InvoiceRepository) FindByNumber(ctx context.Context, number string) (*domain.Invoice, error) {
	return scanInvoice(r.db.QueryRowContext(ctx, selectInvoice+` WHERE number = ?`, number))
}

func (r *InvoiceRepository) Create(ctx context.Context, invoice domain.Invoice) (*domain.Invoice, error) {
	items, err := encodeItems(invoice.LineItems)
	if err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO invoices (number, customer_name, line_items, total, created_at)
VALUES (?, ?, ?, ?, ?)`,
		invoice.Number,
		invoice.CustomerName,
		items,
		domain.RoundMoney(invoice.Total),
		formatTime(invoice.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: invoice number %s", domain.ErrDuplicate, invoice.Number)
		}
		return nil, fmt.Errorf("insert invoice: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}
	return r.FindByID(ctx, id)
}

// Update rewrites the stored row inside a transaction. created_at is never touched.
func (r *InvoiceRepository) Update(ctx context.Context, id int64, patch domain.InvoicePatch) (*domain.Invoice, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	current, err := scanInvoice(tx.QueryRowContext(ctx, selectInvoice+` WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	if patch.Number != nil {
		current.Number = *patch.Number
	}
	if patch.CustomerName != nil {
		current.CustomerName = *patch.CustomerName
	}
	if patch.LineItems != nil {
		current.LineItems = patch.LineItems
	}
	if patch.Total != nil {
		current.Total = domain.RoundMoney(*patch.Total)
	}
	items, err := encodeItems(current.LineItems)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
UPDATE invoices
SET number=?, customer_name=?, line_items=?, total=?
WHERE id=?`,
		current.Number,
		current.CustomerName,
		items,
		current.Total,
		id,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: invoice number %s", domain.ErrDuplicate, current.Number)
		}
		return nil, fmt.Errorf("update invoice: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit invoice update: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *InvoiceRepository) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete invoice: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("invoice delete rows affected: %w", err)
	}
	return aff > 0, nil
}

func encodeItems(items []domain.LineItem) (string, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode line items: %w", err)
	}
	return string(raw), nil
}

func scanInvoice(scanner interface {
	Scan(dest ...any) error
}) (*domain.Invoice, error) {
	var (
		inv       domain.Invoice
		items     string
		createdAt string
	)
	if err := scanner.Scan(
		&inv.ID,
		&inv.Number,
		&inv.CustomerName,
		&items,
		&inv.Total,
		&createdAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan invoice: %w", err)
	}

	if err := json.Unmarshal([]byte(items), &inv.LineItems); err != nil {
		return nil, fmt.Errorf("decode line items of invoice %d: %w", inv.ID, err)
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	inv.CreatedAt = t
	return &inv, nil
}
