package domain

import (
	"fmt"
	"strings"
	"time"
)

// LineItem references a product by id; the price is resolved when the total is computed.
type LineItem struct {
	ProductID int64   `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

// Invoice is a historical document. Total is frozen at the last successful create or update.
type Invoice struct {
	ID           int64      `json:"id"`
	Number       string     `json:"number"`
	CustomerName string     `json:"customer_name"`
	LineItems    []LineItem `json:"line_items"`
	Total        float64    `json:"total"`
	CreatedAt    time.Time  `json:"created_at"`
}

// InvoicePatch carries the fields of an invoice update. A nil LineItems slice keeps the stored items.
type InvoicePatch struct {
	Number       *string
	CustomerName *string
	LineItems    []LineItem
	Total        *float64
}

// NewInvoice validates and normalizes invoice fields.
func NewInvoice(number, customerName string, items []LineItem, total float64) (Invoice, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return Invoice{}, fmt.Errorf("%w: number is required", ErrValidation)
	}
	customerName, err := normalizeName("customer_name", customerName)
	if err != nil {
		return Invoice{}, err
	}
	if items == nil {
		return Invoice{}, fmt.Errorf("%w: line_items must be a list", ErrValidation)
	}
	for i, item := range items {
		if err := item.Validate(i); err != nil {
			return Invoice{}, err
		}
	}
	if !isFinite(total) || total < 0 {
		return Invoice{}, fmt.Errorf("%w: total must be a finite number >= 0", ErrValidation)
	}
	return Invoice{
		Number:       number,
		CustomerName: customerName,
		LineItems:    copyItems(items),
		Total:        RoundMoney(total),
	}, nil
}

// Validate checks a single line item; index is used in the failure reason.
func (item LineItem) Validate(index int) error {
	if item.ProductID <= 0 {
		return fmt.Errorf("%w: line item %d: productId must be a positive integer", ErrValidation, index)
	}
	if !isFinite(item.Quantity) || item.Quantity <= 0 {
		return fmt.Errorf("%w: line item %d: quantity must be greater than 0", ErrValidation, index)
	}
	return nil
}

// Clone returns a deep copy of inv.
func (inv Invoice) Clone() Invoice {
	inv.LineItems = copyItems(inv.LineItems)
	return inv
}

func copyItems(items []LineItem) []LineItem {
	if items == nil {
		return nil
	}
	out := make([]LineItem, len(items))
	copy(out, items)
	return out
}
