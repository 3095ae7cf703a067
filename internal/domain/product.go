package domain

import (
	"fmt"
	"strings"
)

const minNameLength = 2

// Product is a catalog entry referenced by invoice line items.
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ProductPatch carries the fields of a partial product update. Nil fields are left untouched.
type ProductPatch struct {
	Name  *string
	Price *float64
}

// NewProduct validates and normalizes raw product input.
func NewProduct(name string, price float64) (Product, error) {
	name, err := normalizeName("name", name)
	if err != nil {
		return Product{}, err
	}
	price, err = normalizePrice(price)
	if err != nil {
		return Product{}, err
	}
	return Product{Name: name, Price: price}, nil
}

// Apply returns a copy of p with the patch applied and validated.
func (patch ProductPatch) Apply(p Product) (Product, error) {
	name, price := p.Name, p.Price
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Price != nil {
		price = *patch.Price
	}
	updated, err := NewProduct(name, price)
	if err != nil {
		return Product{}, err
	}
	updated.ID = p.ID
	return updated, nil
}

func normalizeName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if len([]rune(v)) < minNameLength {
		return "", fmt.Errorf("%w: %s must be at least %d characters", ErrValidation, field, minNameLength)
	}
	return v, nil
}

func normalizePrice(v float64) (float64, error) {
	if !isFinite(v) || v < 0 {
		return 0, fmt.Errorf("%w: price must be a finite number >= 0", ErrValidation)
	}
	return RoundMoney(v), nil
}
