package memory

import (
	"context"
	"sort"
	"sync"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

// ProductRepository keeps the catalog in process memory. Contents are lost on restart.
type ProductRepository struct {
	mu     sync.RWMutex
	items  map[int64]domain.Product
	lastID int64
}

// NewProductRepository returns a store pre-populated with seed.
func NewProductRepository(seed []domain.Product) *ProductRepository {
	r := &ProductRepository{items: make(map[int64]domain.Product, len(seed))}
	for _, p := range seed {
		p.Price = domain.RoundMoney(p.Price)
		r.items[p.ID] = p
		if p.ID > r.lastID {
			r.lastID = p.ID
		}
	}
	return r
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func (r *ProductRepository) FindAll(_ context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *ProductRepository) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProductRepository) Create(_ context.Context, product domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastID++
	product.ID = r.lastID
	product.Price = domain.RoundMoney(product.Price)
	r.items[product.ID] = product
	return &product, nil
}

func (r *ProductRepository) Update(_ context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Price != nil {
		p.Price = domain.RoundMoney(*patch.Price)
	}
	r.items[id] = p
	return &p, nil
}

func (r *ProductRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	return true, nil
}
