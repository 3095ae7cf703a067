package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

// DefaultCatalog seeds a products file that does not exist yet.
var DefaultCatalog = []domain.Product{
	{ID: 1, Name: "Notebook", Price: 25.9},
	{ID: 2, Name: "Ballpoint pen", Price: 3.5},
	{ID: 3, Name: "Backpack", Price: 149.99},
}

// ProductRepository persists the catalog as a pretty-printed JSON array.
// Every operation re-reads the whole file; writes are serialized and replace the file atomically.
type ProductRepository struct {
	path   string
	mu     sync.Mutex
	lastID int64
}

// Open prepares the products file at path, seeding it when absent, and verifies the
// directory is writable.
func Open(path string, seed []domain.Product) (*ProductRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create products dir: %w", err)
	}
	if err := probeWritable(filepath.Dir(path)); err != nil {
		return nil, fmt.Errorf("products dir not writable: %w", err)
	}

	r := &ProductRepository{path: path}
	products, err := r.load()
	if errors.Is(err, fs.ErrNotExist) {
		products = append([]domain.Product(nil), seed...)
		if products == nil {
			products = []domain.Product{}
		}
		err = r.save(products)
	}
	if err != nil {
		return nil, err
	}
	r.lastID = maxID(products)
	return r, nil
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// Path reports the file backing the repository.
func (r *ProductRepository) Path() string {
	return r.path
}

func (r *ProductRepository) FindAll(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	products, err := r.load()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	sort.SliceStable(products, func(i, j int) bool { return products[i].ID > products[j].ID })
	return products, nil
}

func (r *ProductRepository) FindByID(_ context.Context, id int64) (*domain.Product, error) {
	r.mu.Lock()
	products, err := r.load()
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if i := indexOf(products, id); i >= 0 {
		p := products[i]
		return &p, nil
	}
	return nil, nil
}

func (r *ProductRepository) Create(_ context.Context, product domain.Product) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.load()
	if err != nil {
		return nil, err
	}
	r.lastID = max(r.lastID, maxID(products)) + 1
	product.ID = r.lastID
	product.Price = domain.RoundMoney(product.Price)

	if err := r.save(append(products, product)); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *ProductRepository) Update(_ context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.load()
	if err != nil {
		return nil, err
	}
	i := indexOf(products, id)
	if i < 0 {
		return nil, nil
	}
	if patch.Name != nil {
		products[i].Name = *patch.Name
	}
	if patch.Price != nil {
		products[i].Price = domain.RoundMoney(*patch.Price)
	}
	if err := r.save(products); err != nil {
		return nil, err
	}
	p := products[i]
	return &p, nil
}

func (r *ProductRepository) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	products, err := r.load()
	if err != nil {
		return false, err
	}
	i := indexOf(products, id)
	if i < 0 {
		return false, nil
	}
	products = append(products[:i], products[i+1:]...)
	if err := r.save(products); err != nil {
		return false, err
	}
	return true, nil
}

func (r *ProductRepository) load() ([]domain.Product, error) {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("read products file: %w", err)
	}
	var products []domain.Product
	if err := json.Unmarshal(raw, &products); err != nil {
		return nil, fmt.Errorf("decode products file %s: %w", r.path, err)
	}
	return products, nil
}

func (r *ProductRepository) save(products []domain.Product) error {
	raw, err := json.MarshalIndent(products, "", "  ")
	if err != nil {
		return fmt.Errorf("encode products: %w", err)
	}
	if err := replaceFile(r.path, raw); err != nil {
		return fmt.Errorf("write products file: %w", err)
	}
	return nil
}

func indexOf(products []domain.Product, id int64) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

func maxID(products []domain.Product) int64 {
	var id int64
	for _, p := range products {
		if p.ID > id {
			id = p.ID
		}
	}
	return id
}
