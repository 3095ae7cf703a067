package service

import (
	"context"
	"fmt"

	"invoicing-api/internal/domain"
	"invoicing-api/internal/repository"
)

// ProductService manages the product catalog.
type ProductService interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, name string, price float64) (*domain.Product, error)
	Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id int64) error
}

type productService struct {
	products repository.ProductRepository
}

func NewProductService(products repository.ProductRepository) ProductService {
	return &productService{products: products}
}

func (s *productService) List(ctx context.Context) ([]domain.Product, error) {
	return s.products.FindAll(ctx)
}

func (s *productService) Get(ctx context.Context, id int64) (*domain.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, productNotFound(id)
	}
	return p, nil
}

func (s *productService) Create(ctx context.Context, name string, price float64) (*domain.Product, error) {
	p, err := domain.NewProduct(name, price)
	if err != nil {
		return nil, err
	}
	return s.products.Create(ctx, p)
}

func (s *productService) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := patch.Apply(*current)
	if err != nil {
		return nil, err
	}

	updated, err := s.products.Update(ctx, id, domain.ProductPatch{Name: &next.Name, Price: &next.Price})
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, productNotFound(id)
	}
	return updated, nil
}

func (s *productService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.products.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return productNotFound(id)
	}
	return nil
}

func productNotFound(id int64) error {
	return fmt.Errorf("%w: product %d", domain.ErrNotFound, id)
}
