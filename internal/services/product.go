package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/diet-horizon/apiserver/internal/storage"
	"github.com/diet-horizon/apiserver/internal/store"
	"github.com/diet-horizon/apiserver/types"
)

// ProductRepository defines persistence operations for products.
type ProductRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Product, int, error)
	Get(ctx context.Context, id int) (types.Product, error)
	Create(ctx context.Context, product types.Product) (types.Product, error)
	Update(ctx context.Context, product types.Product) (types.Product, error)
	Delete(ctx context.Context, id int) error
}

// ProductService encapsulates catalog use-cases, including product image
// objects kept in object storage.
type ProductService struct {
	repo    ProductRepository
	objects *storage.Storage
}

func NewProductService(repo ProductRepository, objects *storage.Storage) *ProductService {
	return &ProductService{repo: repo, objects: objects}
}

func (s *ProductService) List(ctx context.Context, offset, limit int) ([]types.Product, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return s.repo.List(ctx, offset, limit)
}

func (s *ProductService) Get(ctx context.Context, id int) (types.Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *ProductService) Create(ctx context.Context, product types.Product) (types.Product, error) {
	if err := validateProduct(product); err != nil {
		return types.Product{}, err
	}
	return s.repo.Create(ctx, product)
}

func (s *ProductService) Update(ctx context.Context, product types.Product) (types.Product, error) {
	if err := validateProduct(product); err != nil {
		return types.Product{}, err
	}
	return s.repo.Update(ctx, product)
}

func (s *ProductService) Delete(ctx context.Context, id int) error {
	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if product.ImageKey != "" && s.objects != nil {
		_ = s.objects.Delete(ctx, product.ImageKey)
	}
	return nil
}

// AttachImage uploads the image bytes for a product and records the
// object key on the product row.
func (s *ProductService) AttachImage(ctx context.Context, id int, filename string, data []byte, contentType string) (types.Product, error) {
	if s.objects == nil {
		return types.Product{}, fmt.Errorf("image storage is not configured")
	}

	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Product{}, err
	}

	key := imageKey(id, filename)
	if err := s.objects.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		return types.Product{}, err
	}

	product.ImageKey = key
	return s.repo.Update(ctx, product)
}

// OpenImage streams a product's image from object storage.
func (s *ProductService) OpenImage(ctx context.Context, id int) (io.ReadCloser, error) {
	if s.objects == nil {
		return nil, fmt.Errorf("image storage is not configured")
	}

	product, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.ImageKey == "" {
		return nil, store.ErrNotFound
	}
	return s.objects.Get(ctx, product.ImageKey)
}

func validateProduct(product types.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return ErrMissingFields
	}
	if product.Price < 0 || product.Stock < 0 {
		return ErrInvalidItem
	}
	return nil
}

func imageKey(id int, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("products/%d/image%s", id, ext)
}
