package store

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

func (s *Store) Products(ctx context.Context) ([]models.Product, error) {
	return loadAll[models.Product](ctx, s.driver, Products)
}

func (s *Store) SaveProducts(ctx context.Context, products []models.Product) error {
	return saveAll(ctx, s.driver, Products, products)
}

func (s *Store) ProductByID(ctx context.Context, id int) (*models.Product, error) {
	products, err := s.Products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, ErrNotFound
}

// NextProductID is max(id)+1, or 1 for an empty catalog. Deleting the
// highest id frees it for reuse.
func NextProductID(products []models.Product) int {
	next := 1
	for _, p := range products {
		if p.ID >= next {
			next = p.ID + 1
		}
	}
	return next
}

// productID reads only the id of a raw product record.
func productID(rec json.RawMessage) (int, bool) {
	var key struct {
		ID int `json:"id"`
	}
	if err := json.Unmarshal(rec, &key); err != nil {
		return 0, false
	}
	return key.ID, true
}

// productFields are the keys an admin edit replaces.
var productFields = []string{"name", "description", "price", "image", "link"}

// CreateProduct assigns the next id, appends and persists. The assigned id
// is written back into p.
func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	raw, err := loadRaw(ctx, s.driver, Products)
	if err != nil {
		return err
	}
	ids := make([]models.Product, 0, len(raw))
	for _, rec := range raw {
		if id, ok := productID(rec); ok {
			ids = append(ids, models.Product{ID: id})
		}
	}
	p.ID = NextProductID(ids)

	rec, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}
	return saveRaw(ctx, s.driver, Products, append(raw, rec))
}

// UpdateProduct replaces the mutable fields of the product with p.ID and
// keeps any other stored keys. It reports false, and writes nothing, when no
// such product exists.
func (s *Store) UpdateProduct(ctx context.Context, p models.Product) (bool, error) {
	raw, err := loadRaw(ctx, s.driver, Products)
	if err != nil {
		return false, err
	}
	for i, rec := range raw {
		if id, ok := productID(rec); !ok || id != p.ID {
			continue
		}
		merged, err := mergeRecord(rec, p, productFields...)
		if err != nil {
			return false, fmt.Errorf("update product %d: %w", p.ID, err)
		}
		raw[i] = merged
		return true, saveRaw(ctx, s.driver, Products, raw)
	}
	return false, nil
}

// DeleteProduct drops every product with the id. Orders keep their snapshot.
func (s *Store) DeleteProduct(ctx context.Context, id int) error {
	raw, err := loadRaw(ctx, s.driver, Products)
	if err != nil {
		return err
	}
	kept := raw[:0]
	for _, rec := range raw {
		if pid, ok := productID(rec); ok && pid == id {
			continue
		}
		kept = append(kept, rec)
	}
	return saveRaw(ctx, s.driver, Products, kept)
}
