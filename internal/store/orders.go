package store

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/ahmedandnoor/HappyClothify/internal/models"
)

func (s *Store) Orders(ctx context.Context) ([]models.Order, error) {
	return loadAll[models.Order](ctx, s.driver, Orders)
}

func (s *Store) SaveOrders(ctx context.Context, orders []models.Order) error {
	return saveAll(ctx, s.driver, Orders, orders)
}

// RawOrders returns the undecoded order records so a caller can skip the
// ones it cannot read instead of failing the whole list.
func (s *Store) RawOrders(ctx context.Context) ([]json.RawMessage, error) {
	return s.driver.Load(ctx, Orders)
}

// AppendOrder adds the order at the end without decoding the stored ones.
func (s *Store) AppendOrder(ctx context.Context, order models.Order) error {
	return appendRecord(ctx, s.driver, Orders, order)
}

// DeleteOrderAt removes the order at position index of the stored list.
// It reports false for an index outside the list.
func (s *Store) DeleteOrderAt(ctx context.Context, index int) (bool, error) {
	return removeRecordAt(ctx, s.driver, Orders, index)
}
