package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

// Collection names. Each one is an ordered list of JSON records.
const (
	Products = "products"
	Orders   = "orders"
	Users    = "users"
)

var ErrNotFound = errors.New("not found")

// Driver persists whole collections. Load creates an empty collection the
// first time a name is read; Save replaces the collection in one step.
type Driver interface {
	Load(ctx context.Context, name string) ([]json.RawMessage, error)
	Save(ctx context.Context, name string, records []json.RawMessage) error
	Close() error
}

// Store is the only component that touches persisted records. There is no
// locking: two concurrent writers of the same collection race and the last
// Save wins.
type Store struct {
	driver Driver
}

func New(driver Driver) *Store {
	return &Store{driver: driver}
}

// Open builds a Store on the named driver: "file" keeps one JSON file per
// collection under dataDir, "sqlite" keeps them as rows in the database at
// dbPath.
func Open(driver, dataDir, dbPath string) (*Store, error) {
	switch driver {
	case "", "file":
		d, err := NewFileDriver(dataDir)
		if err != nil {
			return nil, err
		}
		return New(d), nil
	case "sqlite":
		d, err := NewSQLiteDriver(dbPath)
		if err != nil {
			return nil, err
		}
		return New(d), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func loadAll[T any](ctx context.Context, d Driver, name string) ([]T, error) {
	raw, err := d.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	out := make([]T, 0, len(raw))
	for i, rec := range raw {
		var v T
		if err := json.Unmarshal(rec, &v); err != nil {
			return nil, fmt.Errorf("decode %s[%d]: %w", name, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func saveAll[T any](ctx context.Context, d Driver, name string, records []T) error {
	raw := make([]json.RawMessage, 0, len(records))
	for i := range records {
		b, err := json.Marshal(records[i])
		if err != nil {
			return fmt.Errorf("encode %s[%d]: %w", name, i, err)
		}
		raw = append(raw, b)
	}
	if err := d.Save(ctx, name, raw); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

// Mutations work on the raw records so that keys the typed models do not
// know about survive a rewrite, and one odd record cannot block changes to
// the rest.

func loadRaw(ctx context.Context, d Driver, name string) ([]json.RawMessage, error) {
	raw, err := d.Load(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	return raw, nil
}

func saveRaw(ctx context.Context, d Driver, name string, raw []json.RawMessage) error {
	if err := d.Save(ctx, name, raw); err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	return nil
}

func appendRecord(ctx context.Context, d Driver, name string, v any) error {
	rec, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s record: %w", name, err)
	}
	raw, err := loadRaw(ctx, d, name)
	if err != nil {
		return err
	}
	return saveRaw(ctx, d, name, append(raw, rec))
}

// removeRecordAt removes the record at index. It reports false, and writes
// nothing, for an index outside the collection.
func removeRecordAt(ctx context.Context, d Driver, name string, index int) (bool, error) {
	raw, err := loadRaw(ctx, d, name)
	if err != nil {
		return false, err
	}
	raw, ok := removeAt(raw, index)
	if !ok {
		return false, nil
	}
	return true, saveRaw(ctx, d, name, raw)
}

func removeAt[T any](list []T, index int) ([]T, bool) {
	if index < 0 || index >= len(list) {
		return list, false
	}
	return append(list[:index], list[index+1:]...), true
}

// mergeRecord overwrites the given keys of rec with their values from v and
// leaves every other key untouched.
func mergeRecord(rec json.RawMessage, v any, keys ...string) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec, &fields); err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var updates map[string]json.RawMessage
	if err := json.Unmarshal(b, &updates); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage, len(keys))
	}
	for _, k := range keys {
		if val, ok := updates[k]; ok {
			fields[k] = val
		}
	}
	return json.Marshal(fields)
}
