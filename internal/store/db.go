package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteDriver keeps every collection as one JSON array in a row of the
// collections table.
type SQLiteDriver struct {
	DB *sql.DB
}

func NewSQLiteDriver(dataSourceName string) (*SQLiteDriver, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	d := &SQLiteDriver{DB: db}
	if err := d.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *SQLiteDriver) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	var data string
	err := d.DB.QueryRowContext(ctx, `SELECT records FROM collections WHERE name = ?`, name).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		if err := d.Save(ctx, name, nil); err != nil {
			return nil, err
		}
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecords([]byte(data))
}

func (d *SQLiteDriver) Save(ctx context.Context, name string, records []json.RawMessage) error {
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO collections (name, records, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET records = excluded.records, updated_at = CURRENT_TIMESTAMP
	`
	if _, err := d.DB.ExecContext(ctx, query, name, string(data)); err != nil {
		return fmt.Errorf("upsert collection %s: %w", name, err)
	}
	return nil
}

func (d *SQLiteDriver) Close() error {
	return d.DB.Close()
}
