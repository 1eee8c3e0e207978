package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
)

// FileDriver keeps each collection in <dir>/<name>.json, indented so the
// files stay readable and hand-editable.
type FileDriver struct {
	dir string
}

func NewFileDriver(dir string) (*FileDriver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileDriver{dir: dir}, nil
}

func (d *FileDriver) path(name string) string {
	return filepath.Join(d.dir, name+".json")
}

func (d *FileDriver) Load(ctx context.Context, name string) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(d.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		if err := d.Save(ctx, name, nil); err != nil {
			return nil, err
		}
		return []json.RawMessage{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeRecords(data)
}

// Save writes to a temp file in the same directory and renames it over the
// collection, so a reader sees either the old or the new list.
func (d *FileDriver) Save(ctx context.Context, name string, records []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeRecords(records)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(d.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	// CreateTemp makes the file owner-only.
	if err := tmp.Chmod(collectionFileMode); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), d.path(name)); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (d *FileDriver) Close() error { return nil }

const collectionFileMode = 0o644

func decodeRecords(data []byte) ([]json.RawMessage, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []json.RawMessage{}, nil
	}
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("collection is not a JSON array: %w", err)
	}
	if records == nil {
		records = []json.RawMessage{}
	}
	return records, nil
}

func encodeRecords(records []json.RawMessage) ([]byte, error) {
	if records == nil {
		records = []json.RawMessage{}
	}
	return json.MarshalIndent(records, "", "    ")
}
