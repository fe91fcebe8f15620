// File: internal/infra/store/jsonfile/store.go
package jsonfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"clinic-relay/internal/domain"
	"clinic-relay/internal/domain/model"
	"clinic-relay/internal/domain/ports/repository"
)

var _ repository.DatasetStore = (*Store)(nil)

// Store persists the tenant dataset as one pretty-printed JSON document.
// A single mutex serializes every load-mutate-save cycle; writes go
// through a temp file and rename so a crash never leaves a torn file.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, domain.ErrInvalidArgument
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}
	return &Store{path: path}, nil
}

func (s *Store) Load(ctx context.Context) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) Save(ctx context.Context, ds *model.Dataset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ds)
}

// Update reloads the dataset from disk, applies fn, and saves — all
// under the store lock. When fn errors nothing reaches disk, so a half
// mutated in-memory dataset is simply discarded.
func (s *Store) Update(ctx context.Context, fn func(ds *model.Dataset) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return domain.Storage("update", err)
	}
	ds, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(ds); err != nil {
		return err
	}
	return s.save(ds)
}

func (s *Store) load() (*model.Dataset, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.NewDataset(), nil
		}
		return nil, domain.Storage("read", err)
	}
	ds := model.NewDataset()
	if err := json.Unmarshal(b, ds); err != nil {
		return nil, domain.Storage("decode", err)
	}
	if ds.Clinics == nil {
		ds.Clinics = make(map[string]*model.Clinic)
	}
	return ds, nil
}

func (s *Store) save(ds *model.Dataset) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ds); err != nil {
		return domain.Storage("encode", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".data-*.json")
	if err != nil {
		return domain.Storage("write", err)
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return domain.Storage("write", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return domain.Storage("write", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return domain.Storage("write", err)
	}
	return nil
}
