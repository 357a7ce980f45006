// Package file stores each request's records as a JSON document in a
// directory. Writes go through a temp file and rename.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/defistate/token-launcher-go/store"
)

// Store is a directory-backed store.Store.
type Store struct {
	dir string
	mu  sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New creates the directory if needed and returns a store rooted at it.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: %w: empty directory", store.ErrInvalidInput)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(requestID string) string {
	return filepath.Join(s.dir, url.PathEscape(requestID)+".json")
}

func (s *Store) read(requestID string) ([]store.Record, error) {
	data, err := os.ReadFile(s.path(requestID))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	var records []store.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path(requestID), err)
	}
	return records, nil
}

func (s *Store) Append(_ context.Context, r *store.Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read(r.RequestID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}
	for i := range records {
		if records[i].Key() == r.Key() {
			return store.ErrDuplicateKey
		}
	}
	records = append(records, *r)

	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return atomicWrite(s.path(r.RequestID), content)
}

func (s *Store) Load(_ context.Context, requestID string) ([]store.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(requestID)
}

func (s *Store) Ping(context.Context) error {
	_, err := os.Stat(s.dir)
	return err
}

func (s *Store) Close() error { return nil }

func atomicWrite(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".launch-tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("atomic rename: %w", err)
	}
	return nil
}
