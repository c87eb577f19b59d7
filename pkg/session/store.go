package session

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
	"time"

	pgio "github.com/matzehuels/pencilgraph/pkg/io"
)

// Record is the stored form of a session.
type Record struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	Document  *pgio.Document `json:"document"`
}

// IsExpired returns true if the record has expired.
func (r *Record) IsExpired() bool {
	return !r.ExpiresAt.IsZero() && time.Now().After(r.ExpiresAt)
}

// Record captures the session. A ttl of zero never expires.
func (s *Session) Record(ttl time.Duration) (*Record, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	now := time.Now()
	rec := &Record{ID: s.ID, CreatedAt: s.CreatedAt, UpdatedAt: now, Document: doc}
	if ttl > 0 {
		rec.ExpiresAt = now.Add(ttl)
	}
	return rec, nil
}

// Restore rebuilds a session from a record. The session keeps the
// record's ID.
func Restore(rec *Record, opts Options) (*Session, error) {
	if rec.Document == nil {
		return nil, fmt.Errorf("%w: session %s has no document", ErrNotFound, rec.ID)
	}
	p, err := rec.Document.Build(pgio.ReadOptions{Logger: opts.withDefaults().Logger})
	if err != nil {
		return nil, err
	}
	s, err := FromProject(p, opts)
	if err != nil {
		return nil, err
	}
	s.ID = rec.ID
	s.CreatedAt = rec.CreatedAt
	return s, nil
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a record by ID. It returns ErrNotFound for missing
	// and ErrExpired for expired records.
	Get(ctx context.Context, id string) (*Record, error)

	// Set stores a record.
	Set(ctx context.Context, rec *Record) error

	// Delete removes a record.
	Delete(ctx context.Context, id string) error

	// List returns the stored IDs, most recently updated first.
	List(ctx context.Context) ([]string, error)

	// Cleanup removes expired records and returns how many.
	Cleanup(ctx context.Context) (int, error)
}

// FileStore keeps records as JSON files in a directory.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
}

// NewFileStore creates a file-based store.
// If baseDir is empty, defaults to ~/.config/pencilgraph/sessions/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "pencilgraph", "sessions")
	}
	if err := os.MkdirAll(baseDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Get(ctx context.Context, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := readRecord(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	if rec.IsExpired() {
		return nil, fmt.Errorf("%w: session %s", ErrExpired, id)
	}
	return rec, nil
}

func (s *FileStore) Set(ctx context.Context, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := os.WriteFile(s.path(rec.ID), data, 0o600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type item struct {
		id      string
		updated time.Time
	}
	var items []item
	err := s.each(func(path string, rec *Record) {
		items = append(items, item{rec.ID, rec.UpdatedAt})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].updated.Equal(items[j].updated) {
			return items[i].updated.After(items[j].updated)
		}
		return items[i].id < items[j].id
	})
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return ids, nil
}

func (s *FileStore) Cleanup(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	err := s.each(func(path string, rec *Record) {
		if rec.IsExpired() && os.Remove(path) == nil {
			n++
		}
	})
	return n, err
}

// each calls fn for every readable record. Unreadable files are skipped.
func (s *FileStore) each(fn func(path string, rec *Record)) error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read session dir: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.baseDir, entry.Name())
		rec, err := readRecord(path)
		if err != nil {
			continue
		}
		fn(path, rec)
	}
	return nil
}

// Path returns the base directory for session files.
func (s *FileStore) Path() string {
	return s.baseDir
}

func readRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse session: %w", err)
	}
	return &rec, nil
}

var _ Store = (*FileStore)(nil)
