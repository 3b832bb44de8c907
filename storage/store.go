/*
	Package storage provides the key-value view of an array store: a zarr
	hierarchy is just keys like "0/.zarray" and "0/4.2.1" resolved against a
	directory, an HTTP prefix, or an object-store bucket.  Read-through caches
	wrap any Store.
*/

package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/tlambert03/ndv/ndv"
)

// ErrNotFound is returned by Store.Get for missing keys.  Remote stores fold
// HTTP error statuses into it so metadata probing can treat absence and
// failure uniformly.
var ErrNotFound = errors.New("key not found")

// Store is a read-only key-value view of an array hierarchy.
type Store interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Type describes the backend for logging.
	Type() string
}

// WritableStore is a Store that also accepts writes.
type WritableStore interface {
	Store
	Put(ctx context.Context, key string, val []byte) error
}

// MemoryStore is an in-memory WritableStore.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Type() string { return "memory" }

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.data[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return append([]byte(nil), d...), nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), val...)
	return nil
}

// FileStore reads keys as files under a base directory.
type FileStore struct {
	base string
}

func NewFileStore(base string) (*FileStore, error) {
	base, err := filepath.Abs(base)
	if err != nil {
		return nil, err
	}
	return &FileStore{base: base}, nil
}

func (s *FileStore) Type() string { return "file" }

func (s *FileStore) Get(ctx context.Context, key string) ([]byte, error) {
	d, err := os.ReadFile(filepath.Join(s.base, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return d, err
}

func (s *FileStore) Put(ctx context.Context, key string, val []byte) error {
	path := filepath.Join(s.base, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, val, 0644)
}

// HTTPStore reads keys relative to a base URL.  Any HTTP error status maps to
// ErrNotFound; remote lookups are probes, not transactions.
type HTTPStore struct {
	base   string
	client *http.Client
}

func NewHTTPStore(baseURL string) *HTTPStore {
	return &HTTPStore{
		base:   strings.TrimRight(baseURL, "/"),
		client: http.DefaultClient,
	}
}

func (s *HTTPStore) Type() string { return "http" }

func (s *HTTPStore) Get(ctx context.Context, key string) ([]byte, error) {
	url := s.base + "/" + strings.TrimLeft(key, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		ndv.Debugf("http store: GET %s -> %d\n", url, resp.StatusCode)
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
