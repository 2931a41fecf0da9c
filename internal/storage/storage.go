package storage

import (
	"context"
	"net/http"
	"strings"
	"sync"
)

// ObjectStore keeps public assets such as branding logos.
type ObjectStore interface {
	// Put stores data under key and returns its public URL.
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

type memoryObject struct {
	ContentType string
	Data        []byte
}

// MemoryStore is an in-process ObjectStore for development and tests.
type MemoryStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: baseURL, objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = memoryObject{ContentType: contentType, Data: append([]byte(nil), data...)}
	return joinURL(s.baseURL, key), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Get returns a stored object, for tests.
func (s *MemoryStore) Get(key string) (contentType string, data []byte, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.ContentType, obj.Data, ok
}

// ServeHTTP serves objects by key, the request path without its leading
// slash, so the URLs returned by Put resolve in development.
func (s *MemoryStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ct, data, ok := s.Get(strings.TrimPrefix(r.URL.Path, "/"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(data)
}

var (
	_ ObjectStore  = (*MemoryStore)(nil)
	_ http.Handler = (*MemoryStore)(nil)
)
