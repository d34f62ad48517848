package hica

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
)

// MemoryStore is a minimal key-value store for general agent memory: prompt
// templates, configuration fragments, citations, anything the caller wants
// to inject as context. Thread snapshots use ThreadStore instead.
type MemoryStore interface {
	Get(ctx context.Context, key string) (any, bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
	All(ctx context.Context) (map[string]any, error)
}

// InMemoryStore is an ephemeral MemoryStore. Safe for concurrent use.
type InMemoryStore struct {
	mu    sync.RWMutex
	items map[string]any
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{items: map[string]any{}}
}

func (s *InMemoryStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok, nil
}

func (s *InMemoryStore) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = value
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

func (s *InMemoryStore) All(_ context.Context) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]any, len(s.items))
	for k, v := range s.items {
		out[k] = v
	}
	return out, nil
}

// FileMemoryStore keeps all key-value pairs in a single JSON file, rewriting
// it on every mutation. Values must be JSON-representable.
type FileMemoryStore struct {
	path string
	mu   sync.Mutex
}

// NewFileMemoryStore creates a store backed by path. The file is created on
// first write.
func NewFileMemoryStore(path string) *FileMemoryStore {
	return &FileMemoryStore{path: path}
}

func (s *FileMemoryStore) load() (map[string]any, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, &ErrStoreIO{Backend: "file", Op: "read", Cause: err}
	}
	var items map[string]any
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, &ErrStoreIO{Backend: "file", Op: "decode", Cause: err}
	}
	return items, nil
}

func (s *FileMemoryStore) save(items map[string]any) error {
	b, err := json.Marshal(items)
	if err != nil {
		return &ErrStoreIO{Backend: "file", Op: "encode", Cause: err}
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		return &ErrStoreIO{Backend: "file", Op: "write", Cause: err}
	}
	return nil
}

func (s *FileMemoryStore) Get(_ context.Context, key string) (any, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return nil, false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (s *FileMemoryStore) Set(_ context.Context, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return err
	}
	items[key] = value
	return s.save(items)
}

func (s *FileMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := items[key]; !ok {
		return nil
	}
	delete(items, key)
	return s.save(items)
}

func (s *FileMemoryStore) All(_ context.Context) (map[string]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// PromptStore stores named prompt templates in any MemoryStore backend and
// fills {variable} placeholders on retrieval.
type PromptStore struct {
	backend MemoryStore
}

// NewPromptStore creates a prompt store over backend; nil defaults to an
// in-memory backend.
func NewPromptStore(backend MemoryStore) *PromptStore {
	if backend == nil {
		backend = NewInMemoryStore()
	}
	return &PromptStore{backend: backend}
}

// Set stores a template under key.
func (p *PromptStore) Set(ctx context.Context, key, template string) error {
	return p.backend.Set(ctx, key, template)
}

// Get retrieves the template under key and substitutes each {name}
// placeholder with vars[name]. Unknown placeholders are left intact.
func (p *PromptStore) Get(ctx context.Context, key string, vars map[string]string) (string, error) {
	v, ok, err := p.backend.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("prompt %q not found", key)
	}
	template, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("prompt %q is not a string", key)
	}
	for name, val := range vars {
		template = strings.ReplaceAll(template, "{"+name+"}", val)
	}
	return template, nil
}

// Delete removes the template under key.
func (p *PromptStore) Delete(ctx context.Context, key string) error {
	return p.backend.Delete(ctx, key)
}
