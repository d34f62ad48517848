// Package file implements hica.ThreadStore with one JSON file per thread
// under a directory. The filename is {thread_id}.json and the payload is the
// thread's snapshot serialization. Writes overwrite the whole file, which
// maps onto the store's full-snapshot upsert contract.
package file

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/nevindra/hica"
)

// DefaultDir is used when no directory is given and HICA_CONTEXT_DIR is
// unset.
const DefaultDir = "context"

// StoreOption configures a file Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. If not set, no logs
// are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements hica.ThreadStore backed by a directory of JSON files.
type Store struct {
	dir    string
	logger *slog.Logger
}

var _ hica.ThreadStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// New creates a Store rooted at dir, creating it if needed. An empty dir
// falls back to HICA_CONTEXT_DIR, then to DefaultDir.
func New(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		dir = os.Getenv("HICA_CONTEXT_DIR")
	}
	if dir == "" {
		dir = DefaultDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &hica.ErrStoreIO{Backend: "file", Op: "mkdir", Cause: err}
	}
	s := &Store{dir: dir, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("file: store opened", "dir", dir)
	return s, nil
}

// Dir returns the directory holding the snapshots.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Set writes the full thread snapshot, overwriting any previous one.
func (s *Store) Set(_ context.Context, t *hica.Thread) error {
	data, err := t.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path(t.ThreadID), data, 0o644); err != nil {
		return &hica.ErrStoreIO{Backend: "file", Op: "set", ID: t.ThreadID, Cause: err}
	}
	s.logger.Debug("file: thread saved", "thread_id", t.ThreadID)
	return nil
}

// Get reads the last snapshot for id, or hica.ErrThreadNotFound.
func (s *Store) Get(_ context.Context, id string) (*hica.Thread, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, hica.ErrThreadNotFound
		}
		return nil, &hica.ErrStoreIO{Backend: "file", Op: "get", ID: id, Cause: err}
	}
	return hica.ThreadFromJSON(data)
}

// Delete removes the snapshot for id. An absent id is not an error.
func (s *Store) Delete(_ context.Context, id string) error {
	if err := os.Remove(s.path(id)); err != nil && !os.IsNotExist(err) {
		return &hica.ErrStoreIO{Backend: "file", Op: "delete", ID: id, Cause: err}
	}
	return nil
}

// All enumerates every snapshot in the directory, keyed by thread id.
func (s *Store) All(_ context.Context) (map[string]*hica.Thread, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, &hica.ErrStoreIO{Backend: "file", Op: "all", Cause: err}
	}
	out := map[string]*hica.Thread{}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")
		t, err := s.Get(context.Background(), id)
		if err != nil {
			return nil, err
		}
		out[id] = t
	}
	return out, nil
}
