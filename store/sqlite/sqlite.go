// Package sqlite implements hica.ThreadStore using pure-Go SQLite.
// Zero CGO required. One row per thread in a threads(id, data) table with
// REPLACE-semantics writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nevindra/hica"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// StoreOption configures a SQLite Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. If not set, no logs
// are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements hica.ThreadStore backed by a local SQLite file.
type Store struct {
	db     *sql.DB
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

// New creates a Store using a local SQLite file at dbPath.
// It opens a single shared connection pool with SetMaxOpenConns(1) so that
// all goroutines serialize through one connection, eliminating SQLITE_BUSY
// errors caused by concurrent writers opening independent connections.
func New(dbPath string, opts ...StoreOption) *Store {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		// sql.Open only fails when the driver is not registered; with the
		// blank import above that never happens.
		panic(fmt.Sprintf("sqlite: open driver: %v", err))
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	s.logger.Debug("sqlite: store opened", "path", dbPath)
	return s
}

// Init creates the threads table.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS threads (id TEXT PRIMARY KEY, data TEXT)`)
	if err != nil {
		return &hica.ErrStoreIO{Backend: "sqlite", Op: "init", Cause: err}
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Set upserts the full thread snapshot under its id.
func (s *Store) Set(ctx context.Context, t *hica.Thread) error {
	data, err := t.ToJSON()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`REPLACE INTO threads (id, data) VALUES (?, ?)`, t.ThreadID, string(data))
	if err != nil {
		return &hica.ErrStoreIO{Backend: "sqlite", Op: "set", ID: t.ThreadID, Cause: err}
	}
	s.logger.Debug("sqlite: thread saved", "thread_id", t.ThreadID)
	return nil
}

// Get returns the last snapshot for id, or hica.ErrThreadNotFound.
func (s *Store) Get(ctx context.Context, id string) (*hica.Thread, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM threads WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, hica.ErrThreadNotFound
	}
	if err != nil {
		return nil, &hica.ErrStoreIO{Backend: "sqlite", Op: "get", ID: id, Cause: err}
	}
	return hica.ThreadFromJSON([]byte(data))
}

// Delete removes the snapshot for id. An absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, id)
	if err != nil {
		return &hica.ErrStoreIO{Backend: "sqlite", Op: "delete", ID: id, Cause: err}
	}
	return nil
}

// All enumerates every stored snapshot keyed by thread id.
func (s *Store) All(ctx context.Context) (map[string]*hica.Thread, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, data FROM threads`)
	if err != nil {
		return nil, &hica.ErrStoreIO{Backend: "sqlite", Op: "all", Cause: err}
	}
	defer rows.Close()

	out := map[string]*hica.Thread{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, &hica.ErrStoreIO{Backend: "sqlite", Op: "all", Cause: err}
		}
		t, err := hica.ThreadFromJSON([]byte(data))
		if err != nil {
			return nil, err
		}
		out[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, &hica.ErrStoreIO{Backend: "sqlite", Op: "all", Cause: err}
	}
	return out, nil
}
