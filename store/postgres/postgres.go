// Package postgres implements hica.ThreadStore using PostgreSQL.
//
// The Store accepts an externally-owned *pgxpool.Pool via constructor
// injection. The caller creates and closes the pool. Writes use
// INSERT ... ON CONFLICT upserts, presenting the same replace-semantics
// contract as the embedded SQLite backend.
package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nevindra/hica"
)

// StoreOption configures a PostgreSQL Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. If not set, no logs
// are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements hica.ThreadStore backed by PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
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

// New creates a Store using an existing pgxpool.Pool.
// The caller owns the pool and is responsible for closing it.
func New(pool *pgxpool.Pool, opts ...StoreOption) *Store {
	s := &Store{pool: pool, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Init creates the threads table.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS threads (id TEXT PRIMARY KEY, data TEXT NOT NULL)`)
	if err != nil {
		return &hica.ErrStoreIO{Backend: "postgres", Op: "init", Cause: err}
	}
	return nil
}

// Set upserts the full thread snapshot under its id.
func (s *Store) Set(ctx context.Context, t *hica.Thread) error {
	data, err := t.ToJSON()
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO threads (id, data) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data`,
		t.ThreadID, string(data))
	if err != nil {
		return &hica.ErrStoreIO{Backend: "postgres", Op: "set", ID: t.ThreadID, Cause: err}
	}
	s.logger.Debug("postgres: thread saved", "thread_id", t.ThreadID)
	return nil
}

// Get returns the last snapshot for id, or hica.ErrThreadNotFound.
func (s *Store) Get(ctx context.Context, id string) (*hica.Thread, error) {
	var data string
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM threads WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, hica.ErrThreadNotFound
	}
	if err != nil {
		return nil, &hica.ErrStoreIO{Backend: "postgres", Op: "get", ID: id, Cause: err}
	}
	return hica.ThreadFromJSON([]byte(data))
}

// Delete removes the snapshot for id. An absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM threads WHERE id = $1`, id)
	if err != nil {
		return &hica.ErrStoreIO{Backend: "postgres", Op: "delete", ID: id, Cause: err}
	}
	return nil
}

// All enumerates every stored snapshot keyed by thread id.
func (s *Store) All(ctx context.Context) (map[string]*hica.Thread, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, data FROM threads`)
	if err != nil {
		return nil, &hica.ErrStoreIO{Backend: "postgres", Op: "all", Cause: err}
	}
	defer rows.Close()

	out := map[string]*hica.Thread{}
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, &hica.ErrStoreIO{Backend: "postgres", Op: "all", Cause: err}
		}
		t, err := hica.ThreadFromJSON([]byte(data))
		if err != nil {
			return nil, err
		}
		out[id] = t
	}
	if err := rows.Err(); err != nil {
		return nil, &hica.ErrStoreIO{Backend: "postgres", Op: "all", Cause: err}
	}
	return out, nil
}
