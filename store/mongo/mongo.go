// Package mongo implements hica.ThreadStore using MongoDB, one document per
// thread keyed by its thread_id field with ReplaceOne upsert writes.
//
// The Store accepts an externally-owned *mongo.Collection; the caller owns
// the client and is responsible for disconnecting it.
package mongo

import (
	"context"
	"errors"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nevindra/hica"
)

// StoreOption configures a MongoDB Store.
type StoreOption func(*Store)

// WithLogger sets a structured logger for the store. If not set, no logs
// are emitted.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = l }
}

// Store implements hica.ThreadStore backed by a MongoDB collection.
type Store struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

var _ hica.ThreadStore = (*Store)(nil)

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// threadDocument is the MongoDB document representation of a thread snapshot.
type threadDocument struct {
	ThreadID string          `bson:"thread_id"`
	Events   []eventDocument `bson:"events"`
	Metadata map[string]any  `bson:"metadata"`
}

// eventDocument is the MongoDB document representation of one event.
type eventDocument struct {
	Type string `bson:"type"`
	Step string `bson:"step,omitempty"`
	Data any    `bson:"data"`
}

// New creates a Store using the provided collection.
// The collection should be from a connected MongoDB client.
func New(collection *mongo.Collection, opts ...StoreOption) *Store {
	s := &Store{collection: collection, logger: nopLogger}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Set upserts the full thread snapshot keyed by thread_id.
func (s *Store) Set(ctx context.Context, t *hica.Thread) error {
	doc := toDocument(t)
	opts := options.Replace().SetUpsert(true)
	_, err := s.collection.ReplaceOne(ctx, bson.M{"thread_id": t.ThreadID}, doc, opts)
	if err != nil {
		return &hica.ErrStoreIO{Backend: "mongo", Op: "set", ID: t.ThreadID, Cause: err}
	}
	s.logger.Debug("mongo: thread saved", "thread_id", t.ThreadID)
	return nil
}

// Get returns the last snapshot for id, or hica.ErrThreadNotFound.
func (s *Store) Get(ctx context.Context, id string) (*hica.Thread, error) {
	var doc threadDocument
	err := s.collection.FindOne(ctx, bson.M{"thread_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, hica.ErrThreadNotFound
		}
		return nil, &hica.ErrStoreIO{Backend: "mongo", Op: "get", ID: id, Cause: err}
	}
	return fromDocument(&doc), nil
}

// Delete removes the snapshot for id. An absent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"thread_id": id})
	if err != nil {
		return &hica.ErrStoreIO{Backend: "mongo", Op: "delete", ID: id, Cause: err}
	}
	return nil
}

// All enumerates every stored snapshot keyed by thread id.
func (s *Store) All(ctx context.Context) (map[string]*hica.Thread, error) {
	cursor, err := s.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, &hica.ErrStoreIO{Backend: "mongo", Op: "all", Cause: err}
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []threadDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, &hica.ErrStoreIO{Backend: "mongo", Op: "all", Cause: err}
	}

	out := make(map[string]*hica.Thread, len(docs))
	for i := range docs {
		out[docs[i].ThreadID] = fromDocument(&docs[i])
	}
	return out, nil
}

// toDocument converts a thread to its MongoDB document form.
func toDocument(t *hica.Thread) *threadDocument {
	events := make([]eventDocument, len(t.Events))
	for i, ev := range t.Events {
		events[i] = eventDocument{
			Type: string(ev.Type),
			Step: ev.Step,
			Data: ev.Data,
		}
	}
	metadata := t.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &threadDocument{
		ThreadID: t.ThreadID,
		Events:   events,
		Metadata: metadata,
	}
}

// fromDocument converts a MongoDB document back to a thread.
func fromDocument(doc *threadDocument) *hica.Thread {
	events := make([]hica.Event, len(doc.Events))
	for i, ev := range doc.Events {
		events[i] = hica.Event{
			Type: hica.EventType(ev.Type),
			Step: ev.Step,
			Data: normalizeBSON(ev.Data),
		}
	}
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	return &hica.Thread{
		ThreadID: doc.ThreadID,
		Events:   events,
		Metadata: metadata,
	}
}

// normalizeBSON converts BSON decode shapes (bson.D, bson.A) into the plain
// map/slice forms the rest of the package works with, so snapshots read from
// MongoDB compare equal to their JSON round trips.
func normalizeBSON(v any) any {
	switch val := v.(type) {
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalizeBSON(e.Value)
		}
		return out
	case bson.M:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeBSON(e)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeBSON(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, e := range val {
			out[k] = normalizeBSON(e)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normalizeBSON(e)
		}
		return out
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return val
	}
}
