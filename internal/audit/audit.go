// Package audit records every successful write: which resource, which
// action, which row, and the request it came from.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Actions.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Event is one write.
type Event struct {
	Resource     string    `bson:"resource" json:"resource"`
	Action       string    `bson:"action" json:"action"`
	RecordID     int64     `bson:"record_id" json:"record_id"`
	AffectedRows int64     `bson:"affected_rows" json:"affected_rows"`
	RequestID    string    `bson:"request_id,omitempty" json:"request_id,omitempty"`
	At           time.Time `bson:"at" json:"at"`
}

// Recorder persists events. Recording failures never fail the request
// that caused them; callers log and move on.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// LogRecorder writes events as structured log lines.
type LogRecorder struct {
	log zerolog.Logger
}

func NewLogRecorder(log zerolog.Logger) *LogRecorder {
	return &LogRecorder{log: log.With().Str("component", "audit").Logger()}
}

func (r *LogRecorder) Record(_ context.Context, e Event) error {
	r.log.Info().
		Str("resource", e.Resource).
		Str("action", e.Action).
		Int64("record_id", e.RecordID).
		Int64("affected_rows", e.AffectedRows).
		Str("request_id", e.RequestID).
		Time("at", e.At).
		Msg("write")
	return nil
}

// MongoRecorder appends events to the "events" collection.
type MongoRecorder struct {
	col *mongo.Collection
}

// NewMongoClient connects and pings the server at uri.
func NewMongoClient(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

func NewMongoRecorder(db *mongo.Database) *MongoRecorder {
	return &MongoRecorder{col: db.Collection("events")}
}

func (r *MongoRecorder) Record(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	if _, err := r.col.InsertOne(ctx, e); err != nil {
		return fmt.Errorf("mongo insert audit event: %w", err)
	}
	return nil
}

// Ping checks the server behind the collection.
func (r *MongoRecorder) Ping(ctx context.Context) error {
	return r.col.Database().Client().Ping(ctx, nil)
}

// Nop discards events.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }
