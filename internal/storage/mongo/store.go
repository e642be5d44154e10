// Package mongo is the document-oriented storage backend. Records live in
// one collection, audit entries in another, mirroring the layout the
// ledger's data has always had.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"splitbook/internal/audit"
	"splitbook/internal/core"
	"splitbook/internal/storage"
)

const auditCollection = "audit_logs"

type recordDoc struct {
	ID          string    `bson:"_id"`
	Category    string    `bson:"category"`
	Friend      string    `bson:"friend"`
	AmountCents int64     `bson:"amount_cents"`
	Note        string    `bson:"note,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

type auditDoc struct {
	ID        string            `bson:"_id"`
	Action    string            `bson:"action"`
	Actor     string            `bson:"actor"`
	Target    string            `bson:"target,omitempty"`
	Details   map[string]string `bson:"details,omitempty"`
	Timestamp time.Time         `bson:"timestamp"`
}

// Store persists expense records in a MongoDB collection.
type Store struct {
	client  *mongo.Client
	records *mongo.Collection
	audits  *mongo.Collection
}

// NewStore connects to the configured MongoDB deployment and pings it
// before returning.
func NewStore(ctx context.Context, uri, database, collection string) (*Store, error) {
	cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, wrap("connect mongodb", err)
	}
	if err := client.Ping(cctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, wrap("ping mongodb", err)
	}

	db := client.Database(database)
	s := &Store{
		client:  client,
		records: db.Collection(collection),
		audits:  db.Collection(auditCollection),
	}

	slog.InfoContext(ctx, "Connected to MongoDB",
		"database", database,
		"collection", collection)
	return s, nil
}

func (s *Store) Insert(ctx context.Context, rec core.ExpenseRecord) error {
	doc := recordDoc{
		ID:          rec.ID,
		Category:    rec.Category,
		Friend:      rec.Friend,
		AmountCents: rec.Amount.Cents,
		Note:        rec.Note,
		CreatedAt:   rec.CreatedAt,
	}
	if _, err := s.records.InsertOne(ctx, doc); err != nil {
		return wrap("insert record", err)
	}
	return nil
}

func (s *Store) ListAll(ctx context.Context) ([]core.ExpenseRecord, error) {
	// Stable snapshot order: creation time, then id as a tiebreak (Mongo
	// stores timestamps at millisecond precision).
	sort := bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	cur, err := s.records.Find(ctx, bson.D{}, options.Find().SetSort(sort))
	if err != nil {
		return nil, wrap("find records", err)
	}
	defer cur.Close(ctx)

	var out []core.ExpenseRecord
	for cur.Next(ctx) {
		var doc recordDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, wrap("decode record", err)
		}
		out = append(out, core.ExpenseRecord{
			ID:        doc.ID,
			Category:  doc.Category,
			Friend:    doc.Friend,
			Amount:    core.Money{Cents: doc.AmountCents},
			Note:      doc.Note,
			CreatedAt: doc.CreatedAt,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, wrap("iterate records", err)
	}
	return out, nil
}

func (s *Store) DeleteOne(ctx context.Context, id string) (bool, error) {
	res, err := s.records.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, wrap("delete record", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *Store) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.records.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, wrap("delete records", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.records.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, wrap("delete all records", err)
	}
	return res.DeletedCount, nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Append implements audit.Sink against the audit_logs collection.
func (s *Store) Append(ctx context.Context, e audit.Entry) error {
	doc := auditDoc{
		ID:        e.ID,
		Action:    e.Action,
		Actor:     e.Actor,
		Target:    e.Target,
		Details:   e.Details,
		Timestamp: e.Timestamp,
	}
	if _, err := s.audits.InsertOne(ctx, doc); err != nil {
		return wrap("insert audit entry", err)
	}
	return nil
}

// Recent implements audit.Sink, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]audit.Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(int64(limit))
	}
	cur, err := s.audits.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, wrap("find audit entries", err)
	}
	defer cur.Close(ctx)

	var out []audit.Entry
	for cur.Next(ctx) {
		var doc auditDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, wrap("decode audit entry", err)
		}
		out = append(out, audit.Entry{
			ID:        doc.ID,
			Action:    doc.Action,
			Actor:     doc.Actor,
			Target:    doc.Target,
			Details:   doc.Details,
			Timestamp: doc.Timestamp,
		})
	}
	if err := cur.Err(); err != nil {
		return nil, wrap("iterate audit entries", err)
	}
	return out, nil
}

func wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, errors.Join(storage.ErrUnavailable, err))
}

var (
	_ storage.Store = (*Store)(nil)
	_ audit.Sink    = (*Store)(nil)
)
