// Package mongostore implements eventlog.Store against MongoDB, for
// deployments that need the log to survive a kernel restart (the in-memory
// store is the default — see eventlog/inmem). The collection/index layout
// and the thin collection/cursor interfaces that make testing possible
// without a live server are grounded on the teacher's Mongo-backed run log
// client, upgraded to the mongo-driver/v2 API surface.
package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"lion.run/lion/event"
	"lion.run/lion/eventlog"
	"lion.run/lion/ids"
)

const (
	defaultCollection = "lion_event_log"
	defaultTimeout    = 5 * time.Second
)

type (
	// Options configures the Mongo-backed Store.
	Options struct {
		Client     *mongodriver.Client
		Database   string
		Collection string
		Timeout    time.Duration
	}

	// Store implements eventlog.Store against a MongoDB collection.
	Store struct {
		client  *mongodriver.Client
		coll    collection
		timeout time.Duration
	}

	eventDocument struct {
		ID          bson.ObjectID `bson:"_id,omitempty"`
		Seq         uint64        `bson:"seq"`
		Type        string        `bson:"type"`
		Correlation string        `bson:"correlation_id"`
		Envelope    []byte        `bson:"envelope"`
		StoredAt    time.Time     `bson:"stored_at"`
	}
)

// New constructs a Store, ensuring the append-order and correlation indexes
// exist.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.Client == nil {
		return nil, errors.New("mongostore: client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("mongostore: database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	mcoll := opts.Client.Database(opts.Database).Collection(collName)
	wrapper := mongoCollection{coll: mcoll}
	if err := ensureIndexes(ctx, wrapper); err != nil {
		return nil, err
	}
	return &Store{client: opts.Client, coll: wrapper, timeout: timeout}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Append(ctx context.Context, evt event.SystemEvent) (eventlog.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	envelope, err := event.Encode(evt)
	if err != nil {
		return eventlog.Record{}, err
	}
	wire, err := json.Marshal(envelope)
	if err != nil {
		return eventlog.Record{}, err
	}

	seq, err := s.nextSeq(ctx)
	if err != nil {
		return eventlog.Record{}, err
	}

	doc := eventDocument{
		Seq:         seq,
		Type:        string(evt.EventType()),
		Correlation: evt.Correlation().String(),
		Envelope:    wire,
		StoredAt:    time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return eventlog.Record{}, err
	}
	return eventlog.Record{Seq: seq, Event: evt, StoredAt: doc.StoredAt}, nil
}

func (s *Store) List(ctx context.Context, cursor uint64, limit int) (eventlog.Page, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"seq": bson.M{"$gt": cursor}}
	cur, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "seq", Value: 1}}).
		SetLimit(int64(limit+1)),
	)
	if err != nil {
		return eventlog.Page{}, err
	}
	defer cur.Close(ctx)

	var records []eventlog.Record
	for cur.Next(ctx) {
		var doc eventDocument
		if err := cur.Decode(&doc); err != nil {
			return eventlog.Page{}, err
		}
		evt, err := decodeDoc(doc)
		if err != nil {
			return eventlog.Page{}, err
		}
		records = append(records, eventlog.Record{Seq: doc.Seq, Event: evt, StoredAt: doc.StoredAt})
	}
	if err := cur.Err(); err != nil {
		return eventlog.Page{}, err
	}

	hasMore := len(records) > limit
	next := cursor
	if hasMore {
		records = records[:limit]
	}
	if len(records) > 0 {
		next = records[len(records)-1].Seq
	}
	return eventlog.Page{Records: records, NextCursor: next, HasMore: hasMore}, nil
}

func (s *Store) Since(ctx context.Context, correlation ids.CorrelationID) ([]eventlog.Record, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cur, err := s.coll.Find(ctx, bson.M{"correlation_id": correlation.String()},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var records []eventlog.Record
	for cur.Next(ctx) {
		var doc eventDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		evt, err := decodeDoc(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, eventlog.Record{Seq: doc.Seq, Event: evt, StoredAt: doc.StoredAt})
	}
	return records, cur.Err()
}

func (s *Store) Replay(ctx context.Context, fn func(eventlog.Record) error) error {
	var cursor uint64
	for {
		page, err := s.List(ctx, cursor, 500)
		if err != nil {
			return err
		}
		for _, r := range page.Records {
			if err := fn(r); err != nil {
				return err
			}
		}
		if !page.HasMore {
			return nil
		}
		cursor = page.NextCursor
	}
}

func (s *Store) Stats(ctx context.Context) (eventlog.Stats, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	stats := eventlog.Stats{CountsByType: make(map[event.Type]uint64)}
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return stats, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc eventDocument
		if err := cur.Decode(&doc); err != nil {
			return stats, err
		}
		stats.TotalEvents++
		stats.CountsByType[event.Type(doc.Type)]++
		if stats.OldestAt.IsZero() || doc.StoredAt.Before(stats.OldestAt) {
			stats.OldestAt = doc.StoredAt
		}
		if doc.StoredAt.After(stats.NewestAt) {
			stats.NewestAt = doc.StoredAt
		}
	}
	return stats, cur.Err()
}

func (s *Store) nextSeq(ctx context.Context) (uint64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})
	var doc eventDocument
	err := s.coll.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongodriver.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.Seq + 1, nil
}

func decodeDoc(doc eventDocument) (event.SystemEvent, error) {
	var envelope event.Envelope
	if err := json.Unmarshal(doc.Envelope, &envelope); err != nil {
		return nil, err
	}
	return event.Decode(envelope)
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func ensureIndexes(ctx context.Context, coll collection) error {
	_, err := coll.Indexes().CreateMany(ctx, []mongodriver.IndexModel{
		{Keys: bson.D{{Key: "seq", Value: 1}}},
		{Keys: bson.D{{Key: "correlation_id", Value: 1}, {Key: "seq", Value: 1}}},
	})
	return err
}

// collection, singleResult and cursor are thin seams over *mongo.Collection
// so the store can be exercised without a live server.
type collection interface {
	InsertOne(ctx context.Context, document any) (*mongodriver.InsertOneResult, error)
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (findCursor, error)
	FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult
	Indexes() indexView
}

type singleResult interface {
	Decode(val any) error
}

type indexView interface {
	CreateMany(ctx context.Context, models []mongodriver.IndexModel) ([]string, error)
}

type findCursor interface {
	Next(ctx context.Context) bool
	Decode(val any) error
	Err() error
	Close(ctx context.Context) error
}

type mongoCollection struct {
	coll *mongodriver.Collection
}

func (c mongoCollection) InsertOne(ctx context.Context, document any) (*mongodriver.InsertOneResult, error) {
	return c.coll.InsertOne(ctx, document)
}

func (c mongoCollection) Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (findCursor, error) {
	cur, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	return cur, nil
}

func (c mongoCollection) FindOne(ctx context.Context, filter any, opts ...options.Lister[options.FindOneOptions]) singleResult {
	return c.coll.FindOne(ctx, filter, opts...)
}

func (c mongoCollection) Indexes() indexView {
	return mongoIndexView{view: c.coll.Indexes()}
}

type mongoIndexView struct {
	view mongodriver.IndexView
}

func (v mongoIndexView) CreateMany(ctx context.Context, models []mongodriver.IndexModel) ([]string, error) {
	return v.view.CreateMany(ctx, models)
}
