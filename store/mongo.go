package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/k11techlab/testsmith/config"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
	"go.uber.org/zap"
)

// =============================================================================
// 🍃 MongoDB 后端
// =============================================================================

type mongoEntry struct {
	Key       string    `bson:"key"`
	Seq       int64     `bson:"seq"`
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Timestamp time.Time `bson:"timestamp"`
}

func (m mongoEntry) entry() Entry {
	return Entry{Key: m.Key, Seq: m.Seq, Role: m.Role, Content: m.Content, Timestamp: m.Timestamp.UTC()}
}

// MongoBackend 一个集合存放全部记录，(key, seq) 唯一索引
type MongoBackend struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *zap.Logger
}

// NewMongoBackend 连接 MongoDB、确保索引存在并返回后端
func NewMongoBackend(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*MongoBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(pingCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}, {Key: "seq", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("key_seq"),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to create mongo index: %w", err)
	}

	b := &MongoBackend{
		client: client,
		coll:   coll,
		logger: logger.With(zap.String("component", "mongo_store")),
	}
	b.logger.Info("mongo context store connected",
		zap.String("database", cfg.Database),
		zap.String("collection", cfg.Collection),
	)
	return b, nil
}

// Name implements Backend.
func (b *MongoBackend) Name() string { return "mongo" }

// Insert implements Backend.
func (b *MongoBackend) Insert(ctx context.Context, entry Entry) error {
	_, err := b.coll.InsertOne(ctx, mongoEntry(entry))
	if err != nil {
		return fmt.Errorf("mongo insert failed: %w", err)
	}
	return nil
}

// Find implements Backend.
func (b *MongoBackend) Find(ctx context.Context, key string) ([]Entry, error) {
	cur, err := b.coll.Find(ctx, bson.D{{Key: "key", Value: key}},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("mongo find failed: %w", err)
	}
	var docs []mongoEntry
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo decode failed: %w", err)
	}
	entries := make([]Entry, 0, len(docs))
	for _, d := range docs {
		entries = append(entries, d.entry())
	}
	return entries, nil
}

// Last implements Backend.
func (b *MongoBackend) Last(ctx context.Context, key string) (Entry, bool, error) {
	var doc mongoEntry
	err := b.coll.FindOne(ctx, bson.D{{Key: "key", Value: key}},
		options.FindOne().SetSort(bson.D{{Key: "seq", Value: -1}})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("mongo last failed: %w", err)
	}
	return doc.entry(), true, nil
}

// Keys implements Backend.
func (b *MongoBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.D{}
	if prefix != "" {
		filter = bson.D{{Key: "key", Value: bson.D{{Key: "$regex", Value: "^" + regexp.QuoteMeta(prefix)}}}}
	}
	var keys []string
	if err := b.coll.Distinct(ctx, "key", filter).Decode(&keys); err != nil {
		return nil, fmt.Errorf("mongo keys failed: %w", err)
	}
	return keys, nil
}

// Ping implements Backend.
func (b *MongoBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx, readpref.Primary())
}

// Close implements Backend.
func (b *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.logger.Info("closing mongo context store")
	return b.client.Disconnect(ctx)
}
