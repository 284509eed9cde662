package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"moon-oracle/backend/internal/session/domain"
)

// MongoCollection is the collection holding one document per session.
const MongoCollection = CollectionName

type mongoSession struct {
	SessionID string    `bson:"session_id"`
	Count     int64     `bson:"count"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (m *mongoSession) toDomain() *domain.Session {
	return &domain.Session{
		ID:        m.SessionID,
		Count:     m.Count,
		CreatedAt: m.CreatedAt.UTC(),
		UpdatedAt: m.UpdatedAt.UTC(),
	}
}

// MongoRepository stores sessions as documents keyed by a unique session_id index.
type MongoRepository struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// OpenMongo connects to uri, pings the server and ensures the unique session_id index on dbName.session.
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoRepository, error) {
	if uri == "" {
		return nil, errors.New("mongo uri is required")
	}
	if dbName == "" {
		return nil, errors.New("mongo database name is required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	coll := client.Database(dbName).Collection(MongoCollection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo index: %w", err)
	}
	return &MongoRepository{client: client, coll: coll}, nil
}

// GetByID returns the session document for id, or nil if absent.
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	var doc mongoSession
	err := r.coll.FindOne(ctx, bson.M{"session_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repository: get %q: %w", id, err)
	}
	return doc.toDomain(), nil
}

// CreateIfAbsent upserts with $setOnInsert only, so an existing document is never modified.
func (r *MongoRepository) CreateIfAbsent(ctx context.Context, id string, at time.Time) error {
	at = at.UTC()
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"session_id": id},
		bson.M{"$setOnInsert": bson.M{
			"count":      int64(0),
			"created_at": at,
			"updated_at": at,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("session repository: create %q: %w", id, err)
	}
	return nil
}

// IncrementCount uses FindOneAndUpdate with $inc and upsert, returning the post-update document.
// Some deployments answer an upsert with no document; that is reported as (nil, nil).
func (r *MongoRepository) IncrementCount(ctx context.Context, id string, at time.Time) (*domain.Session, error) {
	at = at.UTC()
	var doc mongoSession
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"session_id": id},
		bson.M{
			"$inc":         bson.M{"count": int64(1)},
			"$setOnInsert": bson.M{"created_at": at},
			"$set":         bson.M{"updated_at": at},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("session repository: increment %q: %w", id, err)
	}
	return doc.toDomain(), nil
}

// PingContext pings the primary.
func (r *MongoRepository) PingContext(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}
