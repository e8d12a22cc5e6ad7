package audit

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo appends entries to a MongoDB collection.
type MongoRepo struct {
	col *mongo.Collection
}

type mongoEntry struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Entry `bson:",inline"`
}

// NewMongoRepo ensures the (process_id, created_at) index used by List.
func NewMongoRepo(ctx context.Context, col *mongo.Collection) (*MongoRepo, error) {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "process_id", Value: 1}, {Key: "created_at", Value: -1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("audit index: %w", err)
	}
	return &MongoRepo{col: col}, nil
}

func (m *MongoRepo) Insert(ctx context.Context, e *Entry) error {
	res, err := m.col.InsertOne(ctx, mongoEntry{Entry: *e})
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid.Hex()
	}
	return nil
}

func (m *MongoRepo) List(ctx context.Context, processID string, limit int) ([]*Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := m.col.Find(ctx, bson.M{"process_id": processID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer cur.Close(ctx)
	out := []*Entry{}
	for cur.Next(ctx) {
		var me mongoEntry
		if err := cur.Decode(&me); err != nil {
			return nil, err
		}
		e := me.Entry
		e.ID = me.ID.Hex()
		out = append(out, &e)
	}
	return out, cur.Err()
}
