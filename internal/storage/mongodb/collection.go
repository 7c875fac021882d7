// Package mongodb implements the storage contract over a MongoDB collection.
package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/edustack/campus-api/internal/apperr"
	"github.com/edustack/campus-api/internal/storage"
)

// Collection adapts a mongo collection to storage.Store[T]. It performs no
// validation beyond identity format; underlying driver errors propagate
// wrapped as apperr.StoreError tagged with the attempted operation.
type Collection[T any] struct {
	coll *mongo.Collection
}

// NewCollection binds the named collection in db.
func NewCollection[T any](db *mongo.Database, name string) *Collection[T] {
	return &Collection[T]{coll: db.Collection(name)}
}

var _ storage.Store[struct{}] = (*Collection[struct{}])(nil)

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.ErrInvalidID
	}
	return oid, nil
}

func (c *Collection[T]) Insert(ctx context.Context, doc T) (string, error) {
	res, err := c.coll.InsertOne(ctx, doc)
	if err != nil {
		return "", &apperr.StoreError{Op: "insert", Err: err}
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return "", &apperr.StoreError{Op: "insert", Err: errors.New("unexpected inserted id type")}
	}
	return oid.Hex(), nil
}

func (c *Collection[T]) GetByID(ctx context.Context, id string) (T, error) {
	var out T
	oid, err := parseID(id)
	if err != nil {
		return out, err
	}
	err = c.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return out, apperr.ErrNotFound
	}
	if err != nil {
		return out, &apperr.StoreError{Op: "get", Err: err}
	}
	return out, nil
}

func (c *Collection[T]) UpdateByID(ctx context.Context, id string, fields bson.M) (int64, error) {
	return c.applyUpdate(ctx, "update", id, bson.M{"$set": fields})
}

func (c *Collection[T]) Apply(ctx context.Context, id string, update bson.M) (int64, error) {
	return c.applyUpdate(ctx, "apply", id, update)
}

func (c *Collection[T]) applyUpdate(ctx context.Context, op, id string, update bson.M) (int64, error) {
	oid, err := parseID(id)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return 0, &apperr.StoreError{Op: op, Err: err}
	}
	return res.MatchedCount, nil
}

func (c *Collection[T]) DeleteByID(ctx context.Context, id string) (int64, error) {
	oid, err := parseID(id)
	if err != nil {
		return 0, err
	}
	res, err := c.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return 0, &apperr.StoreError{Op: "delete", Err: err}
	}
	return res.DeletedCount, nil
}

func (c *Collection[T]) List(ctx context.Context, filter bson.M) ([]T, error) {
	if filter == nil {
		filter = bson.M{}
	}
	cur, err := c.coll.Find(ctx, filter)
	if err != nil {
		return nil, &apperr.StoreError{Op: "list", Err: err}
	}
	var out []T
	if err := cur.All(ctx, &out); err != nil {
		return nil, &apperr.StoreError{Op: "list", Err: err}
	}
	return out, nil
}

func (c *Collection[T]) Count(ctx context.Context, filter bson.M) (int64, error) {
	if filter == nil {
		filter = bson.M{}
	}
	n, err := c.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, &apperr.StoreError{Op: "count", Err: err}
	}
	return n, nil
}
