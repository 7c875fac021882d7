// Package memory is an in-memory implementation of the storage contract. It
// is safe for concurrent use and is primarily intended for tests and local
// development. Filter matching mirrors MongoDB semantics for the subset the
// services rely on: top-level equality, with array fields matching when they
// contain the filter value.
package memory

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/edustack/campus-api/internal/apperr"
	"github.com/edustack/campus-api/internal/storage"
)

// Collection holds documents keyed by ObjectID hex. Documents are stored in
// their bson map form so update operators can act on them directly.
type Collection[T any] struct {
	mu   sync.RWMutex
	docs map[string]bson.M
}

// NewCollection creates an empty collection.
func NewCollection[T any]() *Collection[T] {
	return &Collection[T]{docs: make(map[string]bson.M)}
}

var _ storage.Store[struct{}] = (*Collection[struct{}])(nil)

func toDoc[T any](v T) (bson.M, error) {
	raw, err := bson.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func fromDoc[T any](m bson.M) (T, error) {
	var out T
	raw, err := bson.Marshal(m)
	if err != nil {
		return out, err
	}
	err = bson.Unmarshal(raw, &out)
	return out, err
}

func (c *Collection[T]) Insert(_ context.Context, doc T) (string, error) {
	m, err := toDoc(doc)
	if err != nil {
		return "", &apperr.StoreError{Op: "insert", Err: err}
	}
	oid, ok := m["_id"].(primitive.ObjectID)
	if !ok || oid.IsZero() {
		oid = primitive.NewObjectID()
	}
	m["_id"] = oid

	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[oid.Hex()] = m
	return oid.Hex(), nil
}

func (c *Collection[T]) GetByID(_ context.Context, id string) (T, error) {
	var out T
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return out, apperr.ErrInvalidID
	}

	c.mu.RLock()
	m, ok := c.docs[id]
	c.mu.RUnlock()
	if !ok {
		return out, apperr.ErrNotFound
	}
	out, err := fromDoc[T](m)
	if err != nil {
		return out, &apperr.StoreError{Op: "get", Err: err}
	}
	return out, nil
}

func (c *Collection[T]) UpdateByID(ctx context.Context, id string, fields bson.M) (int64, error) {
	return c.Apply(ctx, id, bson.M{"$set": fields})
}

func (c *Collection[T]) Apply(_ context.Context, id string, update bson.M) (int64, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return 0, apperr.ErrInvalidID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return 0, nil
	}
	for op, args := range update {
		fields, ok := args.(bson.M)
		if !ok {
			return 0, &apperr.StoreError{Op: "apply", Err: fmt.Errorf("malformed %s arguments", op)}
		}
		switch op {
		case "$set":
			for k, v := range fields {
				if k == "_id" {
					continue
				}
				doc[k] = v
			}
		case "$push":
			for k, v := range fields {
				arr, _ := doc[k].(primitive.A)
				doc[k] = append(arr, v)
			}
		case "$pull":
			for k, v := range fields {
				arr, _ := doc[k].(primitive.A)
				kept := make(primitive.A, 0, len(arr))
				for _, elem := range arr {
					if !valuesEqual(elem, v) {
						kept = append(kept, elem)
					}
				}
				doc[k] = kept
			}
		default:
			return 0, &apperr.StoreError{Op: "apply", Err: fmt.Errorf("unsupported operator %s", op)}
		}
	}
	return 1, nil
}

func (c *Collection[T]) DeleteByID(_ context.Context, id string) (int64, error) {
	if _, err := primitive.ObjectIDFromHex(id); err != nil {
		return 0, apperr.ErrInvalidID
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.docs[id]; !ok {
		return 0, nil
	}
	delete(c.docs, id)
	return 1, nil
}

func (c *Collection[T]) List(_ context.Context, filter bson.M) ([]T, error) {
	c.mu.RLock()
	ids := make([]string, 0, len(c.docs))
	for id, doc := range c.docs {
		if matches(doc, filter) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		v, err := fromDoc[T](c.docs[id])
		if err != nil {
			c.mu.RUnlock()
			return nil, &apperr.StoreError{Op: "list", Err: err}
		}
		out = append(out, v)
	}
	c.mu.RUnlock()
	return out, nil
}

func (c *Collection[T]) Count(_ context.Context, filter bson.M) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, doc := range c.docs {
		if matches(doc, filter) {
			n++
		}
	}
	return n, nil
}

func matches(doc bson.M, filter bson.M) bool {
	for key, want := range filter {
		got, ok := doc[key]
		if !ok {
			return false
		}
		if valuesEqual(got, want) {
			continue
		}
		arr, isArr := got.(primitive.A)
		if !isArr {
			return false
		}
		found := false
		for _, elem := range arr {
			if valuesEqual(elem, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// valuesEqual compares two bson values, treating all numeric types as float64
// the way MongoDB compares across numeric types.
func valuesEqual(a, b any) bool {
	if na, ok := asFloat(a); ok {
		nb, ok := asFloat(b)
		return ok && na == nb
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
