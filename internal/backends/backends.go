// Package backends owns the lifecycle of the two external connections the
// API depends on: the MongoDB client and the Redis client. Both are brought
// up at startup with a bounded retry budget and torn down best-effort at
// shutdown. The Backends struct is the only holder of the handles; it is
// constructed once and passed explicitly to everything that needs it.
package backends

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/edustack/campus-api/internal/apperr"
	"github.com/edustack/campus-api/internal/config"
	"github.com/edustack/campus-api/pkg/logger"
)

// Backends bundles the connected dependency handles. Both handles are safe
// for concurrent use; the underlying clients pool connections internally.
type Backends struct {
	log *logger.Logger

	mongoClient *mongo.Client
	DB          *mongo.Database
	Redis       *redis.Client
}

// Connect establishes the MongoDB and Redis connections in order, each with
// its own retry budget. There is no partial-availability mode: if either
// dependency stays unreachable after its retries, Connect returns an
// *apperr.UnavailableError and any dependency that did come up is closed.
func Connect(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backends, error) {
	if log == nil {
		log = logger.NewDefault("backends")
	}
	b := &Backends{log: log}

	err := connectWithRetry(ctx, log, "mongodb", cfg.Mongo.MaxRetries, cfg.Mongo.RetryDelay, func(ctx context.Context) error {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			return err
		}
		if err := client.Ping(ctx, nil); err != nil {
			_ = client.Disconnect(ctx)
			return err
		}
		b.mongoClient = client
		b.DB = client.Database(cfg.Mongo.Database)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = connectWithRetry(ctx, log, "redis", cfg.Redis.MaxRetries, cfg.Redis.RetryDelay, func(ctx context.Context) error {
		opts, err := redis.ParseURL(cfg.Redis.URI)
		if err != nil {
			return err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return err
		}
		b.Redis = client
		return nil
	})
	if err != nil {
		b.Close(ctx)
		return nil, err
	}

	return b, nil
}

// connectWithRetry runs dial up to maxRetries times with a fixed delay
// between attempts. On exhaustion it returns an UnavailableError carrying
// the dependency name and the last underlying cause.
func connectWithRetry(ctx context.Context, log *logger.Logger, dep string, maxRetries int, delay time.Duration, dial func(context.Context) error) error {
	var last error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if err := dial(ctx); err != nil {
			last = err
			log.WithError(err).
				WithField("dependency", dep).
				WithField("attempt", attempt).
				WithField("max_retries", maxRetries).
				Warn("connection attempt failed")
			if attempt < maxRetries {
				select {
				case <-time.After(delay):
				case <-ctx.Done():
					return &apperr.UnavailableError{Dep: dep, Err: ctx.Err()}
				}
			}
			continue
		}
		log.WithField("dependency", dep).Info("connected")
		return nil
	}
	return &apperr.UnavailableError{Dep: dep, Err: last}
}

// Close disconnects both dependencies best-effort. A failure on one never
// blocks the other; failures are logged, not returned. Closing a dependency
// that never connected is a no-op.
func (b *Backends) Close(ctx context.Context) {
	if b.mongoClient != nil {
		if err := b.mongoClient.Disconnect(ctx); err != nil {
			b.log.WithError(err).WithField("dependency", "mongodb").Warn("close failed")
		}
		b.mongoClient = nil
		b.DB = nil
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			b.log.WithError(err).WithField("dependency", "redis").Warn("close failed")
		}
		b.Redis = nil
	}
}
