// Package catalog serves the upstream model list, optionally cached in
// redis so a chat UI polling for models does not hammer the backend.
package catalog

import (
	"context"

	"relay-api/internal/shared"
	"relay-api/internal/upstream"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const cacheKey = "v1:models"

type Catalog struct {
	upstream *upstream.Client
	redis    *redis.Client
	log      *zap.SugaredLogger
}

// New builds a catalog. redisClient may be nil, in which case every call
// goes straight to the backend.
func New(up *upstream.Client, redisClient *redis.Client, log *zap.SugaredLogger) *Catalog {
	return &Catalog{upstream: up, redis: redisClient, log: log}
}

// Models returns the raw catalog body as the backend produced it. The body
// is passed through untouched; the relay has no opinion on its shape.
func (cat *Catalog) Models(ctx context.Context) ([]byte, *shared.RequestError) {
	if cat.redis != nil {
		cached, err := cat.redis.Get(ctx, cacheKey).Result()
		if err == nil {
			return []byte(cached), nil
		}
		if err != redis.Nil {
			cat.log.Warnw("Model cache read failed", "error", err)
		}
	}

	body, status, err := cat.upstream.Tags(ctx)
	if err != nil {
		cat.log.Errorw("Failed fetching models from upstream", "error", err)
		return nil, shared.ErrUpstreamUnreachable
	}
	if status != 200 {
		cat.log.Warnw("Upstream rejected model listing", "status_code", status)
		return nil, shared.ErrUpstreamUnreachable
	}

	if cat.redis != nil {
		go func() {
			if err := cat.redis.Set(context.Background(), cacheKey, body, shared.ModelCatalogCacheTTL).Err(); err != nil {
				cat.log.Warnw("Model cache write failed", "error", err)
			}
		}()
	}
	return body, nil
}
