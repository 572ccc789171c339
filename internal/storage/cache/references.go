// Package cache keeps class and section lookups in Redis in front of the
// database. Only hits are cached; a name that does not exist is asked again
// next time so newly created classes show up immediately.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aanand-mishra/school-students/internal/types"
)

const keyPrefix = "students:ref:"

type ReferenceFinder interface {
	FindClassByName(ctx context.Context, name string) (types.Class, error)
	FindSectionByName(ctx context.Context, name string) (types.Section, error)
}

type References struct {
	next   ReferenceFinder
	rdb    redis.Cmdable
	ttl    time.Duration
	logger *slog.Logger
}

func NewReferences(next ReferenceFinder, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *References {
	if logger == nil {
		logger = slog.Default()
	}
	return &References{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "reference-cache")),
	}
}

func (c *References) FindClassByName(ctx context.Context, name string) (types.Class, error) {
	return lookup(ctx, c, "class", name, c.next.FindClassByName)
}

func (c *References) FindSectionByName(ctx context.Context, name string) (types.Section, error) {
	return lookup(ctx, c, "section", name, c.next.FindSectionByName)
}

// Key returns the Redis key for a reference lookup. The database compares
// names with COLLATE NOCASE, which folds ASCII letters only, so the key folds
// the same way: "Grade É" and "grade é" are different keys.
func Key(kind, name string) string {
	return keyPrefix + kind + ":" + strings.Map(asciiLower, name)
}

func asciiLower(r rune) rune {
	if 'A' <= r && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

// lookup reads through the cache. Redis failures are logged and the
// database answers instead.
func lookup[T any](
	ctx context.Context,
	c *References,
	kind, name string,
	load func(context.Context, string) (T, error),
) (T, error) {
	key := Key(kind, name)

	raw, err := c.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
		c.logger.WarnContext(ctx, "dropping unreadable cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.WarnContext(ctx, "reference cache read failed",
			slog.String("key", key), slog.String("error", err.Error()))
	}

	value, err := load(ctx, name)
	if err != nil {
		return value, err
	}

	if encoded, err := json.Marshal(value); err == nil {
		if err := c.rdb.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
			c.logger.WarnContext(ctx, "reference cache write failed",
				slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return value, nil
}
