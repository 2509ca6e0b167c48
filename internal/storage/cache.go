package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"cinema-tg-bot/internal/metrics"
)

var (
	// ErrCacheMiss is returned by a CacheBackend when the key is absent.
	ErrCacheMiss        = errors.New("cache miss")
	ErrPurgeUnsupported = errors.New("cache backend cannot purge")
)

type CatalogReader interface {
	FindFilms(ctx context.Context, f Filter) ([]Film, error)
	FindFilm(ctx context.Context, uuid string) (*Film, error)
	FindCinemas(ctx context.Context, f Filter) ([]Cinema, error)
	FindCinema(ctx context.Context, uuid string) (*Cinema, error)
}

type CacheBackend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Purger is implemented by backends that can drop all of their entries.
type Purger interface {
	Purge(ctx context.Context) error
}

// CachedCatalog is a cache-aside wrapper around a catalog. Misses on the
// underlying catalog are not cached.
type CachedCatalog struct {
	next  CatalogReader
	cache CacheBackend
	ttl   time.Duration
	log   *slog.Logger
}

func NewCachedCatalog(next CatalogReader, cache CacheBackend, ttl time.Duration, log *slog.Logger) *CachedCatalog {
	if log == nil {
		log = slog.Default()
	}
	return &CachedCatalog{next: next, cache: cache, ttl: ttl, log: log}
}

func (c *CachedCatalog) FindFilms(ctx context.Context, f Filter) ([]Film, error) {
	key := f.key()
	if key == "" {
		return c.next.FindFilms(ctx, f)
	}
	var films []Film
	if c.lookup(ctx, "films:"+key, &films) {
		return films, nil
	}
	films, err := c.next.FindFilms(ctx, f)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "films:"+key, films)
	return films, nil
}

func (c *CachedCatalog) FindFilm(ctx context.Context, uuid string) (*Film, error) {
	var film Film
	if c.lookup(ctx, "film:"+uuid, &film) {
		return &film, nil
	}
	got, err := c.next.FindFilm(ctx, uuid)
	if err != nil || got == nil {
		return got, err
	}
	c.store(ctx, "film:"+uuid, got)
	return got, nil
}

func (c *CachedCatalog) FindCinemas(ctx context.Context, f Filter) ([]Cinema, error) {
	key := f.key()
	if key == "" {
		return c.next.FindCinemas(ctx, f)
	}
	var cinemas []Cinema
	if c.lookup(ctx, "cinemas:"+key, &cinemas) {
		return cinemas, nil
	}
	cinemas, err := c.next.FindCinemas(ctx, f)
	if err != nil {
		return nil, err
	}
	c.store(ctx, "cinemas:"+key, cinemas)
	return cinemas, nil
}

func (c *CachedCatalog) FindCinema(ctx context.Context, uuid string) (*Cinema, error) {
	var cinema Cinema
	if c.lookup(ctx, "cinema:"+uuid, &cinema) {
		return &cinema, nil
	}
	got, err := c.next.FindCinema(ctx, uuid)
	if err != nil || got == nil {
		return got, err
	}
	c.store(ctx, "cinema:"+uuid, got)
	return got, nil
}

func (c *CachedCatalog) lookup(ctx context.Context, key string, dst any) bool {
	raw, err := c.cache.Get(ctx, key)
	if err == nil {
		if err = json.Unmarshal(raw, dst); err == nil {
			metrics.CacheOperations.WithLabelValues("hit").Inc()
			return true
		}
	}
	if errors.Is(err, ErrCacheMiss) {
		metrics.CacheOperations.WithLabelValues("miss").Inc()
		return false
	}
	metrics.CacheOperations.WithLabelValues("error").Inc()
	c.log.WarnContext(ctx, "cache lookup failed", "key", key, "error", err)
	return false
}

// Purge drops every cached entry so the next reads go to the catalog.
// Call it after the catalog is re-imported.
func (c *CachedCatalog) Purge(ctx context.Context) error {
	const op = "storage.CachedCatalog.Purge"
	p, ok := c.cache.(Purger)
	if !ok {
		return fmt.Errorf("%s: %w", op, ErrPurgeUnsupported)
	}
	if err := p.Purge(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.log.InfoContext(ctx, "catalog cache purged")
	return nil
}

func (c *CachedCatalog) store(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		c.log.ErrorContext(ctx, "cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
		c.log.ErrorContext(ctx, "cache store failed", "key", key, "error", err)
	}
}

const purgeBatch = 100

// Redis adapts a go-redis client to CacheBackend.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, prefix: "cinemabot:"}, nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, r.prefix+key, value, ttl).Err()
}

// Purge deletes every key under the bot prefix. Other keys in the same
// database are left alone.
func (r *Redis) Purge(ctx context.Context) error {
	iter := r.rdb.Scan(ctx, 0, r.prefix+"*", purgeBatch).Iterator()
	batch := make([]string, 0, purgeBatch)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == purgeBatch {
			if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan: %w", err)
	}
	if len(batch) > 0 {
		if err := r.rdb.Del(ctx, batch...).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
