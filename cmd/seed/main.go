// Command seed imports the catalog document into MongoDB.
//
//	seed [-source catalog.json]
//
// Records are upserted by uuid; users are left alone. With REDIS_ADDR set the
// catalog cache is purged afterwards so the bots serve the new data at once.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"time"

	"cinema-tg-bot/internal/catalogsrc"
	"cinema-tg-bot/internal/config"
	"cinema-tg-bot/internal/storage"
)

func main() {
	source := flag.String("source", "", "catalog file or URL, defaults to CATALOG_SOURCE")
	timeout := flag.Duration("timeout", time.Minute, "import timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		config.NewLogger(os.Stderr, "error").Error("config load failed", "error", err)
		os.Exit(1)
	}
	log := config.NewLogger(os.Stdout, cfg.LogLevel)

	if *source == "" {
		*source = cfg.CatalogSource
	}
	if *source == "" || cfg.Mongo.URI == "" {
		log.Error("seed needs MONGODB_URI and a catalog source")
		os.Exit(2)
	}

	if err := run(*source, *timeout, cfg, log); err != nil {
		log.Error("seed failed", "source", *source, "error", err)
		os.Exit(1)
	}
}

func run(source string, timeout time.Duration, cfg *config.Config, log *slog.Logger) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	db, err := storage.NewMongo(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, db.Close(context.Background())) }()

	c, err := catalogsrc.NewLoader(log).ImportInto(ctx, source, db)
	if err != nil {
		return err
	}
	log.Info("catalog imported", "source", source, "films", len(c.Films), "cinemas", len(c.Cinemas))

	if cfg.Redis.Addr == "" {
		return nil
	}
	r, err := storage.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, r.Close()) }()
	return storage.NewCachedCatalog(db, r, cfg.Redis.TTL, log).Purge(ctx)
}
