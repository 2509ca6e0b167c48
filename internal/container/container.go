// Package container wires stores, the dispatcher and the transports from config.
package container

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	handler "cinema-tg-bot/api"
	"cinema-tg-bot/internal/catalogsrc"
	"cinema-tg-bot/internal/config"
	"cinema-tg-bot/internal/dispatch"
	"cinema-tg-bot/internal/metrics"
	"cinema-tg-bot/internal/storage"
	"cinema-tg-bot/internal/tg"
)

type Store interface {
	storage.CatalogReader
	dispatch.Users
	catalogsrc.Importer
}

type Container struct {
	Config     *config.Config
	Log        *slog.Logger
	Store      Store
	Catalog    storage.CatalogReader
	Dispatcher *dispatch.Dispatcher

	closers []func(context.Context) error
}

// New opens the stores. Without MONGODB_URI the catalog lives in memory and
// is seeded from CATALOG_SOURCE; with REDIS_ADDR catalog reads go through Redis.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	const op = "container.New"
	if log == nil {
		log = slog.Default()
	}
	metrics.Init()
	c := &Container{Config: cfg, Log: log}

	if err := c.openStore(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.openCache(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.Dispatcher = dispatch.New(c.Catalog, c.Store, dispatch.Options{
		StoreTimeout: cfg.StoreTimeout,
		Logger:       log,
	})
	return c, nil
}

func (c *Container) openStore(ctx context.Context) error {
	if c.Config.Mongo.URI != "" {
		m, err := storage.NewMongo(ctx, c.Config.Mongo.URI, c.Config.Mongo.Database)
		if err != nil {
			return err
		}
		c.closers = append(c.closers, m.Close)
		c.Store, c.Catalog = m, m
		c.Log.Info("using mongo store", "database", c.Config.Mongo.Database)
		return nil
	}

	mem := storage.NewMemory()
	c.Store, c.Catalog = mem, mem
	if c.Config.CatalogSource == "" {
		c.Log.Warn("no MONGODB_URI and no CATALOG_SOURCE, catalog is empty")
		return nil
	}
	cat, err := catalogsrc.NewLoader(c.Log).ImportInto(ctx, c.Config.CatalogSource, mem)
	if err != nil {
		return err
	}
	c.Log.Info("using in-memory store", "films", len(cat.Films), "cinemas", len(cat.Cinemas))
	return nil
}

func (c *Container) openCache(ctx context.Context) error {
	if c.Config.Redis.Addr == "" {
		return nil
	}
	r, err := storage.NewRedis(ctx, c.Config.Redis.Addr, c.Config.Redis.Password, c.Config.Redis.DB)
	if err != nil {
		return err
	}
	c.closers = append(c.closers, func(context.Context) error { return r.Close() })
	c.Catalog = storage.NewCachedCatalog(c.Catalog, r, c.Config.Redis.TTL, c.Log)
	c.Log.Info("catalog cache enabled", "addr", c.Config.Redis.Addr, "ttl", c.Config.Redis.TTL)
	return nil
}

// Telegram connects to the Bot API with the configured token.
func (c *Container) Telegram() (*tg.Client, error) {
	if err := c.Config.Validate(); err != nil {
		return nil, err
	}
	return tg.NewClient(c.Config.BotToken, c.Log)
}

// Updates feeds Telegram updates through the dispatcher and back out through bot.
func (c *Container) Updates(bot *tg.Client) handler.UpdateHandler {
	return handler.UpdateHandlerFunc(func(ctx context.Context, upd tgbotapi.Update) error {
		return bot.HandleUpdate(ctx, c.Dispatcher, upd)
	})
}

// Server builds the HTTP surface. A nil bot leaves the webhook unmounted.
func (c *Container) Server(bot *tg.Client) *handler.Server {
	opts := handler.Options{
		Catalog:       c.Catalog,
		WebhookSecret: c.Config.WebhookSecret,
		UpdateTimeout: c.Config.UpdateTimeout,
		StoreTimeout:  c.Config.StoreTimeout,
		Metrics:       promhttp.Handler(),
		Logger:        c.Log,
	}
	if bot != nil {
		opts.Updates = c.Updates(bot)
	}
	return handler.NewServer(opts)
}

func (c *Container) Close(ctx context.Context) error {
	var errs []error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	c.closers = nil
	return errors.Join(errs...)
}
