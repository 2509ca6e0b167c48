// Command local runs the bot with long polling instead of a webhook. The
// catalog API and /metrics are still served on PORT.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"cinema-tg-bot/internal/config"
	"cinema-tg-bot/internal/container"
)

const pollTimeout = 30

func main() {
	cfg, err := config.Load()
	if err != nil {
		config.NewLogger(os.Stderr, "error").Error("config load failed", "error", err)
		os.Exit(1)
	}
	log := config.NewLogger(os.Stdout, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	bot, err := c.Telegram()
	if err != nil {
		log.Error("telegram client failed", "error", err)
		_ = c.Close(context.Background())
		os.Exit(1)
	}

	server := &http.Server{Addr: ":" + cfg.Port, Handler: c.Server(nil)}
	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
		}
	}()

	updates := c.Updates(bot)
	var wg sync.WaitGroup
	err = bot.Poll(ctx, pollTimeout, func(upd tgbotapi.Update) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			uctx, cancel := context.WithTimeout(context.Background(), cfg.UpdateTimeout)
			defer cancel()
			if err := updates.HandleUpdate(uctx, upd); err != nil {
				log.Error("update not handled", "update_id", upd.UpdateID, "error", err)
			}
		}()
	})
	if err != nil {
		log.Error("polling failed", "error", err)
	}

	log.Info("waiting for in-flight updates")
	wg.Wait()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	if err := c.Close(shutdownCtx); err != nil {
		log.Error("close failed", "error", err)
	}
}
