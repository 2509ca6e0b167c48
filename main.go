package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cinema-tg-bot/internal/config"
	"cinema-tg-bot/internal/container"
)

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

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      c.Server(bot),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.UpdateTimeout + 5*time.Second,
	}

	go func() {
		log.Info("server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	if err := c.Close(shutdownCtx); err != nil {
		log.Error("close failed", "error", err)
	}
	log.Info("server stopped")
}
