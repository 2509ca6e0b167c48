package handler

import (
	"log/slog"
	"net/http"
	"time"
)

type Options struct {
	Updates UpdateHandler
	Catalog Catalog
	// WebhookSecret, when set, must match the secret token header of every webhook call.
	WebhookSecret string
	UpdateTimeout time.Duration
	StoreTimeout  time.Duration
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  *slog.Logger
}

// Server routes the webhook, the read-only catalog API and metrics.
type Server struct {
	mux *http.ServeMux
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.UpdateTimeout <= 0 {
		opts.UpdateTimeout = 9 * time.Second
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", indexHandler)
	if opts.Updates != nil {
		mux.Handle("/api/webhook", &webhook{
			updates: opts.Updates,
			secret:  opts.WebhookSecret,
			timeout: opts.UpdateTimeout,
			log:     opts.Logger,
		})
	}
	if opts.Catalog != nil {
		api := &catalogAPI{catalog: opts.Catalog, timeout: opts.StoreTimeout, log: opts.Logger}
		mux.HandleFunc("/api/films", api.films)
		mux.HandleFunc("/api/films/item", api.film)
		mux.HandleFunc("/api/cinemas", api.cinemas)
		mux.HandleFunc("/api/cinemas/nearby", api.nearby)
	}
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics)
	}
	return &Server{mux: mux}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
