package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cinema-tg-bot/internal/geo"
	"cinema-tg-bot/internal/storage"
)

type Catalog interface {
	FindFilms(ctx context.Context, f storage.Filter) ([]storage.Film, error)
	FindFilm(ctx context.Context, uuid string) (*storage.Film, error)
	FindCinemas(ctx context.Context, f storage.Filter) ([]storage.Cinema, error)
}

type catalogAPI struct {
	catalog Catalog
	timeout time.Duration
	log     *slog.Logger
}

func (a *catalogAPI) films(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	filter := storage.All()
	if genre := strings.TrimSpace(r.URL.Query().Get("genre")); genre != "" {
		filter = storage.ByGenre(genre)
	}
	films, err := a.catalog.FindFilms(ctx, filter)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, films)
}

func (a *catalogAPI) film(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("uuid"))
	if id == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	film, err := a.catalog.FindFilm(ctx, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if film == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	writeJSON(w, film)
}

func (a *catalogAPI) cinemas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	cinemas, err := a.catalog.FindCinemas(ctx, storage.All())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, cinemas)
}

// nearby ranks every cinema by distance from ?lat=&lon=. ?limit= caps the result.
func (a *catalogAPI) nearby(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	lat, ok := coordinate(q.Get("lat"), 90)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	lon, ok := coordinate(q.Get("lon"), 180)
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()
	cinemas, err := a.catalog.FindCinemas(ctx, storage.All())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	ranked := geo.RankCinemas(storage.Location{Latitude: lat, Longitude: lon}, cinemas)
	if limit > 0 && limit < len(ranked) {
		ranked = ranked[:limit]
	}
	writeJSON(w, ranked)
}

// coordinate parses a degree value within [-limit, limit]. NaN is rejected.
func coordinate(raw string, limit float64) (float64, bool) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || v < -limit || v > limit {
		return 0, false
	}
	return v, true
}

func (a *catalogAPI) fail(w http.ResponseWriter, r *http.Request, err error) {
	a.log.ErrorContext(r.Context(), "catalog api: store failure", "path", r.URL.Path, "error", err)
	w.WriteHeader(http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}
