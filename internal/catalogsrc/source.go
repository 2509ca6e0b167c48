// Package catalogsrc loads the film and cinema catalog from a JSON document.
//
// The document looks like
//
//	{"films":[{"uuid":"...","name":"...","type":"action",...}],
//	 "cinemas":[{"uuid":"...","name":"...","location":{"latitude":0,"longitude":0},...}]}
//
// and is read from a local file or an http(s) URL.
package catalogsrc

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"cinema-tg-bot/internal/action"
	"cinema-tg-bot/internal/storage"
)

const (
	maxDocumentSize = 16 << 20

	// IDLength fits a toggle payload and a two-cinema list payload into
	// action.MaxPayloadSize.
	IDLength = 10
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
)

type Catalog struct {
	Films   []storage.Film   `json:"films"`
	Cinemas []storage.Cinema `json:"cinemas"`
}

type Loader struct {
	hc  *http.Client
	log *slog.Logger
}

func NewLoader(log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{hc: &http.Client{Timeout: 30 * time.Second}, log: log}
}

// Load reads the catalog from source. Records without a uuid get a fresh
// short id. Records whose button payloads cannot be encoded are logged.
func (l *Loader) Load(ctx context.Context, source string) (*Catalog, error) {
	const op = "catalogsrc.Load"
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, fmt.Errorf("%s: empty source", op)
	}

	var (
		body io.ReadCloser
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		body, err = l.fetch(ctx, source)
	} else {
		body, err = os.Open(source)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer body.Close()

	var c Catalog
	dec := json.NewDecoder(io.LimitReader(body, maxDocumentSize))
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", op, source, err)
	}
	c.assignUUIDs()
	for _, p := range c.Oversized() {
		l.log.WarnContext(ctx, "catalog record too long for callback buttons",
			"kind", p.Kind, "uuid", p.UUID, "action", string(p.Action), "error", p.Err)
	}
	return &c, nil
}

func (l *Loader) fetch(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	resp, err := l.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("catalog status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

func (c *Catalog) assignUUIDs() {
	taken := make(map[string]struct{}, len(c.Films)+len(c.Cinemas))
	for _, f := range c.Films {
		taken[f.UUID] = struct{}{}
	}
	for _, cn := range c.Cinemas {
		taken[cn.UUID] = struct{}{}
	}
	fresh := func() string {
		for {
			id := NewID()
			if _, dup := taken[id]; !dup {
				taken[id] = struct{}{}
				return id
			}
		}
	}
	for i := range c.Films {
		if c.Films[i].UUID == "" {
			c.Films[i].UUID = fresh()
		}
	}
	for i := range c.Cinemas {
		if c.Cinemas[i].UUID == "" {
			c.Cinemas[i].UUID = fresh()
		}
	}
}

// NewID returns a random base62 id of IDLength characters.
func NewID() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8])
	b := make([]byte, IDLength)
	for i := IDLength - 1; i >= 0; i-- {
		b[i] = alphabet[n%62]
		n /= 62
	}
	return string(b)
}

// Problem is a record whose callback button cannot be encoded.
type Problem struct {
	Kind   string
	UUID   string
	Action action.Kind
	Err    error
}

// Oversized lists records whose worst-case button payloads exceed
// action.MaxPayloadSize. Such buttons are left off the detail messages.
func (c *Catalog) Oversized() []Problem {
	var out []Problem
	check := func(kind, id string, a action.Action) {
		if _, err := action.Encode(a); err != nil {
			out = append(out, Problem{Kind: kind, UUID: id, Action: a.Kind, Err: err})
		}
	}
	for _, f := range c.Films {
		check("film", f.UUID, action.ToggleFavorite(f.UUID, false))
		check("film", f.UUID, action.ShowCinemas(f.Cinemas))
	}
	for _, cn := range c.Cinemas {
		check("cinema", cn.UUID, action.ShowFilms(cn.Films))
	}
	return out
}

type Importer interface {
	ImportCatalog(ctx context.Context, films []storage.Film, cinemas []storage.Cinema) error
}

// ImportInto loads source and writes it into dst.
func (l *Loader) ImportInto(ctx context.Context, source string, dst Importer) (*Catalog, error) {
	c, err := l.Load(ctx, source)
	if err != nil {
		return nil, err
	}
	if err := dst.ImportCatalog(ctx, c.Films, c.Cinemas); err != nil {
		return nil, fmt.Errorf("catalogsrc.ImportInto: %w", err)
	}
	return c, nil
}
