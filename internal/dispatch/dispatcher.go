package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"cinema-tg-bot/internal/action"
	"cinema-tg-bot/internal/metrics"
	"cinema-tg-bot/internal/storage"
)

const (
	correlationIDKey = "correlation_id"
	chatIDKey        = "chat_id"
	senderIDKey      = "sender_id"
	intentKey        = "intent"
	errorKey         = "error"

	defaultStoreTimeout = 5 * time.Second
)

var (
	// ErrNotFound marks a referenced film or cinema that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrStore marks a failed or timed out store call.
	ErrStore = errors.New("store failure")
)

type Catalog interface {
	FindFilms(ctx context.Context, f storage.Filter) ([]storage.Film, error)
	FindFilm(ctx context.Context, uuid string) (*storage.Film, error)
	FindCinemas(ctx context.Context, f storage.Filter) ([]storage.Cinema, error)
	FindCinema(ctx context.Context, uuid string) (*storage.Cinema, error)
}

type Users interface {
	FindUser(ctx context.Context, telegramID int64) (*storage.User, error)
	UpsertUser(ctx context.Context, u *storage.User) error
}

type Options struct {
	// StoreTimeout bounds every single store call. Zero means five seconds.
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

type textHandler func(ctx context.Context, msg TextMessage, arg string) ([]Reply, error)

type callbackHandler func(ctx context.Context, ev CallbackEvent, a action.Action) ([]Reply, error)

// Dispatcher turns inbound events into replies. It keeps no state between
// events apart from the per-user toggle locks.
type Dispatcher struct {
	catalog Catalog
	users   Users
	timeout time.Duration
	log     *slog.Logger
	locks   *keyLock

	intents map[Intent]textHandler
	actions map[action.Kind]callbackHandler
}

func New(catalog Catalog, users Users, opts Options) *Dispatcher {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	d := &Dispatcher{
		catalog: catalog,
		users:   users,
		timeout: opts.StoreTimeout,
		log:     opts.Logger,
		locks:   newKeyLock(),
	}
	d.intents = map[Intent]textHandler{
		IntentStart:        d.handleStart,
		IntentHome:         d.handleHome,
		IntentFilms:        d.handleGenreMenu,
		IntentCinemas:      d.handleLocationPrompt,
		IntentFavourites:   d.handleFavourites,
		IntentGenreComedy:  d.filmsByGenre("comedy"),
		IntentGenreAction:  d.filmsByGenre("action"),
		IntentGenreRandom:  d.filmsByGenre(""),
		IntentFilmDetail:   d.handleFilmDetail,
		IntentCinemaDetail: d.handleCinemaDetail,
	}
	d.actions = map[action.Kind]callbackHandler{
		action.KindToggleFavorite: d.handleToggleFavorite,
		action.KindShowCinemas:    d.handleShowCinemas,
		action.KindShowCinemasMap: d.handleShowCinemasMap,
		action.KindShowFilms:      d.handleShowFilms,
	}
	return d
}

// Dispatch handles one event. On error no reply must be delivered; the error
// wraps action.ErrMalformedAction or ErrStore.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) ([]Reply, error) {
	kind := ev.EventKind()
	startTime := time.Now()
	defer func() {
		metrics.EventDuration.WithLabelValues(kind).Observe(time.Since(startTime).Seconds())
	}()

	ctx = context.WithValue(ctx, correlationCtxKey{}, uuid.NewString())

	var (
		replies []Reply
		err     error
	)
	switch e := ev.(type) {
	case TextMessage:
		replies, err = d.handleMessage(ctx, e)
	case CallbackEvent:
		replies, err = d.handleCallback(ctx, e)
	case InlineQueryEvent:
		replies, err = d.handleInlineQuery(ctx, e)
	default:
		err = fmt.Errorf("dispatch: unsupported event %T", ev)
	}

	status := "ok"
	switch {
	case errors.Is(err, action.ErrMalformedAction):
		status = "malformed"
		d.logger(ctx).WarnContext(ctx, "callback payload dropped", "kind", kind, errorKey, err)
	case err != nil:
		status = "error"
		d.logger(ctx).ErrorContext(ctx, "event failed", "kind", kind, errorKey, err)
	case len(replies) == 0:
		status = "ignored"
	}
	metrics.EventsTotal.WithLabelValues(kind, status).Inc()
	if err != nil {
		return nil, err
	}
	return replies, nil
}

func (d *Dispatcher) handleMessage(ctx context.Context, msg TextMessage) ([]Reply, error) {
	var replies []Reply

	intent, arg := Classify(msg.Text)
	if h, ok := d.intents[intent]; ok {
		d.logger(ctx).InfoContext(ctx, "command received",
			chatIDKey, msg.ChatID, senderIDKey, msg.SenderID, intentKey, intent.String())
		out, err := h(ctx, msg, arg)
		if err != nil {
			return nil, err
		}
		replies = append(replies, out...)
	}

	if msg.Location != nil {
		out, err := d.handleLocation(ctx, msg.ChatID, *msg.Location)
		if err != nil {
			return nil, err
		}
		replies = append(replies, out...)
	}
	return replies, nil
}

func (d *Dispatcher) handleCallback(ctx context.Context, ev CallbackEvent) ([]Reply, error) {
	a, err := action.Decode(ev.Payload)
	if err != nil {
		return nil, err
	}
	h, ok := d.actions[a.Kind]
	if !ok {
		return nil, fmt.Errorf("%w: no handler for %q", action.ErrMalformedAction, a.Kind)
	}
	d.logger(ctx).InfoContext(ctx, "callback received",
		senderIDKey, ev.SenderID, "action", string(a.Kind))
	return h(ctx, ev, a)
}

// Classify maps message text onto an intent. For reference commands the
// second result is the referenced uuid.
func Classify(text string) (Intent, string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return IntentNone, ""
	}
	if intent, ok := labelIntents[text]; ok {
		return intent, ""
	}
	token := strings.Fields(text)[0]
	if !strings.HasPrefix(token, "/") {
		return IntentNone, ""
	}
	if i := strings.IndexByte(token, '@'); i > 0 {
		token = token[:i]
	}
	switch {
	case token == "/start":
		return IntentStart, ""
	case strings.HasPrefix(token, "/f") && len(token) > 2:
		return IntentFilmDetail, token[2:]
	case strings.HasPrefix(token, "/c") && len(token) > 2:
		return IntentCinemaDetail, token[2:]
	}
	return IntentNone, ""
}

type correlationCtxKey struct{}

func (d *Dispatcher) logger(ctx context.Context) *slog.Logger {
	if id, ok := ctx.Value(correlationCtxKey{}).(string); ok {
		return d.log.With(correlationIDKey, id)
	}
	return d.log
}

// store runs fn under the store timeout and marks any failure as ErrStore.
func (d *Dispatcher) store(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
	}
	return nil
}
