package dispatch

import (
	"context"
	"sync"

	"cinema-tg-bot/internal/action"
	"cinema-tg-bot/internal/metrics"
	"cinema-tg-bot/internal/storage"
)

// handleToggleFavorite flips the film's membership in the sender's favourites.
// Membership is read from the stored user; the isFav flag in the payload only
// reflects what the button showed and is not trusted for the write.
func (d *Dispatcher) handleToggleFavorite(ctx context.Context, ev CallbackEvent, a action.Action) ([]Reply, error) {
	const op = "dispatch.handleToggleFavorite"

	unlock := d.locks.Lock(ev.SenderID)
	defer unlock()

	var user *storage.User
	err := d.store(ctx, op+".find", func(ctx context.Context) (err error) {
		user, err = d.users.FindUser(ctx, ev.SenderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	removed := false
	switch {
	case user == nil:
		user = &storage.User{TelegramID: ev.SenderID, Films: []string{a.FilmUUID}}
	case user.HasFilm(a.FilmUUID):
		user.Films = without(user.Films, a.FilmUUID)
		removed = true
	default:
		user.Films = append(user.Films, a.FilmUUID)
	}

	if a.IsFavorite != removed {
		d.logger(ctx).DebugContext(ctx, "stale favourite flag in callback",
			senderIDKey, ev.SenderID, "film", a.FilmUUID, "client_flag", a.IsFavorite)
	}

	err = d.store(ctx, op+".upsert", func(ctx context.Context) error {
		return d.users.UpsertUser(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	text := ackAdded
	result := "added"
	if removed {
		text = ackRemoved
		result = "removed"
	}
	metrics.FavoriteToggles.WithLabelValues(result).Inc()
	return []Reply{CallbackAck{CallbackID: ev.CallbackID, Text: text}}, nil
}

func (d *Dispatcher) handleFavourites(ctx context.Context, msg TextMessage, _ string) ([]Reply, error) {
	const op = "dispatch.handleFavourites"
	empty := []Reply{TextReply{ChatID: msg.ChatID, Body: msgNoFavourites, Keyboard: KeyboardHome}}

	var user *storage.User
	err := d.store(ctx, op+".user", func(ctx context.Context) (err error) {
		user, err = d.users.FindUser(ctx, msg.SenderID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if user == nil || len(user.Films) == 0 {
		return empty, nil
	}

	var films []storage.Film
	err = d.store(ctx, op+".films", func(ctx context.Context) (err error) {
		films, err = d.catalog.FindFilms(ctx, storage.ByUUIDs(user.Films))
		return err
	})
	if err != nil {
		return nil, err
	}

	byUUID := make(map[string]storage.Film, len(films))
	for _, f := range films {
		byUUID[f.UUID] = f
	}
	ordered := make([]storage.Film, 0, len(user.Films))
	for _, id := range user.Films {
		if f, ok := byUUID[id]; ok {
			ordered = append(ordered, f)
		}
	}
	if len(ordered) == 0 {
		return empty, nil
	}
	return []Reply{TextReply{ChatID: msg.ChatID, Body: favouritesHTML(ordered), HTML: true, Keyboard: KeyboardHome}}, nil
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// keyLock serializes work per user id. Entries are dropped once unused.
type keyLock struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyLock() *keyLock {
	return &keyLock{locks: make(map[int64]*lockEntry)}
}

func (k *keyLock) Lock(id int64) (unlock func()) {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &lockEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
