package dispatch

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"cinema-tg-bot/internal/action"
	"cinema-tg-bot/internal/geo"
	"cinema-tg-bot/internal/storage"
)

func (d *Dispatcher) handleStart(ctx context.Context, msg TextMessage, _ string) ([]Reply, error) {
	return []Reply{TextReply{ChatID: msg.ChatID, Body: greeting(msg.SenderName), Keyboard: KeyboardHome}}, nil
}

func (d *Dispatcher) handleHome(ctx context.Context, msg TextMessage, _ string) ([]Reply, error) {
	return []Reply{TextReply{ChatID: msg.ChatID, Body: msgHome, Keyboard: KeyboardHome}}, nil
}

func (d *Dispatcher) handleGenreMenu(ctx context.Context, msg TextMessage, _ string) ([]Reply, error) {
	return []Reply{TextReply{ChatID: msg.ChatID, Body: msgGenreMenu, Keyboard: KeyboardFilm}}, nil
}

func (d *Dispatcher) handleLocationPrompt(ctx context.Context, msg TextMessage, _ string) ([]Reply, error) {
	return []Reply{TextReply{ChatID: msg.ChatID, Body: msgLocation, Keyboard: KeyboardCinemas}}, nil
}

// filmsByGenre lists films of one genre; an empty genre lists the whole catalog.
func (d *Dispatcher) filmsByGenre(genre string) textHandler {
	filter := storage.All()
	if genre != "" {
		filter = storage.ByGenre(genre)
	}
	return func(ctx context.Context, msg TextMessage, _ string) ([]Reply, error) {
		return d.filmList(ctx, msg.ChatID, filter)
	}
}

func (d *Dispatcher) filmList(ctx context.Context, chatID int64, filter storage.Filter) ([]Reply, error) {
	var films []storage.Film
	err := d.store(ctx, "dispatch.filmList", func(ctx context.Context) (err error) {
		films, err = d.catalog.FindFilms(ctx, filter)
		return err
	})
	if err != nil {
		return nil, err
	}
	return []Reply{htmlList(chatID, filmListHTML(films), KeyboardFilm)}, nil
}

func (d *Dispatcher) handleFilmDetail(ctx context.Context, msg TextMessage, filmUUID string) ([]Reply, error) {
	const op = "dispatch.handleFilmDetail"

	var (
		film *storage.Film
		user *storage.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return d.store(gctx, op+".film", func(ctx context.Context) (err error) {
			film, err = d.catalog.FindFilm(ctx, filmUUID)
			return err
		})
	})
	g.Go(func() error {
		return d.store(gctx, op+".user", func(ctx context.Context) (err error) {
			user, err = d.users.FindUser(ctx, msg.SenderID)
			return err
		})
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if film == nil {
		d.logger(ctx).InfoContext(ctx, "film not found", chatIDKey, msg.ChatID, "film", filmUUID,
			errorKey, fmt.Errorf("%s: %s: %w", op, filmUUID, ErrNotFound))
		return []Reply{TextReply{ChatID: msg.ChatID, Body: msgFilmNotFound}}, nil
	}

	isFav := user.HasFilm(film.UUID)
	favText := btnAddFavourite
	if isFav {
		favText = btnRemoveFavourite
	}

	first := make([]Button, 0, 2)
	if b, ok := d.actionButton(ctx, favText, action.ToggleFavorite(film.UUID, isFav)); ok {
		first = append(first, b)
	}
	if b, ok := d.actionButton(ctx, btnShowCinemas, action.ShowCinemas(film.Cinemas)); ok {
		first = append(first, b)
	}
	inline := make([][]Button, 0, 2)
	if len(first) > 0 {
		inline = append(inline, first)
	}
	if film.Link != "" {
		inline = append(inline, []Button{{Text: "Кинопоиск " + film.Name, URL: film.Link}})
	}

	caption := filmCaption(*film)
	if film.Picture == "" {
		return []Reply{TextReply{ChatID: msg.ChatID, Body: caption, Inline: inline}}, nil
	}
	return []Reply{PhotoReply{ChatID: msg.ChatID, ImageRef: film.Picture, Caption: caption, Inline: inline}}, nil
}

func (d *Dispatcher) handleCinemaDetail(ctx context.Context, msg TextMessage, cinemaUUID string) ([]Reply, error) {
	var cinema *storage.Cinema
	err := d.store(ctx, "dispatch.handleCinemaDetail", func(ctx context.Context) (err error) {
		cinema, err = d.catalog.FindCinema(ctx, cinemaUUID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if cinema == nil {
		d.logger(ctx).InfoContext(ctx, "cinema not found", chatIDKey, msg.ChatID, "cinema", cinemaUUID,
			errorKey, ErrNotFound)
		return []Reply{TextReply{ChatID: msg.ChatID, Body: msgCinemaMissing}}, nil
	}

	first := make([]Button, 0, 2)
	if cinema.URL != "" {
		first = append(first, Button{Text: cinema.Name, URL: cinema.URL})
	}
	if b, ok := d.actionButton(ctx, btnShowOnMap, action.ShowCinemasMap(cinema.Location.Latitude, cinema.Location.Longitude)); ok {
		first = append(first, b)
	}
	inline := make([][]Button, 0, 2)
	if len(first) > 0 {
		inline = append(inline, first)
	}
	if b, ok := d.actionButton(ctx, btnShowFilms, action.ShowFilms(cinema.Films)); ok {
		inline = append(inline, []Button{b})
	}
	return []Reply{TextReply{ChatID: msg.ChatID, Body: "Кинотеатр " + cinema.Name, Inline: inline}}, nil
}

func (d *Dispatcher) handleLocation(ctx context.Context, chatID int64, loc storage.Location) ([]Reply, error) {
	var cinemas []storage.Cinema
	err := d.store(ctx, "dispatch.handleLocation", func(ctx context.Context) (err error) {
		cinemas, err = d.catalog.FindCinemas(ctx, storage.All())
		return err
	})
	if err != nil {
		return nil, err
	}
	ranked := geo.RankCinemas(loc, cinemas)
	return []Reply{htmlList(chatID, rankedCinemasHTML(ranked), KeyboardHome)}, nil
}

func (d *Dispatcher) handleShowCinemas(ctx context.Context, ev CallbackEvent, a action.Action) ([]Reply, error) {
	var cinemas []storage.Cinema
	err := d.store(ctx, "dispatch.handleShowCinemas", func(ctx context.Context) (err error) {
		cinemas, err = d.catalog.FindCinemas(ctx, storage.ByUUIDs(a.CinemaUUIDs))
		return err
	})
	if err != nil {
		return nil, err
	}
	return []Reply{
		CallbackAck{CallbackID: ev.CallbackID},
		htmlList(replyChat(ev), cinemaListHTML(cinemas), KeyboardHome),
	}, nil
}

func (d *Dispatcher) handleShowCinemasMap(ctx context.Context, ev CallbackEvent, a action.Action) ([]Reply, error) {
	return []Reply{
		CallbackAck{CallbackID: ev.CallbackID},
		LocationReply{ChatID: replyChat(ev), Latitude: a.Latitude, Longitude: a.Longitude},
	}, nil
}

func (d *Dispatcher) handleShowFilms(ctx context.Context, ev CallbackEvent, a action.Action) ([]Reply, error) {
	out, err := d.filmList(ctx, replyChat(ev), storage.ByUUIDs(a.FilmUUIDs))
	if err != nil {
		return nil, err
	}
	return append([]Reply{CallbackAck{CallbackID: ev.CallbackID}}, out...), nil
}

// handleInlineQuery answers with the whole catalog regardless of the query text.
func (d *Dispatcher) handleInlineQuery(ctx context.Context, q InlineQueryEvent) ([]Reply, error) {
	var films []storage.Film
	err := d.store(ctx, "dispatch.handleInlineQuery", func(ctx context.Context) (err error) {
		films, err = d.catalog.FindFilms(ctx, storage.All())
		return err
	})
	if err != nil {
		return nil, err
	}
	results := make([]InlineResult, 0, len(films))
	for _, f := range films {
		r := InlineResult{
			ID:       f.UUID,
			ImageRef: f.Picture,
			Caption:  filmCaption(f),
		}
		if f.Link != "" {
			r.Link = Button{Text: "Кинопоиск: " + f.Name, URL: f.Link}
		}
		results = append(results, r)
	}
	return []Reply{InlineResults{QueryID: q.QueryID, Results: results}}, nil
}

// actionButton encodes a into a callback button. Oversized payloads drop the button.
func (d *Dispatcher) actionButton(ctx context.Context, text string, a action.Action) (Button, bool) {
	data, err := action.Encode(a)
	if err != nil {
		d.logger(ctx).WarnContext(ctx, "button omitted", "action", string(a.Kind), errorKey, err)
		return Button{}, false
	}
	return Button{Text: text, Data: data}, true
}

// replyChat is the chat a callback's reply goes to. In private chats the
// sender id and the chat id coincide.
func replyChat(ev CallbackEvent) int64 {
	if ev.SourceChatID != 0 {
		return ev.SourceChatID
	}
	return ev.SenderID
}
