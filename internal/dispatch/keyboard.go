package dispatch

const (
	LabelFilms        = "Фильмы"
	LabelCinemas      = "Кинотеатры"
	LabelFavourite    = "Избранное"
	LabelRandom       = "Случайный жанр"
	LabelAction       = "Боевики"
	LabelComedy       = "Комедии"
	LabelBack         = "Назад"
	LabelSendLocation = "Отправить местоположение"
)

func row(labels ...string) []KeyboardButton {
	out := make([]KeyboardButton, 0, len(labels))
	for _, l := range labels {
		out = append(out, KeyboardButton{Text: l})
	}
	return out
}

var (
	KeyboardHome = Keyboard{
		row(LabelFilms, LabelCinemas),
		row(LabelFavourite),
	}
	KeyboardFilm = Keyboard{
		row(LabelRandom),
		row(LabelAction, LabelComedy),
		row(LabelBack),
	}
	KeyboardCinemas = Keyboard{
		{{Text: LabelSendLocation, RequestLocation: true}},
		row(LabelBack),
	}
)

// Intent is what a text message asks for once classified.
type Intent int

const (
	IntentNone Intent = iota
	IntentStart
	IntentHome
	IntentFilms
	IntentCinemas
	IntentFavourites
	IntentGenreComedy
	IntentGenreAction
	IntentGenreRandom
	IntentFilmDetail
	IntentCinemaDetail
)

var intentNames = map[Intent]string{
	IntentNone:         "none",
	IntentStart:        "start",
	IntentHome:         "home",
	IntentFilms:        "films",
	IntentCinemas:      "cinemas",
	IntentFavourites:   "favourites",
	IntentGenreComedy:  "genre_comedy",
	IntentGenreAction:  "genre_action",
	IntentGenreRandom:  "genre_random",
	IntentFilmDetail:   "film_detail",
	IntentCinemaDetail: "cinema_detail",
}

func (i Intent) String() string {
	if s, ok := intentNames[i]; ok {
		return s
	}
	return "unknown"
}

var labelIntents = map[string]Intent{
	LabelFilms:     IntentFilms,
	LabelCinemas:   IntentCinemas,
	LabelFavourite: IntentFavourites,
	LabelComedy:    IntentGenreComedy,
	LabelAction:    IntentGenreAction,
	LabelRandom:    IntentGenreRandom,
	LabelBack:      IntentHome,
}
