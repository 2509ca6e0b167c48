package dispatch

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"cinema-tg-bot/internal/storage"
)

const (
	msgGenreMenu     = "Выберите жанр:"
	msgLocation      = "Отправить местоположение"
	msgHome          = "Что хотите посмотреть?"
	msgNoFavourites  = "Вы пока ничего не добавили"
	msgNothingFound  = "Ничего не найдено"
	msgFilmNotFound  = "Фильм не найден"
	msgCinemaMissing = "Кинотеатр не найден"

	ackAdded   = "Добавлено"
	ackRemoved = "Удалено"

	btnAddFavourite    = "Добавить в избранное"
	btnRemoveFavourite = "Удалить из избранного"
	btnShowCinemas     = "Показать кинотеатры"
	btnShowOnMap       = "Показать на карте"
	btnShowFilms       = "Показать фильмы"
)

func greeting(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "Здравствуйте!\nВыберите команду для начала работы:"
	}
	return fmt.Sprintf("Здравствуйте, %s\nВыберите команду для начала работы:", name)
}

func filmCaption(f storage.Film) string {
	return fmt.Sprintf("Название: %s\nГод: %d\nРейтинг: %s\nДлительность: %s\nСтрана: %s",
		f.Name, f.Year, formatNumber(f.Rate), f.Length, f.Country)
}

func filmListHTML(films []storage.Film) string {
	lines := make([]string, 0, len(films))
	for i, f := range films {
		lines = append(lines, fmt.Sprintf("<b>%d</b> %s - /f%s", i+1, html.EscapeString(f.Name), f.UUID))
	}
	return strings.Join(lines, "\n")
}

func favouritesHTML(films []storage.Film) string {
	lines := make([]string, 0, len(films))
	for i, f := range films {
		lines = append(lines, fmt.Sprintf("<b>%d</b> %s - <b>%s</b>(/f%s)",
			i+1, html.EscapeString(f.Name), formatNumber(f.Rate), f.UUID))
	}
	return strings.Join(lines, "\n")
}

func cinemaListHTML(cinemas []storage.Cinema) string {
	lines := make([]string, 0, len(cinemas))
	for i, c := range cinemas {
		lines = append(lines, fmt.Sprintf("<b>%d</b> %s - /c%s", i+1, html.EscapeString(c.Name), c.UUID))
	}
	return strings.Join(lines, "\n")
}

func rankedCinemasHTML(cinemas []storage.Cinema) string {
	lines := make([]string, 0, len(cinemas))
	for i, c := range cinemas {
		lines = append(lines, fmt.Sprintf("<b>%d</b> %s. <em>Расстояние</em> - <strong>%s</strong> км. /c%s",
			i+1, html.EscapeString(c.Name), formatNumber(c.Distance), c.UUID))
	}
	return strings.Join(lines, "\n")
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// htmlList renders body as an HTML reply, or the empty-state text when body is empty.
func htmlList(chatID int64, body string, kb Keyboard) TextReply {
	if body == "" {
		return TextReply{ChatID: chatID, Body: msgNothingFound, Keyboard: kb}
	}
	return TextReply{ChatID: chatID, Body: body, HTML: true, Keyboard: kb}
}
