// Package action encodes the instructions carried in inline button callback data.
//
// Payloads are compact JSON objects discriminated by a "type" field:
//
//	{"type":"tff","filmUuid":"f1","isFav":false}
//	{"type":"sc","cinemaUuids":["c1","c2"]}
//	{"type":"scm","lat":55.75,"lon":37.61}
//	{"type":"sf","filmUuid":["f1","f2"]}
package action

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MaxPayloadSize is the Telegram limit for callback_data, in bytes.
const MaxPayloadSize = 64

var (
	ErrMalformedAction = errors.New("malformed action")
	ErrPayloadTooLarge = errors.New("action payload too large")
)

type Kind string

const (
	KindToggleFavorite Kind = "tff"
	KindShowCinemas    Kind = "sc"
	KindShowCinemasMap Kind = "scm"
	KindShowFilms      Kind = "sf"
)

func (k Kind) Valid() bool {
	switch k {
	case KindToggleFavorite, KindShowCinemas, KindShowCinemasMap, KindShowFilms:
		return true
	}
	return false
}

// Action is a decoded callback instruction. Only the fields of its Kind are meaningful.
type Action struct {
	Kind Kind

	FilmUUID   string
	IsFavorite bool

	CinemaUUIDs []string

	Latitude  float64
	Longitude float64

	FilmUUIDs []string
}

func ToggleFavorite(filmUUID string, isFavorite bool) Action {
	return Action{Kind: KindToggleFavorite, FilmUUID: filmUUID, IsFavorite: isFavorite}
}

func ShowCinemas(uuids []string) Action {
	return Action{Kind: KindShowCinemas, CinemaUUIDs: uuids}
}

func ShowCinemasMap(lat, lon float64) Action {
	return Action{Kind: KindShowCinemasMap, Latitude: lat, Longitude: lon}
}

func ShowFilms(uuids []string) Action {
	return Action{Kind: KindShowFilms, FilmUUIDs: uuids}
}

type toggleFavoriteWire struct {
	Type     Kind   `json:"type"`
	FilmUUID string `json:"filmUuid"`
	IsFav    bool   `json:"isFav"`
}

type showCinemasWire struct {
	Type        Kind     `json:"type"`
	CinemaUUIDs []string `json:"cinemaUuids"`
}

type showCinemasMapWire struct {
	Type Kind    `json:"type"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

type showFilmsWire struct {
	Type      Kind     `json:"type"`
	FilmUUIDs []string `json:"filmUuid"`
}

// Encode serializes a into callback data. The output for a given Action is
// always the same byte sequence.
func Encode(a Action) (string, error) {
	const op = "action.Encode"
	var v any
	switch a.Kind {
	case KindToggleFavorite:
		v = toggleFavoriteWire{Type: a.Kind, FilmUUID: a.FilmUUID, IsFav: a.IsFavorite}
	case KindShowCinemas:
		v = showCinemasWire{Type: a.Kind, CinemaUUIDs: a.CinemaUUIDs}
	case KindShowCinemasMap:
		v = showCinemasMapWire{Type: a.Kind, Lat: a.Latitude, Lon: a.Longitude}
	case KindShowFilms:
		v = showFilmsWire{Type: a.Kind, FilmUUIDs: a.FilmUUIDs}
	default:
		return "", fmt.Errorf("%s: unknown kind %q", op, a.Kind)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if len(b) > MaxPayloadSize {
		return "", fmt.Errorf("%s: %d bytes: %w", op, len(b), ErrPayloadTooLarge)
	}
	return string(b), nil
}

// Decode parses callback data. Any failure wraps ErrMalformedAction.
func Decode(data string) (Action, error) {
	var head struct {
		Type *Kind `json:"type"`
	}
	if err := json.Unmarshal([]byte(data), &head); err != nil {
		return Action{}, malformed("not a json object: %v", err)
	}
	if head.Type == nil {
		return Action{}, malformed("type is missing")
	}

	switch kind := *head.Type; kind {
	case KindToggleFavorite:
		var w toggleFavoriteWire
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return Action{}, malformed("%s: %v", kind, err)
		}
		if w.FilmUUID == "" {
			return Action{}, malformed("%s: filmUuid is missing", kind)
		}
		return ToggleFavorite(w.FilmUUID, w.IsFav), nil
	case KindShowCinemas:
		var w showCinemasWire
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return Action{}, malformed("%s: %v", kind, err)
		}
		return ShowCinemas(w.CinemaUUIDs), nil
	case KindShowCinemasMap:
		var w struct {
			Lat *float64 `json:"lat"`
			Lon *float64 `json:"lon"`
		}
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return Action{}, malformed("%s: %v", kind, err)
		}
		if w.Lat == nil || w.Lon == nil {
			return Action{}, malformed("%s: coordinates are missing", kind)
		}
		return ShowCinemasMap(*w.Lat, *w.Lon), nil
	case KindShowFilms:
		var w showFilmsWire
		if err := json.Unmarshal([]byte(data), &w); err != nil {
			return Action{}, malformed("%s: %v", kind, err)
		}
		return ShowFilms(w.FilmUUIDs), nil
	default:
		return Action{}, malformed("unknown type %q", kind)
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedAction, fmt.Sprintf(format, args...))
}
