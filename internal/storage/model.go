package storage

import (
	"go.mongodb.org/mongo-driver/bson"
)

type Location struct {
	Latitude  float64 `bson:"latitude" json:"latitude"`
	Longitude float64 `bson:"longitude" json:"longitude"`
}

type Film struct {
	UUID    string   `bson:"uuid" json:"uuid"`
	Name    string   `bson:"name" json:"name"`
	Type    string   `bson:"type,omitempty" json:"type,omitempty"`
	Year    int      `bson:"year,omitempty" json:"year,omitempty"`
	Rate    float64  `bson:"rate,omitempty" json:"rate,omitempty"`
	Length  string   `bson:"length,omitempty" json:"length,omitempty"`
	Country string   `bson:"country,omitempty" json:"country,omitempty"`
	Picture string   `bson:"picture,omitempty" json:"picture,omitempty"`
	Link    string   `bson:"link,omitempty" json:"link,omitempty"`
	Cinemas []string `bson:"cinemas" json:"cinemas"`
}

type Cinema struct {
	UUID     string   `bson:"uuid" json:"uuid"`
	Name     string   `bson:"name" json:"name"`
	URL      string   `bson:"url,omitempty" json:"url,omitempty"`
	Location Location `bson:"location" json:"location"`
	Films    []string `bson:"films" json:"films"`

	// Distance is set in kilometres when the cinema is ranked against a point.
	Distance float64 `bson:"-" json:"distance,omitempty"`
}

type User struct {
	TelegramID int64    `bson:"telegramId" json:"telegramId"`
	Films      []string `bson:"films" json:"films"`
}

// HasFilm reports whether uuid is among the user's favourites.
func (u *User) HasFilm(uuid string) bool {
	if u == nil {
		return false
	}
	for _, id := range u.Films {
		if id == uuid {
			return true
		}
	}
	return false
}

// Filter selects catalog records. The zero value matches everything.
type Filter struct {
	Genre string

	uuids   []string
	byUUIDs bool
}

func All() Filter { return Filter{} }

func ByGenre(genre string) Filter { return Filter{Genre: genre} }

// ByUUIDs matches records whose uuid is in ids. An empty ids matches nothing.
func ByUUIDs(ids []string) Filter {
	cp := make([]string, len(ids))
	copy(cp, ids)
	return Filter{uuids: cp, byUUIDs: true}
}

func (f Filter) UUIDs() ([]string, bool) { return f.uuids, f.byUUIDs }

func (f Filter) matches(uuid, genre string) bool {
	if f.Genre != "" && f.Genre != genre {
		return false
	}
	if !f.byUUIDs {
		return true
	}
	for _, id := range f.uuids {
		if id == uuid {
			return true
		}
	}
	return false
}

func (f Filter) bson() bson.M {
	q := bson.M{}
	if f.Genre != "" {
		q["type"] = f.Genre
	}
	if f.byUUIDs {
		ids := f.uuids
		if ids == nil {
			ids = []string{}
		}
		q["uuid"] = bson.M{"$in": ids}
	}
	return q
}

// key is a stable cache key for the filter.
func (f Filter) key() string {
	if f.byUUIDs {
		return ""
	}
	if f.Genre == "" {
		return "all"
	}
	return "genre:" + f.Genre
}
