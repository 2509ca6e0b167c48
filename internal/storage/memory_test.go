package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func seededMemory(t *testing.T) *Memory {
	t.Helper()
	m := NewMemory()
	err := m.ImportCatalog(context.Background(),
		[]Film{
			{UUID: "f1", Name: "Дэдпул", Type: "action", Cinemas: []string{"c1"}},
			{UUID: "f2", Name: "Мальчишник", Type: "comedy", Cinemas: []string{"c1", "c2"}},
			{UUID: "f3", Name: "Логан", Type: "action"},
		},
		[]Cinema{
			{UUID: "c1", Name: "Октябрь", Films: []string{"f1", "f2"}},
			{UUID: "c2", Name: "Пионер", Films: []string{"f2"}},
		},
	)
	require.NoError(t, err)
	return m
}

func filmUUIDs(films []Film) []string {
	out := make([]string, 0, len(films))
	for _, f := range films {
		out = append(out, f.UUID)
	}
	return out
}

func TestMemory_FindFilmsByFilter(t *testing.T) {
	m := seededMemory(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", All(), []string{"f1", "f2", "f3"}},
		{"genre", ByGenre("action"), []string{"f1", "f3"}},
		{"uuids", ByUUIDs([]string{"f3", "f2", "missing"}), []string{"f2", "f3"}},
		{"empty uuid set", ByUUIDs(nil), []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			films, err := m.FindFilms(ctx, tt.filter)
			require.NoError(t, err)
			require.Equal(t, tt.want, filmUUIDs(films))
		})
	}
}

func TestMemory_FindMissIsNil(t *testing.T) {
	m := seededMemory(t)
	ctx := context.Background()

	film, err := m.FindFilm(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, film)

	cinema, err := m.FindCinema(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, cinema)

	user, err := m.FindUser(ctx, 42)
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestMemory_UpsertUserReplacesRecord(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.UpsertUser(ctx, &User{TelegramID: 7, Films: []string{"f1"}}))
	require.NoError(t, m.UpsertUser(ctx, &User{TelegramID: 7, Films: []string{"f2", "f3"}}))

	u, err := m.FindUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, []string{"f2", "f3"}, u.Films)

	u.Films[0] = "mutated"
	again, err := m.FindUser(ctx, 7)
	require.NoError(t, err)
	require.Equal(t, "f2", again.Films[0])
}

func TestMemory_ImportReplacesByUUID(t *testing.T) {
	m := seededMemory(t)
	ctx := context.Background()

	require.NoError(t, m.ImportCatalog(ctx, []Film{{UUID: "f1", Name: "Дэдпул 2"}}, nil))

	film, err := m.FindFilm(ctx, "f1")
	require.NoError(t, err)
	require.Equal(t, "Дэдпул 2", film.Name)

	films, err := m.FindFilms(ctx, All())
	require.NoError(t, err)
	require.Len(t, films, 3)
}

func TestMemory_CanceledContext(t *testing.T) {
	m := seededMemory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.FindFilms(ctx, All())
	require.ErrorIs(t, err, context.Canceled)
}

func TestUser_HasFilm(t *testing.T) {
	var nilUser *User
	require.False(t, nilUser.HasFilm("f1"))

	u := &User{Films: []string{"f1", "f2"}}
	require.True(t, u.HasFilm("f2"))
	require.False(t, u.HasFilm("f3"))
}
