package storage

import (
	"context"
	"sync"
)

// Memory keeps the catalog and users in process. Catalog order is insertion order.
type Memory struct {
	mu      sync.RWMutex
	films   []Film
	cinemas []Cinema
	users   map[int64]User
}

func NewMemory() *Memory {
	return &Memory{users: make(map[int64]User)}
}

func (m *Memory) FindFilms(ctx context.Context, f Filter) ([]Film, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Film, 0, len(m.films))
	for _, film := range m.films {
		if f.matches(film.UUID, film.Type) {
			out = append(out, cloneFilm(film))
		}
	}
	return out, nil
}

func (m *Memory) FindFilm(ctx context.Context, uuid string) (*Film, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, film := range m.films {
		if film.UUID == uuid {
			cp := cloneFilm(film)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindCinemas(ctx context.Context, f Filter) ([]Cinema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Cinema, 0, len(m.cinemas))
	for _, c := range m.cinemas {
		if f.Genre != "" {
			continue
		}
		if f.matches(c.UUID, "") {
			out = append(out, cloneCinema(c))
		}
	}
	return out, nil
}

func (m *Memory) FindCinema(ctx context.Context, uuid string) (*Cinema, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.cinemas {
		if c.UUID == uuid {
			cp := cloneCinema(c)
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindUser(ctx context.Context, telegramID int64) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[telegramID]
	if !ok {
		return nil, nil
	}
	u.Films = append([]string(nil), u.Films...)
	return &u, nil
}

func (m *Memory) UpsertUser(ctx context.Context, u *User) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.TelegramID] = User{TelegramID: u.TelegramID, Films: append([]string(nil), u.Films...)}
	return nil
}

// ImportCatalog replaces records with the same uuid and appends the rest.
func (m *Memory) ImportCatalog(ctx context.Context, films []Film, cinemas []Cinema) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range films {
		replaced := false
		for i := range m.films {
			if m.films[i].UUID == f.UUID {
				m.films[i] = cloneFilm(f)
				replaced = true
				break
			}
		}
		if !replaced {
			m.films = append(m.films, cloneFilm(f))
		}
	}
	for _, c := range cinemas {
		c.Distance = 0
		replaced := false
		for i := range m.cinemas {
			if m.cinemas[i].UUID == c.UUID {
				m.cinemas[i] = cloneCinema(c)
				replaced = true
				break
			}
		}
		if !replaced {
			m.cinemas = append(m.cinemas, cloneCinema(c))
		}
	}
	return nil
}

// DeleteFilm drops a film from the catalog. Favourites pointing at it are left as they are.
func (m *Memory) DeleteFilm(uuid string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.films[:0]
	for _, f := range m.films {
		if f.UUID != uuid {
			out = append(out, f)
		}
	}
	m.films = out
}

func cloneFilm(f Film) Film {
	f.Cinemas = append([]string(nil), f.Cinemas...)
	return f
}

func cloneCinema(c Cinema) Cinema {
	c.Films = append([]string(nil), c.Films...)
	return c
}
