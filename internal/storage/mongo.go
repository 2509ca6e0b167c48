package storage

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Mongo struct {
	client  *mongo.Client
	films   *mongo.Collection
	cinemas *mongo.Collection
	users   *mongo.Collection
}

func NewMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	if uri == "" {
		return nil, errors.New("MONGODB_URI is empty")
	}
	if database == "" {
		database = "cinemabot"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(database)
	m := &Mongo{
		client:  client,
		films:   db.Collection("films"),
		cinemas: db.Collection("cinemas"),
		users:   db.Collection("users"),
	}
	_, _ = m.films.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{bson.E{Key: "uuid", Value: 1}}, Options: options.Index().SetUnique(true)})
	_, _ = m.films.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{bson.E{Key: "type", Value: 1}}})
	_, _ = m.cinemas.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{bson.E{Key: "uuid", Value: 1}}, Options: options.Index().SetUnique(true)})
	_, _ = m.users.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{bson.E{Key: "telegramId", Value: 1}}, Options: options.Index().SetUnique(true)})
	return m, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

func (m *Mongo) FindFilms(ctx context.Context, f Filter) ([]Film, error) {
	if m == nil {
		return nil, errors.New("mongo not configured")
	}
	cur, err := m.films.Find(ctx, f.bson())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	films := make([]Film, 0, 16)
	for cur.Next(ctx) {
		var film Film
		if err := cur.Decode(&film); err != nil {
			return nil, err
		}
		films = append(films, film)
	}
	return films, cur.Err()
}

func (m *Mongo) FindFilm(ctx context.Context, uuid string) (*Film, error) {
	if m == nil {
		return nil, errors.New("mongo not configured")
	}
	var film Film
	err := m.films.FindOne(ctx, bson.M{"uuid": uuid}).Decode(&film)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &film, nil
}

func (m *Mongo) FindCinemas(ctx context.Context, f Filter) ([]Cinema, error) {
	if m == nil {
		return nil, errors.New("mongo not configured")
	}
	cur, err := m.cinemas.Find(ctx, f.bson())
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	cinemas := make([]Cinema, 0, 16)
	for cur.Next(ctx) {
		var c Cinema
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		cinemas = append(cinemas, c)
	}
	return cinemas, cur.Err()
}

func (m *Mongo) FindCinema(ctx context.Context, uuid string) (*Cinema, error) {
	if m == nil {
		return nil, errors.New("mongo not configured")
	}
	var c Cinema
	err := m.cinemas.FindOne(ctx, bson.M{"uuid": uuid}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *Mongo) FindUser(ctx context.Context, telegramID int64) (*User, error) {
	if m == nil {
		return nil, errors.New("mongo not configured")
	}
	var u User
	err := m.users.FindOne(ctx, bson.M{"telegramId": telegramID}).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (m *Mongo) UpsertUser(ctx context.Context, u *User) error {
	if m == nil {
		return errors.New("mongo not configured")
	}
	if u == nil {
		return errors.New("user is nil")
	}
	films := u.Films
	if films == nil {
		films = []string{}
	}
	_, err := m.users.UpdateOne(ctx,
		bson.M{"telegramId": u.TelegramID},
		bson.M{"$set": bson.M{
			"telegramId": u.TelegramID,
			"films":      films,
		}},
		options.Update().SetUpsert(true),
	)
	return err
}

// ImportCatalog replaces films and cinemas by uuid, inserting the missing ones.
func (m *Mongo) ImportCatalog(ctx context.Context, films []Film, cinemas []Cinema) error {
	if m == nil {
		return errors.New("mongo not configured")
	}
	if len(films) > 0 {
		models := make([]mongo.WriteModel, 0, len(films))
		for _, f := range films {
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"uuid": f.UUID}).
				SetReplacement(f).
				SetUpsert(true))
		}
		if _, err := m.films.BulkWrite(ctx, models); err != nil {
			return fmt.Errorf("import films: %w", err)
		}
	}
	if len(cinemas) > 0 {
		models := make([]mongo.WriteModel, 0, len(cinemas))
		for _, c := range cinemas {
			models = append(models, mongo.NewReplaceOneModel().
				SetFilter(bson.M{"uuid": c.UUID}).
				SetReplacement(c).
				SetUpsert(true))
		}
		if _, err := m.cinemas.BulkWrite(ctx, models); err != nil {
			return fmt.Errorf("import cinemas: %w", err)
		}
	}
	return nil
}
