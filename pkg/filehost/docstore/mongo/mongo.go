package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/tendant/simple-filehost/pkg/filehost"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store implements filehost.DocumentStore on a MongoDB database
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ filehost.DocumentStore = (*Store)(nil)

// Config options for the MongoDB store
type Config struct {
	URI      string // e.g. mongodb://localhost:27017
	Database string // database holding the category and login collections
}

// Connect dials MongoDB and verifies the connection with a ping
func Connect(ctx context.Context, config Config) (*Store, error) {
	if config.URI == "" {
		return nil, errors.New("mongo uri is required")
	}
	if config.Database == "" {
		return nil, errors.New("mongo database is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	return &Store{client: client, db: client.Database(config.Database)}, nil
}

// New wraps an existing database handle. Close on the returned store is a no-op
// because the caller owns the client.
func New(db *mongo.Database) *Store {
	return &Store{db: db}
}

func (s *Store) InsertOne(ctx context.Context, collection string, doc interface{}) error {
	if _, err := s.db.Collection(collection).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert into %s: %w", collection, err)
	}
	return nil
}

func (s *Store) FindOne(ctx context.Context, collection string, filter filehost.Filter) (map[string]interface{}, error) {
	var out bson.M
	err := s.db.Collection(collection).FindOne(ctx, toBSON(filter)).Decode(&out)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, filehost.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("find one in %s: %w", collection, err)
	}
	return out, nil
}

func (s *Store) Distinct(ctx context.Context, collection, field string) ([]interface{}, error) {
	values, err := s.db.Collection(collection).Distinct(ctx, field, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("distinct %s in %s: %w", field, collection, err)
	}
	return values, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter filehost.Filter, projection []string) ([]map[string]interface{}, error) {
	opts := options.Find()
	if p := projectionDoc(projection); p != nil {
		opts.SetProjection(p)
	}

	cursor, err := s.db.Collection(collection).Find(ctx, toBSON(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read cursor from %s: %w", collection, err)
	}

	out := make([]map[string]interface{}, 0, len(docs))
	for _, d := range docs {
		out = append(out, d)
	}
	return out, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func toBSON(filter filehost.Filter) bson.M {
	out := bson.M{}
	for k, v := range filter {
		out[k] = v
	}
	return out
}

// projectionDoc builds an inclusion projection; _id is kept by the server.
func projectionDoc(fields []string) bson.D {
	if len(fields) == 0 {
		return nil
	}
	p := bson.D{}
	for _, f := range fields {
		p = append(p, bson.E{Key: f, Value: 1})
	}
	return p
}
