package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bassista/go_reel/internal/logger"
	"github.com/bassista/go_reel/internal/repository"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const usersCollection = "users"

type movieDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Title     string        `bson:"title"`
	Genre     string        `bson:"genre"`
	Rating    float64       `bson:"rating"`
	Watched   bool          `bson:"watched"`
	Review    string        `bson:"review,omitempty"`
	PosterURL string        `bson:"posterUrl,omitempty"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (d movieDocument) toMovie() repository.Movie {
	return repository.Movie{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Genre:     d.Genre,
		Rating:    d.Rating,
		Watched:   d.Watched,
		Review:    d.Review,
		PosterURL: d.PosterURL,
	}
}

type userDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Username  string        `bson:"username"`
	Password  string        `bson:"password"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (d userDocument) toUser() repository.User {
	return repository.User{ID: d.ID.Hex(), Username: d.Username, Password: d.Password}
}

// changeDocument is the subset of a change stream event the relay needs.
type changeDocument struct {
	OperationType string `bson:"operationType"`
	DocumentKey   struct {
		ID bson.ObjectID `bson:"_id"`
	} `bson:"documentKey"`
	FullDocument *movieDocument `bson:"fullDocument"`
}

func (c changeDocument) toEvent() repository.ChangeEvent {
	var movie *repository.Movie
	if c.FullDocument != nil {
		m := c.FullDocument.toMovie()
		movie = &m
	}
	return repository.NewMovieChange(repository.ChangeOperation(c.OperationType), c.DocumentKey.ID.Hex(), movie)
}

// patchUpdate builds the $set document for the provided patch fields.
func patchUpdate(patch repository.MoviePatch, now time.Time) bson.D {
	set := bson.D{}
	if patch.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *patch.Title})
	}
	if patch.Genre != nil {
		set = append(set, bson.E{Key: "genre", Value: *patch.Genre})
	}
	if patch.Rating != nil {
		set = append(set, bson.E{Key: "rating", Value: *patch.Rating})
	}
	if patch.Watched != nil {
		set = append(set, bson.E{Key: "watched", Value: *patch.Watched})
	}
	if patch.Review != nil {
		set = append(set, bson.E{Key: "review", Value: *patch.Review})
	}
	if patch.PosterURL != nil {
		set = append(set, bson.E{Key: "posterUrl", Value: *patch.PosterURL})
	}
	set = append(set, bson.E{Key: "updatedAt", Value: now})
	return bson.D{{Key: "$set", Value: set}}
}

// MongoRecordStore persists movies and users in MongoDB collections.
type MongoRecordStore struct {
	client    *mongo.Client
	db        *mongo.Database
	movies    *mongo.Collection
	users     *mongo.Collection
	opTimeout time.Duration
	now       func() time.Time
}

// NewMongoRecordStore binds to database on a connected client and makes sure the
// unique username index exists.
func NewMongoRecordStore(ctx context.Context, client *mongo.Client, database string, opTimeout time.Duration) (*MongoRecordStore, error) {
	db := client.Database(database)
	s := &MongoRecordStore{
		client:    client,
		db:        db,
		movies:    db.Collection(repository.MoviesCollection),
		users:     db.Collection(usersCollection),
		opTimeout: opTimeout,
		now:       time.Now,
	}

	ictx, cancel := s.opContext(ctx)
	defer cancel()
	_, err := s.users.Indexes().CreateOne(ictx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create username index: %w", err)
	}
	return s, nil
}

func (s *MongoRecordStore) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *MongoRecordStore) FindMovies(ctx context.Context) ([]repository.Movie, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	cursor, err := s.movies.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find movies: %w", err)
	}
	var docs []movieDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode movies: %w", err)
	}

	movies := make([]repository.Movie, 0, len(docs))
	for _, d := range docs {
		movies = append(movies, d.toMovie())
	}
	return movies, nil
}

func (s *MongoRecordStore) FindMovie(ctx context.Context, id string) (repository.Movie, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return repository.Movie{}, ErrMovieNotFound
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc movieDocument
	if err := s.movies.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.Movie{}, ErrMovieNotFound
		}
		return repository.Movie{}, fmt.Errorf("find movie %s: %w", id, err)
	}
	return doc.toMovie(), nil
}

func (s *MongoRecordStore) InsertMovie(ctx context.Context, in repository.MovieInput) (repository.Movie, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	m := in.ToMovie("")
	now := s.now().UTC()
	doc := movieDocument{
		ID:        bson.NewObjectID(),
		Title:     m.Title,
		Genre:     m.Genre,
		Rating:    m.Rating,
		Watched:   m.Watched,
		Review:    m.Review,
		PosterURL: m.PosterURL,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.movies.InsertOne(ctx, doc); err != nil {
		return repository.Movie{}, fmt.Errorf("insert movie: %w", err)
	}
	return doc.toMovie(), nil
}

func (s *MongoRecordStore) UpdateMovie(ctx context.Context, id string, patch repository.MoviePatch) (repository.Movie, error) {
	if patch.IsEmpty() {
		return s.FindMovie(ctx, id)
	}
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return repository.Movie{}, ErrMovieNotFound
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc movieDocument
	err = s.movies.FindOneAndUpdate(
		ctx,
		bson.D{{Key: "_id", Value: oid}},
		patchUpdate(patch, s.now().UTC()),
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.Movie{}, ErrMovieNotFound
		}
		return repository.Movie{}, fmt.Errorf("update movie %s: %w", id, err)
	}
	return doc.toMovie(), nil
}

func (s *MongoRecordStore) DeleteMovie(ctx context.Context, id string) (bool, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return false, nil
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.movies.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return false, fmt.Errorf("delete movie %s: %w", id, err)
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoRecordStore) FindUser(ctx context.Context, id string) (repository.User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return repository.User{}, ErrUserNotFound
	}
	return s.findUser(ctx, bson.D{{Key: "_id", Value: oid}})
}

func (s *MongoRecordStore) FindUserByUsername(ctx context.Context, username string) (repository.User, error) {
	return s.findUser(ctx, bson.D{{Key: "username", Value: username}})
}

func (s *MongoRecordStore) findUser(ctx context.Context, filter bson.D) (repository.User, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc userDocument
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.User{}, ErrUserNotFound
		}
		return repository.User{}, fmt.Errorf("find user: %w", err)
	}
	return doc.toUser(), nil
}

func (s *MongoRecordStore) InsertUser(ctx context.Context, in repository.UserInput) (repository.User, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	now := s.now().UTC()
	doc := userDocument{
		ID:        bson.NewObjectID(),
		Username:  in.Username,
		Password:  in.Password,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.User{}, ErrUsernameTaken
		}
		return repository.User{}, fmt.Errorf("insert user: %w", err)
	}
	return doc.toUser(), nil
}

// SupportsChangeStreams reports whether the server is a replica set member.
// Standalone servers reject change streams.
func (s *MongoRecordStore) SupportsChangeStreams(ctx context.Context) (bool, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var hello struct {
		SetName string `bson:"setName"`
	}
	if err := s.db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return false, fmt.Errorf("hello command: %w", err)
	}
	return hello.SetName != "", nil
}

// Watch tails the movies change stream until ctx is done.
func (s *MongoRecordStore) Watch(ctx context.Context, onChange ChangeHandler) error {
	log := logger.WithComponent("mongo-store")

	ok, err := s.SupportsChangeStreams(ctx)
	if err != nil {
		log.Warnf("cannot determine replica set status: %v", err)
		return repository.ErrChangeStreamUnsupported
	}
	if !ok {
		return repository.ErrChangeStreamUnsupported
	}

	stream, err := s.movies.Watch(ctx, mongo.Pipeline{}, options.ChangeStream().SetFullDocument(options.UpdateLookup))
	if err != nil {
		return fmt.Errorf("open change stream: %w", err)
	}
	defer stream.Close(context.WithoutCancel(ctx))
	log.Info("movie change stream opened")

	for stream.Next(ctx) {
		var change changeDocument
		if err := stream.Decode(&change); err != nil {
			log.Warnf("skipping undecodable change event: %v", err)
			continue
		}
		switch repository.ChangeOperation(change.OperationType) {
		case repository.OperationInsert, repository.OperationUpdate, repository.OperationReplace, repository.OperationDelete:
			onChange(change.toEvent())
		default:
			log.Debugf("ignoring %s change event", change.OperationType)
		}
	}
	if err := stream.Err(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("change stream: %w", err)
	}
	return nil
}

func (s *MongoRecordStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}
