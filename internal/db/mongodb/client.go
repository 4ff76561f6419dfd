package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"Murmur/internal/core/notifications"
	"Murmur/internal/core/posts"
	"Murmur/internal/core/users"
)

const (
	usersCollection         = "users"
	postsCollection         = "posts"
	notificationsCollection = "notifications"

	usernameIndex = "username_unique"
	emailIndex    = "email_unique"
)

// Store groups the MongoDB repositories over one database
type Store struct {
	db     *mongo.Database
	logger *slog.Logger

	topologyMu  sync.Mutex
	topologyOK  bool
	txSupported bool
}

// Connect dials uri, verifies the connection and returns the client
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return client, nil
}

// NewStore wraps a database handle
func NewStore(db *mongo.Database, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, logger: logger}
}

// EnsureIndexes creates the unique and feed indexes; it is idempotent
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(usernameIndex),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(emailIndex),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}

	_, err = s.db.Collection(postsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}

	_, err = s.db.Collection(notificationsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "to", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create notification indexes: %w", err)
	}
	return nil
}

// Users returns the MongoDB user repository
func (s *Store) Users() users.Repository {
	return &userRepo{store: s, coll: s.db.Collection(usersCollection)}
}

// Posts returns the MongoDB post repository
func (s *Store) Posts() posts.Repository {
	return &postRepo{store: s, coll: s.db.Collection(postsCollection)}
}

// Notifications returns the MongoDB notification repository
func (s *Store) Notifications() notifications.Repository {
	return &notificationRepo{coll: s.db.Collection(notificationsCollection)}
}

// withTransaction runs fn inside a majority-acknowledged multi-document transaction
// when the deployment supports one. On a standalone server fn runs directly and
// each of its single-document updates is atomic on its own.
func (s *Store) withTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !s.supportsTransactions(ctx) {
		return fn(ctx)
	}

	session, err := s.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOptions := options.Transaction().SetWriteConcern(writeconcern.Majority())
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOptions)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		s.logger.Warn("transaction failed", "error", err)
	}
	return err
}

// supportsTransactions reports whether the server is a replica set member or a
// mongos router. A successful check is cached for the life of the store.
func (s *Store) supportsTransactions(ctx context.Context) bool {
	s.topologyMu.Lock()
	defer s.topologyMu.Unlock()

	if s.topologyOK {
		return s.txSupported
	}

	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	cmd := bson.D{{Key: "hello", Value: 1}}
	if err := s.db.Client().Database("admin").RunCommand(ctx, cmd).Decode(&hello); err != nil {
		s.logger.Warn("failed to detect mongodb topology", "error", err)
		return false
	}

	s.topologyOK = true
	s.txSupported = hello.SetName != "" || hello.Msg == "isdbgrid"
	s.logger.Info("mongodb topology detected", "transactions", s.txSupported, "replica_set", hello.SetName)
	return s.txSupported
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
