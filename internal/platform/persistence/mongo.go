package persistence

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/creditx/hold-service/internal/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// MongoDB wraps the client backing the published event archive.
// Archive writes use majority write concern.
type MongoDB struct {
	logger   *slog.Logger
	client   *mongo.Client
	database *mongo.Database
}

func NewMongoDB(ctx context.Context, logger *slog.Logger, cfg *config.MongoDBConfig) (*MongoDB, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetConnectTimeout(cfg.Timeout).
		SetServerSelectionTimeout(cfg.Timeout).
		SetRetryWrites(true).
		SetWriteConcern(writeconcern.Majority())

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Connected to MongoDB", "database", cfg.Database, "pool_max", cfg.MaxPoolSize)

	return NewMongoDBWithClient(logger, client, cfg.Database), nil
}

// NewMongoDBWithClient wraps an already connected client
func NewMongoDBWithClient(logger *slog.Logger, client *mongo.Client, database string) *MongoDB {
	return &MongoDB{
		logger:   logger,
		client:   client,
		database: client.Database(database),
	}
}

func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// EnsureIndexes creates the given indexes on collection. Existing identical
// indexes are left untouched by the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database, collection string, models []mongo.IndexModel) ([]string, error) {
	if len(models) == 0 {
		return nil, nil
	}
	names, err := db.Collection(collection).Indexes().CreateMany(ctx, models)
	if err != nil {
		return nil, fmt.Errorf("failed to create indexes on %s: %w", collection, err)
	}
	return names, nil
}

func (m *MongoDB) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	if err := m.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}
	m.logger.Info("Closed MongoDB connection")
	return nil
}
