// Package mongo keeps an audit archive of published outbox events in MongoDB.
package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/creditx/hold-service/internal/domain/outbox"
	"github.com/creditx/hold-service/internal/platform/persistence"
)

const (
	// ArchiveCollectionName is the collection holding published outbox events
	ArchiveCollectionName = "outbox_archive"
)

// archivedEvent is the stored form of an outbox event. The outbox id doubles as
// the document id so re-archiving an event overwrites rather than duplicates.
type archivedEvent struct {
	ID          int64      `bson:"_id"`
	EventType   string     `bson:"event_type"`
	AggregateID int64      `bson:"aggregate_id"`
	Payload     bson.D     `bson:"payload"`
	CreatedAt   time.Time  `bson:"created_at"`
	PublishedAt *time.Time `bson:"published_at,omitempty"`
	ArchivedAt  time.Time  `bson:"archived_at"`
}

// ArchiveRepository implements outbox.Archiver for MongoDB
type ArchiveRepository struct {
	db     *mongo.Database
	logger *slog.Logger
	now    func() time.Time
}

// NewArchiveRepository creates a new MongoDB outbox archive
func NewArchiveRepository(logger *slog.Logger, db *mongo.Database) *ArchiveRepository {
	return &ArchiveRepository{
		db:     db,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ outbox.Archiver = (*ArchiveRepository)(nil)

// EnsureIndexes adds the audit lookup indexes: by hold and by event type over time
func (r *ArchiveRepository) EnsureIndexes(ctx context.Context) error {
	names, err := persistence.EnsureIndexes(ctx, r.db, ArchiveCollectionName, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "aggregate_id", Value: 1}},
			Options: options.Index().SetName("aggregate_id_1"),
		},
		{
			Keys:    bson.D{{Key: "event_type", Value: 1}, {Key: "archived_at", Value: -1}},
			Options: options.Index().SetName("event_type_1_archived_at_-1"),
		},
	})
	if err != nil {
		r.logger.Error("Failed to ensure archive indexes", "error", err)
		return err
	}
	r.logger.Info("Archive indexes ready", "indexes", names)
	return nil
}

// Archive upserts the event keyed by its outbox id
func (r *ArchiveRepository) Archive(ctx context.Context, event *outbox.Event) error {
	var payload bson.D
	if err := bson.UnmarshalExtJSON(event.Payload, false, &payload); err != nil {
		return fmt.Errorf("failed to decode payload of outbox event %d: %w", event.ID, err)
	}

	doc := archivedEvent{
		ID:          event.ID,
		EventType:   event.EventType,
		AggregateID: event.AggregateID,
		Payload:     payload,
		CreatedAt:   event.CreatedAt,
		PublishedAt: event.PublishedAt,
		ArchivedAt:  r.now(),
	}

	collection := r.db.Collection(ArchiveCollectionName)
	opts := options.Replace().SetUpsert(true)
	if _, err := collection.ReplaceOne(ctx, bson.M{"_id": event.ID}, doc, opts); err != nil {
		r.logger.Error("Failed to archive outbox event",
			"event_id", event.ID,
			"event_type", event.EventType,
			"error", err)
		return fmt.Errorf("failed to archive outbox event: %w", err)
	}

	return nil
}
