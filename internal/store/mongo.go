package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/courtwatch-hq/courtwatch-scraper/internal/domain"
)

const (
	venuesCollection = "venues"
	slotsCollection  = "slots"
	logsCollection   = "scraping_logs"
	statusCollection = "system_status"

	scraperStatusID = "scraper_status"
)

// MongoStore implements VenueSource and SlotStore against MongoDB.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// OpenMongo connects to MongoDB and verifies the connection with a ping.
func OpenMongo(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// LoadVenues returns active venues, optionally restricted by display name.
func (m *MongoStore) LoadVenues(ctx context.Context, names []string) ([]domain.Venue, error) {
	filter := bson.M{"is_active": true}
	if len(names) > 0 {
		filter["name"] = bson.M{"$in": names}
	}

	cursor, err := m.db.Collection(venuesCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find venues: %w", err)
	}
	defer cursor.Close(ctx)

	var venues []domain.Venue
	if err := cursor.All(ctx, &venues); err != nil {
		return nil, fmt.Errorf("decode venues: %w", err)
	}
	return venues, nil
}

func slotFilter(key NaturalKey) bson.M {
	return bson.M{
		"venue_id":   key.VenueID,
		"court_id":   key.CourtID,
		"date":       key.Date,
		"start_time": key.StartTime,
	}
}

// FindSlot looks up the canonical record by natural key.
func (m *MongoStore) FindSlot(ctx context.Context, key NaturalKey) (*domain.SlotRecord, error) {
	var record domain.SlotRecord
	err := m.db.Collection(slotsCollection).FindOne(ctx, slotFilter(key)).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find slot: %w", err)
	}
	return &record, nil
}

// UpsertSlot replaces the record with the same natural key, inserting when
// absent. Last write wins.
func (m *MongoStore) UpsertSlot(ctx context.Context, record domain.SlotRecord) error {
	key := NaturalKey{
		VenueID:   record.VenueID,
		CourtID:   record.CourtID,
		Date:      record.Date,
		StartTime: record.StartTime,
	}
	opts := options.Replace().SetUpsert(true)
	if _, err := m.db.Collection(slotsCollection).ReplaceOne(ctx, slotFilter(key), record, opts); err != nil {
		return fmt.Errorf("upsert slot: %w", err)
	}
	return nil
}

// AppendScrapeLog inserts one scrape-attempt record.
func (m *MongoStore) AppendScrapeLog(ctx context.Context, log domain.ScrapeLog) error {
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	if _, err := m.db.Collection(logsCollection).InsertOne(ctx, log); err != nil {
		return fmt.Errorf("insert scrape log: %w", err)
	}
	return nil
}

// UpdateLastScrapeTime upserts the single scraper-status document.
func (m *MongoStore) UpdateLastScrapeTime(ctx context.Context, t time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"last_scrape_time": t,
			"updated_at":       t,
		},
		"$setOnInsert": bson.M{
			"created_at": t,
		},
	}
	opts := options.Update().SetUpsert(true)
	_, err := m.db.Collection(statusCollection).UpdateOne(ctx, bson.M{"_id": scraperStatusID}, update, opts)
	if err != nil {
		return fmt.Errorf("update scraper status: %w", err)
	}
	return nil
}

// Close disconnects the underlying client.
func (m *MongoStore) Close(ctx context.Context) error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}
