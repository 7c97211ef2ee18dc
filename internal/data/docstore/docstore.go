// Package docstore implements the content engine's stores on MongoDB.
// Ids are stored as their canonical string form in _id.
package docstore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yungbote/hackfeed-backend/internal/data/repos"
	"github.com/yungbote/hackfeed-backend/internal/pkg/logger"
)

const (
	colContent    = "content"
	colArchive    = "deleted_content"
	colCategories = "category"
	colUsers      = "user"
	colJobRuns    = "job_run"
)

type ConnectOptions struct {
	URI            string
	MaxPoolSize    uint64
	MinPoolSize    uint64
	ConnectTimeout time.Duration
}

// Connect dials MongoDB and pings it before returning the client.
func Connect(ctx context.Context, opts ConnectOptions) (*mongo.Client, error) {
	if opts.URI == "" {
		return nil, fmt.Errorf("mongo connection uri is empty")
	}
	if opts.MaxPoolSize == 0 {
		opts.MaxPoolSize = 50
	}
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	clientOptions := options.Client().ApplyURI(opts.URI).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetMinPoolSize(opts.MinPoolSize).
		SetConnectTimeout(opts.ConnectTimeout).
		SetSocketTimeout(10 * time.Second)

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(dialCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

type Store struct {
	db  *mongo.Database
	log *logger.Logger
}

func New(db *mongo.Database, baseLog *logger.Logger) *Store {
	return &Store{db: db, log: baseLog.With("store", "docstore")}
}

func (s *Store) Set() repos.Set {
	return repos.Set{
		Content:     &contentStore{col: s.db.Collection(colContent), log: s.log.With("repo", "ContentRepo")},
		Archive:     &archiveStore{col: s.db.Collection(colArchive), log: s.log.With("repo", "ArchiveRepo")},
		Categories:  &categoryStore{col: s.db.Collection(colCategories)},
		Transitions: &transitionStore{content: s.db.Collection(colContent), archive: s.db.Collection(colArchive), log: s.log.With("repo", "TransitionRepo")},
		Users:       &userStore{col: s.db.Collection(colUsers)},
		JobRuns:     &jobRunStore{col: s.db.Collection(colJobRuns)},
	}
}

// EnsureIndexes creates the indexes every query path relies on.
// The unique original_content_id index is what keeps archival idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		colContent: {
			{Keys: bson.D{{Key: "category_id", Value: 1}, {Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "publish_date", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		colArchive: {
			{Keys: bson.D{{Key: "original_content_id", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "deleted_at", Value: -1}}},
			{Keys: bson.D{{Key: "reason", Value: 1}}},
		},
		colCategories: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colJobRuns: {
			{Keys: bson.D{{Key: "job_type", Value: 1}, {Key: "trigger_source", Value: 1}, {Key: "status", Value: 1}, {Key: "started_at", Value: -1}}},
		},
	}
	for col, models := range specs {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", col, err)
		}
	}
	s.log.Info("Mongo indexes ensured", "database", s.db.Name())
	return nil
}
