package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkaralis/storeforge/internal/config"
	"github.com/mkaralis/storeforge/internal/types"
)

// Store persists generation run history for the analytics endpoints.
type Store interface {
	Record(ctx context.Context, run *types.GenerationRun) error
	Recent(ctx context.Context, limit int) ([]types.GenerationRun, error)
	Summary(ctx context.Context) (*Summary, error)
	Close() error
}

// Summary aggregates run history for the analytics view.
type Summary struct {
	TotalRuns    int64                 `json:"total_runs"`
	SuccessRuns  int64                 `json:"success_runs"`
	TotalCost    float64               `json:"total_cost"`
	InputTokens  int64                 `json:"input_tokens"`
	OutputTokens int64                 `json:"output_tokens"`
	ByPlatform   map[string]int64      `json:"by_platform"`
	ByLanguage   map[string]int64      `json:"by_language"`
	RecentRuns   []types.GenerationRun `json:"recent_runs"`
}

// MongoStore is the MongoDB-backed run history store.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *slog.Logger
}

// NewMongoStore connects to MongoDB and returns a run history store.
func NewMongoStore(cfg config.StorageConfig, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		logger:     logger.With("component", "analytics_store"),
	}, nil
}

// Record inserts one completed run.
func (s *MongoStore) Record(ctx context.Context, run *types.GenerationRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	_, err := s.collection.InsertOne(ctx, run)
	if err != nil {
		return fmt.Errorf("mongodb insert: %w", err)
	}
	s.logger.Debug("run recorded", "url", run.URL, "success", run.Success)
	return nil
}

// Recent returns the newest runs up to limit.
func (s *MongoStore) Recent(ctx context.Context, limit int) ([]types.GenerationRun, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []types.GenerationRun
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("mongodb decode: %w", err)
	}
	return runs, nil
}

// Summary aggregates the run history.
func (s *MongoStore) Summary(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		ByPlatform: make(map[string]int64),
		ByLanguage: make(map[string]int64),
	}

	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("mongodb find: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var run types.GenerationRun
		if err := cursor.Decode(&run); err != nil {
			continue
		}
		summary.TotalRuns++
		if run.Success {
			summary.SuccessRuns++
		}
		summary.TotalCost += run.Usage.Pricing.TotalCost
		summary.InputTokens += int64(run.Usage.InputTokens)
		summary.OutputTokens += int64(run.Usage.OutputTokens)
		summary.ByPlatform[run.Platform.Platform]++
		summary.ByLanguage[run.Language]++
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("mongodb cursor: %w", err)
	}

	recent, err := s.Recent(ctx, 10)
	if err != nil {
		return nil, err
	}
	summary.RecentRuns = recent

	return summary, nil
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// NopStore discards run history. Used when persistence is disabled.
type NopStore struct{}

func (NopStore) Record(context.Context, *types.GenerationRun) error { return nil }

func (NopStore) Recent(context.Context, int) ([]types.GenerationRun, error) { return nil, nil }

func (NopStore) Summary(context.Context) (*Summary, error) {
	return &Summary{
		ByPlatform: map[string]int64{},
		ByLanguage: map[string]int64{},
	}, nil
}

func (NopStore) Close() error { return nil }
