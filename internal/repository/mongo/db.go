package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/jwalitptl/wellness-api/pkg/metrics"
)

const (
	collectionPatients  = "patients"
	collectionVisits    = "visits"
	collectionTemplates = "templates"
	collectionUsers     = "users"
	collectionPractice  = "practice_settings"
	collectionAudit     = "audit_logs"
	collectionOutbox    = "outbox"
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

// DB is the store handle shared by every repository. It is created once at
// startup and passed to the repositories that need it.
type DB struct {
	client  *mongo.Client
	db      *mongo.Database
	metrics *metrics.Metrics
}

func NewDB(ctx context.Context, cfg Config, m *metrics.Metrics) (*DB, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().ApplyURI(cfg.URI)
	if cfg.MaxPoolSize > 0 {
		clientOptions.SetMaxPoolSize(cfg.MaxPoolSize)
	}

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err = client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Info().Str("database", cfg.Database).Msg("connected to MongoDB")

	return &DB{
		client:  client,
		db:      client.Database(cfg.Database),
		metrics: m,
	}, nil
}

func (d *DB) collection(name string) *mongo.Collection {
	return d.db.Collection(name)
}

func (d *DB) Ping(ctx context.Context) error {
	return d.client.Ping(ctx, readpref.Primary())
}

func (d *DB) Close(ctx context.Context) error {
	return d.client.Disconnect(ctx)
}

// timed records the duration and outcome of a store call. Use with defer
// and a named error return.
func (d *DB) timed(operation string, start time.Time, err *error) {
	var e error
	if err != nil {
		e = *err
	}
	d.metrics.ObserveDB(operation, start, e)
}
