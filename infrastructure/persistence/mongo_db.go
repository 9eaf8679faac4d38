package persistence

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"crosspost/infrastructure/configuration"
	"crosspost/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongoDb connects to MongoDB and returns the configured database.
func NewMongoDb(ctx context.Context) (*mongo.Database, error) {
	cfg := configuration.C.Database.Mongo
	if cfg.Host == "" {
		return nil, fmt.Errorf("mongo host not configured")
	}
	u := &url.URL{Scheme: "mongodb", Host: fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)}
	if cfg.User != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	}

	client, err := mongo.Connect(options.Client().
		ApplyURI(u.String()).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(10 * time.Second))
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	logger.GetLogger().WithField("database", cfg.Name).Info("Connected to MongoDB")
	return client.Database(cfg.Name), nil
}
