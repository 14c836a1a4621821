package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/mongo"
)

// openStore connects to the KDS database configured under db.mongo.*.
func openStore(ctx context.Context, config *apt.Config, logger apt.Logger) (*mongo.Store, error) {
	store := mongo.NewStore(config, logger)
	if err := store.Start(ctx); err != nil {
		return nil, fmt.Errorf("open kds store: %w", err)
	}
	logger.Info("Connected to MongoDB")
	return store, nil
}

func closeStore(ctx context.Context, store *mongo.Store, logger apt.Logger) {
	if err := store.Stop(ctx); err != nil {
		logger.Errorf("Cannot close store: %v", err)
	}
}
