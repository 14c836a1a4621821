package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
)

// ResetDB drops the KDS database - USE WITH CAUTION
func ResetDB(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Infof("⚠️  DANGER: This will drop the KDS database!")
	logger.Infof("⚠️  This action cannot be undone!")

	store, err := openStore(ctx, config, logger)
	if err != nil {
		return err
	}
	defer closeStore(ctx, store, logger)

	db := store.GetDatabase()
	logger.Info("Dropping database", "database", db.Name())
	if err := db.Drop(ctx); err != nil {
		return fmt.Errorf("drop database %s: %w", db.Name(), err)
	}

	logger.Info("Database dropped", "database", db.Name())
	return nil
}
