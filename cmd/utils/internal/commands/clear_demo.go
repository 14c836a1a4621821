package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/kds"
)

// ClearDemo removes the demo data and its seed records.
func ClearDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo data cleanup...")

	store, err := openStore(ctx, config, logger)
	if err != nil {
		return err
	}
	defer closeStore(ctx, store, logger)

	if err := kds.ClearDemo(ctx, store.GetDatabase(), logger); err != nil {
		return fmt.Errorf("clear kds demo: %w", err)
	}
	return nil
}
