package commands

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/kds"
)

// SeedDemo applies the demo monitors, tickets and lines.
func SeedDemo(ctx context.Context, config *apt.Config, logger apt.Logger) error {
	logger.Info("Starting demo seeding process...")

	store, err := openStore(ctx, config, logger)
	if err != nil {
		return err
	}
	defer closeStore(ctx, store, logger)

	if err := kds.SeedDemo(ctx, store.GetDatabase(), logger); err != nil {
		return fmt.Errorf("seed kds demo: %w", err)
	}
	return nil
}
