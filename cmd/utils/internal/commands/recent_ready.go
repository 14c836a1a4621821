package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/app"
	"github.com/appetiteclub/kds/internal/events"
	"github.com/appetiteclub/kds/pkg"
)

const defaultRecentLimit = 20

// RecentReady lists the table-ready notifications retained by the stream.
func RecentReady(ctx context.Context, config *apt.Config, logger apt.Logger, out io.Writer) error {
	natsURL, _ := config.GetString("nats.url")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	stream, err := pkg.NewNATSStream(ctx, app.NotificationStreamConfig(natsURL))
	if err != nil {
		return fmt.Errorf("open notification stream: %w", err)
	}
	defer stream.Close()

	ready, err := events.NewReadyHistory(stream).Recent(ctx, defaultRecentLimit)
	if err != nil {
		return err
	}
	if len(ready) == 0 {
		logger.Info("No table-ready notifications retained")
		return nil
	}

	for _, r := range ready {
		rush := ""
		if r.HasRush {
			rush = " RUSH"
		}
		fmt.Fprintf(out, "%s  %-12s %2d items%s\n", r.OccurredAt.Local().Format(time.TimeOnly), r.TableName, r.TotalItems, rush)
	}
	return nil
}
