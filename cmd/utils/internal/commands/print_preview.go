package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/kds"
	"github.com/appetiteclub/kds/internal/mongo"
	"github.com/appetiteclub/kds/internal/ticket"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/google/uuid"
)

// PrintPreview writes the text rendering of the ticket a station would print.
func PrintPreview(ctx context.Context, config *apt.Config, logger apt.Logger, out io.Writer, rawTicketID, stationName string) error {
	ticketID, err := uuid.Parse(rawTicketID)
	if err != nil {
		return fmt.Errorf("invalid ticket id %q: %w", rawTicketID, err)
	}
	st := station.ByName(stationName)
	if st == nil {
		return fmt.Errorf("unknown station %q", stationName)
	}

	store, err := openStore(ctx, config, logger)
	if err != nil {
		return err
	}
	defer closeStore(ctx, store, logger)

	projector := kds.NewProjector(kds.ProjectorDeps{
		Lines:    mongo.NewLineRepo(store),
		Courses:  mongo.NewCourseRepo(store),
		Monitors: mongo.NewMonitorRepo(store),
		Tickets:  mongo.NewTicketRepo(store, logger),
		Logger:   logger,
	})
	if err := projector.Reload(ctx); err != nil {
		return fmt.Errorf("load kds view: %w", err)
	}

	_, t, err := projector.Printout(ticketID, *st, nil, time.Now())
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, ticket.RenderText(t))
	return err
}
