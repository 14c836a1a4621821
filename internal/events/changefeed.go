package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/kds/internal/kds"
	"github.com/appetiteclub/kds/internal/ticket"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/appetiteclub/kds/pkg/event"
	"github.com/google/uuid"
)

// Projection is the part of the projector the change feed drives.
type Projection interface {
	Reload(ctx context.Context) error
	Printout(ticketID kds.TicketID, st station.Station, lineIDs []kds.LineID, at time.Time) (kds.TicketInfo, ticket.Ticket, error)
}

// ChangeFeedSubscriber turns ticket-line notifications into full reloads and
// prints the lines a server just sent.
type ChangeFeedSubscriber struct {
	subscriber events.Subscriber
	projection Projection
	printer    kds.TicketPrinter
	logger     apt.Logger
	now        func() time.Time
}

func NewChangeFeedSubscriber(
	subscriber events.Subscriber,
	projection Projection,
	printer kds.TicketPrinter,
	logger apt.Logger,
) *ChangeFeedSubscriber {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &ChangeFeedSubscriber{
		subscriber: subscriber,
		projection: projection,
		printer:    printer,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *ChangeFeedSubscriber) Start(ctx context.Context) error {
	s.logger.Info("Starting ChangeFeedSubscriber for topic: " + event.TicketLinesTopic)

	if err := s.subscriber.Subscribe(ctx, event.TicketLinesTopic, s.handleEvent); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", event.TicketLinesTopic, err)
	}

	s.logger.Info("ChangeFeedSubscriber started successfully")
	return nil
}

func (s *ChangeFeedSubscriber) Stop(ctx context.Context) error {
	return nil
}

// handleEvent reloads on every message. The payload never patches state; an
// unreadable one still means something changed.
func (s *ChangeFeedSubscriber) handleEvent(ctx context.Context, msg []byte) error {
	var evt event.LineChangedEvent
	if err := json.Unmarshal(msg, &evt); err != nil {
		s.logger.Errorf("Failed to unmarshal line event: %v", err)
	}

	if err := s.projection.Reload(ctx); err != nil {
		s.logger.Errorf("Reload after %s failed: %v", evt.EventType, err)
		return err
	}

	if evt.EventType == event.EventLineSent {
		s.printSent(ctx, &evt)
	}
	return nil
}

func (s *ChangeFeedSubscriber) printSent(ctx context.Context, evt *event.LineChangedEvent) {
	if s.printer == nil {
		return
	}

	ticketID, err := uuid.Parse(evt.TicketID)
	if err != nil {
		s.logger.Errorf("Invalid ticket_id in sent event: %v", err)
		return
	}

	lineIDs := make([]kds.LineID, 0, len(evt.LineIDs))
	for _, raw := range evt.LineIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.logger.Infof("Skipping invalid line id %q in sent event", raw)
			continue
		}
		lineIDs = append(lineIDs, id)
	}

	stations := station.All
	if evt.Station != "" {
		st := station.ByName(evt.Station)
		if st == nil {
			s.logger.Infof("Unknown station %q in sent event", evt.Station)
			return
		}
		stations = []station.Station{*st}
	}

	for _, st := range stations {
		info, tk, err := s.projection.Printout(ticketID, st, lineIDs, s.now())
		if errors.Is(err, kds.ErrLineNotFound) {
			continue
		}
		if errors.Is(err, kds.ErrTicketNotFound) {
			s.logger.Infof("Sent lines belong to ticket %s which is not open", ticketID)
			return
		}
		if err != nil {
			s.logger.Errorf("Cannot build %s ticket for %s: %v", st.Code(), ticketID, err)
			continue
		}

		location := info.LocationID
		if evt.LocationID != "" {
			location = evt.LocationID
		}

		jobID, err := s.printer.Print(ctx, location, st, tk)
		if err != nil {
			s.logger.Errorf("Failed to print %s ticket for %s: %v", st.Code(), ticketID, err)
			continue
		}
		s.logger.Info("ticket printed", "ticket_id", ticketID, "station", st.Code(), "job_id", jobID)
	}
}
