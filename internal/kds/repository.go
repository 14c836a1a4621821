package kds

import (
	"context"
	"time"
)

// StatusUpdate is a conditional write of a line's preparation state. It only
// applies while the stored prep_status is one of From.
type StatusUpdate struct {
	LineID    LineID
	From      []string
	To        string
	StartedAt *time.Time
	ReadyAt   *time.Time
	ServedAt  *time.Time
}

type LineRepository interface {
	FindByID(ctx context.Context, id LineID) (*RawLine, error)
	ListByTickets(ctx context.Context, ticketIDs []TicketID) ([]RawLine, error)
	ListByCourse(ctx context.Context, ticketID TicketID, course int) ([]RawLine, error)
	// UpdateStatus returns false when the stored status no longer matches From.
	UpdateStatus(ctx context.Context, update StatusUpdate) (bool, error)
}

type CourseRepository interface {
	ListMarches(ctx context.Context, ticketIDs []TicketID) (MarchSet, error)
	SetMarched(ctx context.Context, ticketID TicketID, course int, marched bool) error
}

type MonitorRepository interface {
	List(ctx context.Context) ([]Monitor, error)
}

type TicketRepository interface {
	ListOpen(ctx context.Context) ([]TicketInfo, error)
}
