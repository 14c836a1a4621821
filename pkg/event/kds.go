package event

import "time"

const (
	// TicketLinesTopic carries "something changed" notifications for ticket lines.
	TicketLinesTopic = "kds.lines"
	// NotificationsTopic carries table-ready signals for POS and floor devices.
	NotificationsTopic = "kds.notifications"

	EventLineSent          = "kds.line.sent"
	EventLineUpdated       = "kds.line.updated"
	EventLineStatusChanged = "kds.line.status_changed"
	EventCourseMarched     = "kds.course.marched"
	EventCourseUnmarched   = "kds.course.unmarched"
	EventTicketsChanged    = "kds.tickets.changed"
	EventTableReady        = "kds.table.ready"
)

// LineChangedEvent tells consumers that ticket lines changed. Consumers must
// reload state instead of applying the payload as a delta; the fields only
// scope logging and printing.
type LineChangedEvent struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	TicketID   string    `json:"ticket_id,omitempty"`
	LineIDs    []string  `json:"line_ids,omitempty"`
	Station    string    `json:"station,omitempty"`
	LocationID string    `json:"location_id,omitempty"`
}

// LineStatusChangedEvent is emitted after a state-machine command was written through.
type LineStatusChangedEvent struct {
	EventType      string     `json:"event_type"`
	OccurredAt     time.Time  `json:"occurred_at"`
	TicketID       string     `json:"ticket_id"`
	LineID         string     `json:"line_id"`
	Station        string     `json:"station"`
	NewStatus      string     `json:"new_status"`
	PreviousStatus string     `json:"previous_status"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	ReadyAt        *time.Time `json:"ready_at,omitempty"`
	ServedAt       *time.Time `json:"served_at,omitempty"`
}

// CourseMarchEvent is emitted when a course fire flag is set or cleared.
type CourseMarchEvent struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	TicketID   string    `json:"ticket_id"`
	Course     int       `json:"course"`
	IsMarched  bool      `json:"is_marched"`
}

// TableReadyEvent is the fire-and-forget signal raised when a table turns ready.
type TableReadyEvent struct {
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	TableID    string    `json:"table_id"`
	TableName  string    `json:"table_name,omitempty"`
	TotalItems int       `json:"total_items"`
	HasRush    bool      `json:"has_rush"`
}
