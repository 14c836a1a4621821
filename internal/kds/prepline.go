package kds

import (
	"time"

	"github.com/appetiteclub/kds/pkg/enums/prepstatus"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type LineID = uuid.UUID
type TicketID = uuid.UUID
type TableID = uuid.UUID

// Modifier is an ordered customization of a line, e.g. "Extra cheese".
type Modifier struct {
	Name       string          `json:"name"`
	PriceDelta decimal.Decimal `json:"price_delta"`
}

// PrepLine is one item-quantity unit within a ticket as seen by the kitchen.
type PrepLine struct {
	ID        LineID            `json:"id"`
	TicketID  TicketID          `json:"ticket_id"`
	ItemName  string            `json:"item_name"`
	Quantity  int               `json:"quantity"`
	Station   station.Station   `json:"station"`
	Course    int               `json:"course"`
	Status    prepstatus.Status `json:"status"`
	IsRush    bool              `json:"is_rush"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`
	StartedAt *time.Time        `json:"started_at,omitempty"`
	ReadyAt   *time.Time        `json:"ready_at,omitempty"`
	ServedAt  *time.Time        `json:"served_at,omitempty"`
	Notes     string            `json:"notes,omitempty"`
	Modifiers []Modifier        `json:"modifiers,omitempty"`
}

// RawLine is a ticket-line record as stored by the backend and delivered by the feed.
type RawLine struct {
	ID          string        `bson:"_id" json:"id"`
	TicketID    string        `bson:"ticket_id" json:"ticket_id"`
	ItemName    string        `bson:"item_name" json:"item_name"`
	Quantity    int           `bson:"quantity" json:"quantity"`
	Destination string        `bson:"destination,omitempty" json:"destination,omitempty"`
	Course      int           `bson:"course,omitempty" json:"course,omitempty"`
	PrepStatus  string        `bson:"prep_status" json:"prep_status"`
	SentAt      *time.Time    `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	StartedAt   *time.Time    `bson:"started_at,omitempty" json:"started_at,omitempty"`
	ReadyAt     *time.Time    `bson:"ready_at,omitempty" json:"ready_at,omitempty"`
	ServedAt    *time.Time    `bson:"served_at,omitempty" json:"served_at,omitempty"`
	IsRush      *bool         `bson:"is_rush,omitempty" json:"is_rush,omitempty"`
	Notes       string        `bson:"notes,omitempty" json:"notes,omitempty"`
	Modifiers   []RawModifier `bson:"modifiers,omitempty" json:"modifiers,omitempty"`
	UpdatedAt   time.Time     `bson:"updated_at" json:"updated_at"`
}

type RawModifier struct {
	Name       string `bson:"name" json:"name"`
	PriceDelta string `bson:"price_delta,omitempty" json:"price_delta,omitempty"`
}

// TicketInfo maps an open ticket to the physical table it belongs to.
type TicketInfo struct {
	TicketID   TicketID `json:"ticket_id"`
	TableID    TableID  `json:"table_id"`
	TableName  string   `json:"table_name"`
	ServerName string   `json:"server_name,omitempty"`
	LocationID string   `json:"location_id,omitempty"`
}

// CourseKey identifies one course of one ticket.
type CourseKey struct {
	TicketID TicketID
	Course   int
}

// MarchSet holds the course fire flags currently set.
type MarchSet map[CourseKey]bool

func (m MarchSet) IsMarched(ticketID TicketID, course int) bool {
	if m == nil {
		return false
	}
	return m[CourseKey{TicketID: ticketID, Course: course}]
}
