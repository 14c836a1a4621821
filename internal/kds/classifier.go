package kds

import (
	"fmt"
	"strings"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/pkg/enums/prepstatus"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Classify normalizes a raw ticket-line record into a PrepLine.
// Only a missing or unparsable id or ticket id is an error.
func Classify(raw RawLine) (PrepLine, error) {
	if strings.TrimSpace(raw.TicketID) == "" {
		return PrepLine{}, fmt.Errorf("line %q has no ticket_id: %w", raw.ID, ErrMalformedLine)
	}
	ticketID, err := uuid.Parse(raw.TicketID)
	if err != nil {
		return PrepLine{}, fmt.Errorf("line %q has invalid ticket_id %q: %w", raw.ID, raw.TicketID, ErrMalformedLine)
	}
	lineID, err := uuid.Parse(raw.ID)
	if err != nil {
		return PrepLine{}, fmt.Errorf("invalid line id %q: %w", raw.ID, ErrMalformedLine)
	}

	quantity := raw.Quantity
	if quantity < 1 {
		quantity = 1
	}

	course := raw.Course
	if course < 1 {
		course = 1
	}

	status := prepstatus.Statuses.Pending
	if s := prepstatus.ByName(raw.PrepStatus); s != nil {
		status = *s
	}

	line := PrepLine{
		ID:        lineID,
		TicketID:  ticketID,
		ItemName:  strings.TrimSpace(raw.ItemName),
		Quantity:  quantity,
		Station:   station.ByNameOrDefault(raw.Destination),
		Course:    course,
		Status:    status,
		IsRush:    raw.IsRush != nil && *raw.IsRush,
		SentAt:    raw.SentAt,
		StartedAt: raw.StartedAt,
		ReadyAt:   raw.ReadyAt,
		ServedAt:  raw.ServedAt,
		Notes:     strings.TrimSpace(raw.Notes),
	}

	for _, m := range raw.Modifiers {
		name := strings.TrimSpace(m.Name)
		if name == "" {
			continue
		}
		delta := decimal.Zero
		if m.PriceDelta != "" {
			if d, err := decimal.NewFromString(m.PriceDelta); err == nil {
				delta = d
			}
		}
		line.Modifiers = append(line.Modifiers, Modifier{Name: name, PriceDelta: delta})
	}

	return line, nil
}

// ClassifyAll classifies every record, dropping malformed ones with a log entry.
func ClassifyAll(raws []RawLine, logger apt.Logger) []PrepLine {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	lines := make([]PrepLine, 0, len(raws))
	for _, raw := range raws {
		line, err := Classify(raw)
		if err != nil {
			logger.Info("⚠️  dropping malformed ticket line", "line_id", raw.ID, "error", err)
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
