package kds

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/kds/internal/ticket"
	"github.com/appetiteclub/kds/pkg/enums/station"
)

// TicketPrinter hands a formatted ticket to the print-delivery service and
// returns the job id.
type TicketPrinter interface {
	Print(ctx context.Context, locationID string, st station.Station, t ticket.Ticket) (string, error)
}

// BuildTicket converts one ticket's station lines into a printable ticket.
func BuildTicket(info TicketInfo, st station.Station, lines []PrepLine, at time.Time) ticket.Ticket {
	t := ticket.Ticket{
		Header: ticket.Header{
			Station:    st.Label(),
			TableName:  info.TableName,
			ServerName: info.ServerName,
			TicketID:   info.TicketID.String(),
			PrintedAt:  at,
		},
		Lines: make([]ticket.Line, 0, len(lines)),
	}
	for _, l := range lines {
		mods := make([]string, 0, len(l.Modifiers))
		for _, m := range l.Modifiers {
			mods = append(mods, m.Name)
		}
		t.Lines = append(t.Lines, ticket.Line{
			Quantity:  l.Quantity,
			ItemName:  l.ItemName,
			Course:    l.Course,
			Modifiers: mods,
			Notes:     l.Notes,
			IsRush:    l.IsRush,
		})
	}
	return t
}

// Printout builds the ticket a station prints for ticketID. When lineIDs is
// not empty only those lines are included.
func (p *Projector) Printout(ticketID TicketID, st station.Station, lineIDs []LineID, at time.Time) (TicketInfo, ticket.Ticket, error) {
	info, lines, err := p.TicketLines(ticketID, st)
	if err != nil {
		return TicketInfo{}, ticket.Ticket{}, err
	}

	if len(lineIDs) > 0 {
		wanted := make(map[LineID]bool, len(lineIDs))
		for _, id := range lineIDs {
			wanted[id] = true
		}
		filtered := lines[:0:0]
		for _, l := range lines {
			if wanted[l.ID] {
				filtered = append(filtered, l)
			}
		}
		lines = filtered
	}

	if len(lines) == 0 {
		return info, ticket.Ticket{}, fmt.Errorf("ticket %s has no %s lines: %w", ticketID, st.Code(), ErrLineNotFound)
	}
	return info, BuildTicket(info, st, lines, at), nil
}
