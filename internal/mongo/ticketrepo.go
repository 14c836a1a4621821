package mongo

import (
	"context"
	"fmt"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/kds"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// OpenStatus marks tickets that still belong to a seated table.
const OpenStatus = "open"

// TicketRepo reads the ticket-to-table mapping of open tickets.
type TicketRepo struct {
	store  *Store
	logger apt.Logger
}

func NewTicketRepo(store *Store, logger apt.Logger) *TicketRepo {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &TicketRepo{store: store, logger: logger}
}

func (r *TicketRepo) ListOpen(ctx context.Context) ([]kds.TicketInfo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "opened_at", Value: 1}})
	cursor, err := r.store.collection(kds.TicketsCollection).Find(ctx, bson.M{"status": OpenStatus}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot find open tickets: %w", err)
	}
	defer cursor.Close(ctx)

	var records []kds.OpenTicketRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("cannot decode open tickets: %w", err)
	}

	tickets := make([]kds.TicketInfo, 0, len(records))
	for _, rec := range records {
		info, err := ticketInfo(rec)
		if err != nil {
			r.logger.Error("skipping unmapped ticket", "ticket_id", rec.ID, "error", err)
			continue
		}
		tickets = append(tickets, info)
	}
	return tickets, nil
}

func ticketInfo(rec kds.OpenTicketRecord) (kds.TicketInfo, error) {
	ticketID, err := uuid.Parse(rec.ID)
	if err != nil {
		return kds.TicketInfo{}, fmt.Errorf("invalid ticket id: %w", err)
	}
	tableID, err := uuid.Parse(rec.TableID)
	if err != nil {
		return kds.TicketInfo{}, fmt.Errorf("invalid table id: %w", err)
	}
	return kds.TicketInfo{
		TicketID:   ticketID,
		TableID:    tableID,
		TableName:  rec.TableName,
		ServerName: rec.ServerName,
		LocationID: rec.LocationID,
	}, nil
}
