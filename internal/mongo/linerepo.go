package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/kds/internal/kds"
	"github.com/appetiteclub/kds/pkg/enums/prepstatus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// LineRepo reads and conditionally updates ticket lines.
type LineRepo struct {
	store *Store
	now   func() time.Time
}

func NewLineRepo(store *Store) *LineRepo {
	return &LineRepo{store: store, now: time.Now}
}

func (r *LineRepo) FindByID(ctx context.Context, id kds.LineID) (*kds.RawLine, error) {
	var line kds.RawLine
	err := r.store.collection(kds.LinesCollection).FindOne(ctx, bson.M{"_id": id.String()}).Decode(&line)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot find line: %w", err)
	}
	return &line, nil
}

func (r *LineRepo) ListByTickets(ctx context.Context, ticketIDs []kds.TicketID) ([]kds.RawLine, error) {
	if len(ticketIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(ticketIDs))
	for _, id := range ticketIDs {
		ids = append(ids, id.String())
	}
	return r.find(ctx, bson.M{"ticket_id": bson.M{"$in": ids}})
}

func (r *LineRepo) ListByCourse(ctx context.Context, ticketID kds.TicketID, course int) ([]kds.RawLine, error) {
	return r.find(ctx, courseFilter(ticketID, course))
}

func (r *LineRepo) UpdateStatus(ctx context.Context, update kds.StatusUpdate) (bool, error) {
	set := bson.M{
		"prep_status": update.To,
		"updated_at":  r.now().UTC(),
	}
	if update.StartedAt != nil {
		set["started_at"] = *update.StartedAt
	}
	if update.ReadyAt != nil {
		set["ready_at"] = *update.ReadyAt
	}
	if update.ServedAt != nil {
		set["served_at"] = *update.ServedAt
	}

	result, err := r.store.collection(kds.LinesCollection).UpdateOne(ctx, statusFilter(update), bson.M{"$set": set})
	if err != nil {
		return false, fmt.Errorf("cannot update line status: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *LineRepo) find(ctx context.Context, query bson.M) ([]kds.RawLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sent_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.store.collection(kds.LinesCollection).Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot find lines: %w", err)
	}
	defer cursor.Close(ctx)

	var lines []kds.RawLine
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, fmt.Errorf("cannot decode lines: %w", err)
	}
	return lines, nil
}

// statusFilter matches the line only while its stored status is one of
// update.From. Records without a known status read as pending.
func statusFilter(update kds.StatusUpdate) bson.M {
	allowed := bson.M{"prep_status": bson.M{"$in": update.From}}

	pending := false
	for _, code := range update.From {
		if code == prepstatus.Statuses.Pending.Code() {
			pending = true
		}
	}
	if !pending {
		return bson.M{"_id": update.LineID.String(), "prep_status": allowed["prep_status"]}
	}

	known := make([]string, 0, len(prepstatus.All))
	for _, s := range prepstatus.All {
		known = append(known, s.Code())
	}
	return bson.M{
		"_id": update.LineID.String(),
		"$or": bson.A{
			allowed,
			bson.M{"prep_status": bson.M{"$nin": known}},
		},
	}
}

// courseFilter matches a course of a ticket. Lines stored without a valid
// course belong to course 1.
func courseFilter(ticketID kds.TicketID, course int) bson.M {
	if course > 1 {
		return bson.M{"ticket_id": ticketID.String(), "course": course}
	}
	return bson.M{
		"ticket_id": ticketID.String(),
		"$or": bson.A{
			bson.M{"course": bson.M{"$lte": 1}},
			bson.M{"course": bson.M{"$exists": false}},
		},
	}
}
