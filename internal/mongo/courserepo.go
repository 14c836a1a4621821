package mongo

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/kds/internal/kds"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type marchRecord struct {
	ID        string    `bson:"_id"`
	TicketID  string    `bson:"ticket_id"`
	Course    int       `bson:"course"`
	IsMarched bool      `bson:"is_marched"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// CourseRepo persists course fire flags, one document per (ticket, course).
type CourseRepo struct {
	store *Store
	now   func() time.Time
}

func NewCourseRepo(store *Store) *CourseRepo {
	return &CourseRepo{store: store, now: time.Now}
}

func (r *CourseRepo) ListMarches(ctx context.Context, ticketIDs []kds.TicketID) (kds.MarchSet, error) {
	marches := make(kds.MarchSet)
	if len(ticketIDs) == 0 {
		return marches, nil
	}

	ids := make([]string, 0, len(ticketIDs))
	for _, id := range ticketIDs {
		ids = append(ids, id.String())
	}

	cursor, err := r.store.collection(kds.MarchesCollection).Find(ctx, bson.M{
		"ticket_id":  bson.M{"$in": ids},
		"is_marched": true,
	})
	if err != nil {
		return nil, fmt.Errorf("cannot find course marches: %w", err)
	}
	defer cursor.Close(ctx)

	var records []marchRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("cannot decode course marches: %w", err)
	}

	for _, rec := range records {
		ticketID, err := uuid.Parse(rec.TicketID)
		if err != nil {
			continue
		}
		marches[kds.CourseKey{TicketID: ticketID, Course: rec.Course}] = true
	}
	return marches, nil
}

func (r *CourseRepo) SetMarched(ctx context.Context, ticketID kds.TicketID, course int, marched bool) error {
	rec := marchRecord{
		ID:        marchID(ticketID, course),
		TicketID:  ticketID.String(),
		Course:    course,
		IsMarched: marched,
		UpdatedAt: r.now().UTC(),
	}

	_, err := r.store.collection(kds.MarchesCollection).ReplaceOne(
		ctx,
		bson.M{"_id": rec.ID},
		rec,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("cannot set course march: %w", err)
	}
	return nil
}

func marchID(ticketID kds.TicketID, course int) string {
	return fmt.Sprintf("%s:%d", ticketID, course)
}
