package mongo

import (
	"context"
	"fmt"

	"github.com/appetiteclub/kds/internal/kds"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MonitorRepo reads the screen configurations.
type MonitorRepo struct {
	store *Store
}

func NewMonitorRepo(store *Store) *MonitorRepo {
	return &MonitorRepo{store: store}
}

func (r *MonitorRepo) List(ctx context.Context) ([]kds.Monitor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.store.collection(kds.MonitorsCollection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("cannot find monitors: %w", err)
	}
	defer cursor.Close(ctx)

	var records []kds.MonitorRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("cannot decode monitors: %w", err)
	}

	monitors := make([]kds.Monitor, 0, len(records))
	for _, rec := range records {
		monitors = append(monitors, kds.MonitorFromRecord(rec))
	}
	return monitors, nil
}
