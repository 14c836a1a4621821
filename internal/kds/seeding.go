package kds

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/seed"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store collection names.
const (
	LinesCollection    = "ticket_lines"
	TicketsCollection  = "open_tickets"
	MarchesCollection  = "course_marches"
	MonitorsCollection = "monitors"
)

const (
	demoSeedApplication = "kds_demo"
	seedsCollection     = "_seeds"
)

// OpenTicketRecord is the stored ticket-to-table mapping.
type OpenTicketRecord struct {
	ID         string    `bson:"_id"`
	TableID    string    `bson:"table_id"`
	TableName  string    `bson:"table_name"`
	ServerName string    `bson:"server_name,omitempty"`
	LocationID string    `bson:"location_id,omitempty"`
	Status     string    `bson:"status"`
	OpenedAt   time.Time `bson:"opened_at"`
}

// ApplyDemoSeeds seeds demo monitors, tickets and lines when seeding.demo is enabled.
func ApplyDemoSeeds(ctx context.Context, config *apt.Config, db *mongo.Database, logger apt.Logger) error {
	if config == nil {
		return nil
	}
	enabled, _ := config.GetString("seeding.demo")
	if enabled != "true" {
		return nil
	}
	return SeedDemo(ctx, db, logger)
}

// SeedDemo applies the demo seeds through the seed tracker. Seeds already
// applied are skipped.
func SeedDemo(ctx context.Context, db *mongo.Database, logger apt.Logger) error {
	if db == nil {
		return fmt.Errorf("database is required for demo seeding")
	}
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	logger.Info("Applying demo KDS seeds")
	tracker := seed.NewMongoTracker(db)
	if err := seed.Apply(ctx, tracker, DemoSeeds(db), demoSeedApplication); err != nil {
		return fmt.Errorf("demo seed failed: %w", err)
	}
	logger.Info("Demo KDS seeds applied successfully")
	return nil
}

func DemoSeeds(db *mongo.Database) []seed.Seed {
	return []seed.Seed{
		{
			ID:          "2026-10-01_kds_demo_monitors_v1",
			Description: "Create kitchen, bar and expo monitors",
			Run: func(ctx context.Context) error {
				return seedDemoMonitors(ctx, db)
			},
		},
		{
			ID:          "2026-10-01_kds_demo_tickets_v1",
			Description: "Open demo tickets on three tables",
			Run: func(ctx context.Context) error {
				return seedDemoTickets(ctx, db, time.Now().UTC())
			},
		},
		{
			ID:          "2026-10-01_kds_demo_lines_v1",
			Description: "Send demo lines to the stations",
			Run: func(ctx context.Context) error {
				return seedDemoLines(ctx, db, time.Now().UTC())
			},
		},
	}
}

// ClearDemo removes the demo documents and their seed records so the next
// SeedDemo recreates them.
func ClearDemo(ctx context.Context, db *mongo.Database, logger apt.Logger) error {
	if db == nil {
		return fmt.Errorf("database is required to clear demo data")
	}
	deleteMany := func(ctx context.Context, collection string, filter bson.M) (int64, error) {
		res, err := db.Collection(collection).DeleteMany(ctx, filter)
		if err != nil {
			return 0, err
		}
		return res.DeletedCount, nil
	}
	return clearDemo(ctx, deleteMany, logger)
}

// deleteManyFunc removes the documents of collection matching filter.
type deleteManyFunc func(ctx context.Context, collection string, filter bson.M) (int64, error)

func clearDemo(ctx context.Context, deleteMany deleteManyFunc, logger apt.Logger) error {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}

	ticketIDs := demoIDs("ticket-", 3)
	lineIDs := demoIDs("line-", 7)
	targets := []struct {
		collection string
		filter     bson.M
	}{
		{LinesCollection, bson.M{"_id": bson.M{"$in": lineIDs}}},
		{TicketsCollection, bson.M{"_id": bson.M{"$in": ticketIDs}}},
		{MarchesCollection, bson.M{"ticket_id": bson.M{"$in": ticketIDs}}},
		{MonitorsCollection, bson.M{"_id": bson.M{"$in": []string{"kitchen-main", "bar", "expo"}}}},
	}
	for _, target := range targets {
		n, err := deleteMany(ctx, target.collection, target.filter)
		if err != nil {
			return fmt.Errorf("cannot clear demo %s: %w", target.collection, err)
		}
		logger.Info("Cleared demo documents", "collection", target.collection, "count", n)
	}

	seeds := DemoSeeds(nil)
	seedIDs := make([]string, 0, len(seeds))
	for _, s := range seeds {
		seedIDs = append(seedIDs, s.ID)
	}
	if _, err := deleteMany(ctx, seedsCollection, bson.M{"_id": bson.M{"$in": seedIDs}}); err != nil {
		return fmt.Errorf("cannot reset demo seed records: %w", err)
	}
	return nil
}

func demoIDs(prefix string, n int) []string {
	ids := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		ids = append(ids, demoID(fmt.Sprintf("%s%d", prefix, i)))
	}
	return ids
}

func demoID(name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("kds-demo/"+name)).String()
}

func seedDemoMonitors(ctx context.Context, db *mongo.Database) error {
	monitors := []MonitorRecord{
		{
			ID: "kitchen-main", Name: "Kitchen", ViewMode: "classic", RowsCount: 1, NewestSide: NewestRight,
			ShowStartBtn: true, ShowFinishBtn: true, StationFilter: []string{"kitchen", "prep"},
		},
		{
			ID: "bar", Name: "Bar", ViewMode: "mixed", RowsCount: 1, NewestSide: NewestLeft,
			ShowFinishBtn: true, StationFilter: []string{"bar"},
		},
		{
			ID: "expo", Name: "Expo", ViewMode: "rows_interactive", RowsCount: 2, NewestSide: NewestRight,
			ShowServeBtn: true,
		},
	}

	coll := db.Collection(MonitorsCollection)
	for _, m := range monitors {
		if err := upsertDemo(ctx, coll, m.ID, m); err != nil {
			return fmt.Errorf("cannot create demo monitor %s: %w", m.ID, err)
		}
	}
	return nil
}

func seedDemoTickets(ctx context.Context, db *mongo.Database, now time.Time) error {
	tickets := []OpenTicketRecord{
		{ID: demoID("ticket-1"), TableID: demoID("table-1"), TableName: "T1", ServerName: "Ana", LocationID: "main"},
		{ID: demoID("ticket-2"), TableID: demoID("table-2"), TableName: "T2", ServerName: "Luis", LocationID: "main"},
		{ID: demoID("ticket-3"), TableID: demoID("table-3"), TableName: "Terraza 1", ServerName: "Ana", LocationID: "main"},
	}

	coll := db.Collection(TicketsCollection)
	for _, t := range tickets {
		t.Status = "open"
		t.OpenedAt = now.Add(-20 * time.Minute)
		if err := upsertDemo(ctx, coll, t.ID, t); err != nil {
			return fmt.Errorf("cannot create demo ticket %s: %w", t.TableName, err)
		}
	}
	return nil
}

func seedDemoLines(ctx context.Context, db *mongo.Database, now time.Time) error {
	at := func(minutesAgo int) *time.Time {
		t := now.Add(-time.Duration(minutesAgo) * time.Minute)
		return &t
	}
	rush := true

	lines := []RawLine{
		{ID: demoID("line-1"), TicketID: demoID("ticket-1"), ItemName: "Hamburguesa Clásica", Quantity: 2, Destination: "kitchen", Course: 2, PrepStatus: "pending", SentAt: at(12),
			Modifiers: []RawModifier{{Name: "Extra queso", PriceDelta: "1.50"}, {Name: "Sin cebolla"}}},
		{ID: demoID("line-2"), TicketID: demoID("ticket-1"), ItemName: "Ensalada César", Quantity: 1, Destination: "prep", Course: 1, PrepStatus: "preparing", SentAt: at(12), StartedAt: at(8)},
		{ID: demoID("line-3"), TicketID: demoID("ticket-1"), ItemName: "Limonada", Quantity: 2, Destination: "bar", Course: 1, PrepStatus: "ready", SentAt: at(12), StartedAt: at(10), ReadyAt: at(6)},
		{ID: demoID("line-4"), TicketID: demoID("ticket-2"), ItemName: "Pizza Margarita", Quantity: 1, Destination: "kitchen", Course: 1, PrepStatus: "pending", SentAt: at(5), IsRush: &rush,
			Notes: "Alergia: frutos secos"},
		{ID: demoID("line-5"), TicketID: demoID("ticket-2"), ItemName: "Mojito", Quantity: 1, Destination: "bar", Course: 1, PrepStatus: "pending", SentAt: at(5),
			Modifiers: []RawModifier{{Name: "Cambiar ron por ron añejo", PriceDelta: "2.00"}}},
		{ID: demoID("line-6"), TicketID: demoID("ticket-3"), ItemName: "Tacos al pastor", Quantity: 3, Destination: "kitchen", Course: 1, PrepStatus: "ready", SentAt: at(18), StartedAt: at(15), ReadyAt: at(2)},
		{ID: demoID("line-7"), TicketID: demoID("ticket-3"), ItemName: "Agua mineral", Quantity: 1, Destination: "bar", Course: 1, PrepStatus: "served", SentAt: at(18), ReadyAt: at(16), ServedAt: at(15)},
	}

	coll := db.Collection(LinesCollection)
	for _, l := range lines {
		l.UpdatedAt = now
		if err := upsertDemo(ctx, coll, l.ID, l); err != nil {
			return fmt.Errorf("cannot create demo line %s: %w", l.ItemName, err)
		}
	}

	marches := db.Collection(MarchesCollection)
	march := bson.M{
		"_id":        demoID("ticket-1") + ":1",
		"ticket_id":  demoID("ticket-1"),
		"course":     1,
		"is_marched": true,
		"updated_at": now,
	}
	if err := upsertDemo(ctx, marches, march["_id"], march); err != nil {
		return fmt.Errorf("cannot create demo course march: %w", err)
	}
	return nil
}

func upsertDemo(ctx context.Context, coll *mongo.Collection, id interface{}, doc interface{}) error {
	_, err := coll.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": doc},
		options.Update().SetUpsert(true),
	)
	return err
}
