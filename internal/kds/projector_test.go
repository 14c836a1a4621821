package kds

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/pkg/enums/prepstatus"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/appetiteclub/kds/pkg/enums/tablestatus"
	"github.com/appetiteclub/kds/pkg/enums/viewmode"
	"github.com/google/uuid"
)

type projectorFixture struct {
	fixture
	lines       *MockLineRepository
	courses     *MockCourseRepository
	tickets     *MockTicketRepository
	monitors    *MockMonitorRepository
	broadcaster *MockBroadcaster
	notifier    *MockNotifier
	projector   *Projector
}

func newProjectorFixture() *projectorFixture {
	f := newFixture()
	pf := &projectorFixture{
		fixture: f,
		lines: NewMockLineRepository(
			rawLine(lineID(1), f.ticket1, "Burger", "kitchen", "pending", 1, f.minutesAgo(10)),
			rawLine(lineID(2), f.ticket1, "Mojito", "bar", "ready", 1, f.minutesAgo(10)),
			rawLine(lineID(3), f.ticket2, "Pizza", "kitchen", "ready", 1, f.minutesAgo(4)),
			rawLine(lineID(4), f.ticket2, "Soup", "kitchen", "served", 1, f.minutesAgo(30)),
			RawLine{ID: lineID(5), ItemName: "orphan"},
		),
		courses: NewMockCourseRepository(),
		tickets: &MockTicketRepository{Tickets: f.tickets()},
		monitors: &MockMonitorRepository{Monitors: []Monitor{
			{ID: "kitchen", ViewMode: viewmode.Modes.Classic, RowsCount: 1, NewestSide: NewestRight, ShowStartBtn: true, ShowFinishBtn: true,
				StationFilter: []station.Station{station.Stations.Kitchen}},
			{ID: "expo", ViewMode: viewmode.Modes.RowsInteractive, RowsCount: 2, NewestSide: NewestRight, ShowServeBtn: true},
		}},
		broadcaster: &MockBroadcaster{},
		notifier:    &MockNotifier{},
	}

	tracker := NewReadinessTracker(nil, apt.NewNoopLogger(), pf.notifier)
	pf.projector = NewProjector(ProjectorDeps{
		Lines:        pf.lines,
		Courses:      pf.courses,
		Monitors:     pf.monitors,
		Tickets:      pf.tickets,
		Tracker:      tracker,
		Broadcasters: []Broadcaster{pf.broadcaster},
		Logger:       apt.NewNoopLogger(),
	})
	pf.projector.now = func() time.Time { return f.now }
	return pf
}

func TestDerive(t *testing.T) {
	f := newFixture()
	s := Snapshot{
		Tickets: f.tickets(),
		Lines: []PrepLine{
			prep(f, 1, f.ticket1, "Burger", station.Stations.Kitchen, prepstatus.Statuses.Pending, 1, 1, f.minutesAgo(3)),
		},
		Monitors: []Monitor{{ID: "m1", ViewMode: viewmode.Modes.Classic}},
	}

	view := Derive(s, f.now)
	if len(view.Active) != 1 || len(view.History) != 1 {
		t.Fatalf("boards = %d/%d, want 1/1", len(view.Active), len(view.History))
	}
	if len(view.Tables) != 2 {
		t.Errorf("tables = %d, want 2", len(view.Tables))
	}
}

func TestProjectorReload(t *testing.T) {
	pf := newProjectorFixture()

	if err := pf.projector.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	kitchen, err := pf.projector.Board("kitchen", BoardActive)
	if err != nil {
		t.Fatalf("Board() error: %v", err)
	}
	if len(kitchen.Orders) != 2 {
		t.Errorf("kitchen orders = %d, want 2", len(kitchen.Orders))
	}

	history, err := pf.projector.Board("kitchen", BoardHistory)
	if err != nil {
		t.Fatalf("Board(history) error: %v", err)
	}
	if len(history.Orders) != 1 || history.Orders[0].Courses[0].Lines[0].ItemName != "Soup" {
		t.Errorf("history = %+v, want the served soup", history.Orders)
	}

	if _, err := pf.projector.Board("unknown", BoardActive); !errors.Is(err, ErrMonitorNotFound) {
		t.Errorf("Board(unknown) error = %v, want ErrMonitorNotFound", err)
	}

	tables := pf.projector.Tables()
	if len(tables) != 2 {
		t.Fatalf("tables = %d, want 2", len(tables))
	}
	byID := map[TableID]TableStatus{}
	for _, ts := range tables {
		byID[ts.TableID] = ts
	}
	if byID[pf.table1].Status != tablestatus.Statuses.Pending {
		t.Errorf("T1 = %v, want pending", byID[pf.table1].Status)
	}
	if byID[pf.table2].Status != tablestatus.Statuses.Served {
		t.Errorf("T2 = %v, want served", byID[pf.table2].Status)
	}

	if len(pf.broadcaster.Boards) != 2 || len(pf.broadcaster.Tables) != 1 {
		t.Errorf("broadcasts = %d boards %d tables, want 2/1", len(pf.broadcaster.Boards), len(pf.broadcaster.Tables))
	}
}

func TestProjectorReloadNotifiesReadyOnce(t *testing.T) {
	pf := newProjectorFixture()
	ctx := context.Background()

	l := pf.lines.Get(lineID(1))
	l.PrepStatus = "ready"
	pf.lines.AddLine(l)

	for i := 0; i < 3; i++ {
		if err := pf.projector.Reload(ctx); err != nil {
			t.Fatalf("Reload() error: %v", err)
		}
	}
	if len(pf.notifier.Ready) != 1 || pf.notifier.Ready[0].TableID != pf.table1 {
		t.Errorf("notifications = %+v, want one for T1", pf.notifier.Ready)
	}
}

func TestProjectorReloadFailureKeepsView(t *testing.T) {
	pf := newProjectorFixture()
	ctx := context.Background()
	if err := pf.projector.Reload(ctx); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	pf.tickets.Err = errors.New("mongo unavailable")
	if err := pf.projector.Reload(ctx); err == nil {
		t.Fatal("Reload() should fail when the store is unavailable")
	}
	if len(pf.projector.Monitors()) != 2 {
		t.Error("failed reload should keep the last good view")
	}
}

func TestProjectorDiscardsSupersededReload(t *testing.T) {
	pf := newProjectorFixture()
	ctx := context.Background()

	release := make(chan struct{})
	entered := make(chan struct{})
	var calls int
	var mu sync.Mutex
	pf.tickets.ListOpenFunc = func(ctx context.Context) ([]TicketInfo, error) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			close(entered)
			<-release
			return nil, nil
		}
		return pf.fixture.tickets(), nil
	}

	done := make(chan error, 1)
	go func() { done <- pf.projector.Reload(ctx) }()
	<-entered

	if err := pf.projector.Reload(ctx); err != nil {
		t.Fatalf("newer Reload() error: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("older Reload() error: %v", err)
	}

	if len(pf.projector.Tables()) != 2 {
		t.Error("the older, empty snapshot should not replace the newer one")
	}
}

func TestProjectorTick(t *testing.T) {
	pf := newProjectorFixture()
	ctx := context.Background()

	pf.projector.Tick(ctx)
	if len(pf.broadcaster.Tables) != 0 {
		t.Error("tick before the first load should do nothing")
	}

	if err := pf.projector.Reload(ctx); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	pf.projector.now = func() time.Time { return pf.now.Add(5 * time.Minute) }
	pf.projector.Tick(ctx)

	for _, ts := range pf.projector.Tables() {
		if ts.TableID == pf.table1 && ts.ElapsedMinutes != 15 {
			t.Errorf("T1 elapsed = %d, want 15", ts.ElapsedMinutes)
		}
	}
}

func TestProjectorStaleTickDoesNotRefireReady(t *testing.T) {
	pf := newProjectorFixture()
	ctx := context.Background()

	store := NewBlockingReadyStore()
	tracker := NewReadinessTracker(store, apt.NewNoopLogger(), pf.notifier)
	pf.projector.deps.Tracker = tracker

	// T1 turns ready; its memory save holds the tracker.
	l := pf.lines.Get(lineID(1))
	l.PrepStatus = "ready"
	pf.lines.AddLine(l)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pf.projector.Reload(ctx); err != nil {
			t.Errorf("Reload() error: %v", err)
		}
	}()
	<-store.Entered

	// The tick captures the ready tables, then waits on the tracker.
	ticked := make(chan struct{})
	var once sync.Once
	pf.projector.now = func() time.Time {
		once.Do(func() { close(ticked) })
		return pf.now
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		pf.projector.Tick(ctx)
	}()
	<-ticked

	// A newer snapshot puts T1 back to pending.
	pf.lines.AddLine(rawLine(lineID(6), pf.ticket1, "Fries", "kitchen", "pending", 1, pf.minutesAgo(1)))
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := pf.projector.Reload(ctx); err != nil {
			t.Errorf("newer Reload() error: %v", err)
		}
	}()

	deadline := time.Now().Add(2 * time.Second)
	for !tableHasStatus(pf.projector.Tables(), pf.table1, tablestatus.Statuses.Pending) {
		if time.Now().After(deadline) {
			close(store.Release)
			t.Fatal("newer reload was never applied")
		}
		time.Sleep(time.Millisecond)
	}

	close(store.Release)
	wg.Wait()

	if len(pf.notifier.Ready) != 1 {
		t.Errorf("notifications = %d, want 1", len(pf.notifier.Ready))
	}
	if tracker.Memory()[pf.table1] {
		t.Error("T1 memory should follow the newest snapshot (not ready)")
	}
	if tracker.Revision() != 3 {
		t.Errorf("revision = %d, want 3", tracker.Revision())
	}
}

func TestProjectorRevisionsIncrease(t *testing.T) {
	pf := newProjectorFixture()
	ctx := context.Background()
	tracker := pf.projector.deps.Tracker

	l := pf.lines.Get(lineID(1))
	l.PrepStatus = "ready"
	pf.lines.AddLine(l)
	if err := pf.projector.Reload(ctx); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	staleTables := pf.projector.Tables()
	pf.projector.Tick(ctx)

	pf.lines.AddLine(rawLine(lineID(6), pf.ticket1, "Fries", "kitchen", "pending", 1, pf.minutesAgo(1)))
	if err := pf.projector.Reload(ctx); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}
	if tracker.Revision() != 3 {
		t.Fatalf("revision = %d, want 3", tracker.Revision())
	}

	// Tables from the tick arriving after the newer reload are ignored.
	if fired := tracker.ObserveRevision(ctx, 2, staleTables, pf.now); len(fired) != 0 {
		t.Errorf("stale revision fired %d notifications", len(fired))
	}
	if len(pf.notifier.Ready) != 1 {
		t.Errorf("notifications = %d, want 1", len(pf.notifier.Ready))
	}
}

func tableHasStatus(tables []TableStatus, id TableID, status tablestatus.Status) bool {
	for _, ts := range tables {
		if ts.TableID == id {
			return ts.Status == status
		}
	}
	return false
}

func TestProjectorPrintout(t *testing.T) {
	pf := newProjectorFixture()
	if err := pf.projector.Reload(context.Background()); err != nil {
		t.Fatalf("Reload() error: %v", err)
	}

	info, tk, err := pf.projector.Printout(pf.ticket1, station.Stations.Kitchen, nil, pf.now)
	if err != nil {
		t.Fatalf("Printout() error: %v", err)
	}
	if info.TableName != "T1" || tk.Header.TableName != "T1" || len(tk.Lines) != 1 {
		t.Errorf("printout = %+v", tk)
	}

	_, _, err = pf.projector.Printout(pf.ticket1, station.Stations.Prep, nil, pf.now)
	if !errors.Is(err, ErrLineNotFound) {
		t.Errorf("Printout(prep) error = %v, want ErrLineNotFound", err)
	}

	_, _, err = pf.projector.Printout(uuid.New(), station.Stations.Kitchen, nil, pf.now)
	if !errors.Is(err, ErrTicketNotFound) {
		t.Errorf("Printout(unknown) error = %v, want ErrTicketNotFound", err)
	}

	_, _, err = pf.projector.Printout(pf.ticket1, station.Stations.Kitchen, []LineID{uuid.New()}, pf.now)
	if !errors.Is(err, ErrLineNotFound) {
		t.Errorf("Printout(filtered) error = %v, want ErrLineNotFound", err)
	}
}

func TestProjectorStartStop(t *testing.T) {
	pf := newProjectorFixture()
	pf.projector.deps.TickInterval = time.Millisecond

	if err := pf.projector.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if len(pf.projector.Monitors()) != 2 {
		t.Error("Start() should load the initial snapshot")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := pf.projector.Stop(ctx); err != nil {
		t.Errorf("Stop() error: %v", err)
	}
}
