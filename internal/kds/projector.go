package kds

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/pkg/enums/station"
)

const defaultTickInterval = time.Minute

// Snapshot is the full store state the boards are derived from.
type Snapshot struct {
	Tickets  []TicketInfo
	Lines    []PrepLine
	Marches  MarchSet
	Monitors []Monitor
	LoadedAt time.Time
}

// View is everything derived from one snapshot.
type View struct {
	Snapshot Snapshot
	Active   map[string]Board
	History  map[string]Board
	Tables   []TableStatus
}

// Derive computes every monitor board and table status from s.
func Derive(s Snapshot, now time.Time) View {
	tickets := make(map[TicketID]TicketInfo, len(s.Tickets))
	for _, t := range s.Tickets {
		tickets[t.TicketID] = t
	}

	view := View{
		Snapshot: s,
		Active:   make(map[string]Board, len(s.Monitors)),
		History:  make(map[string]Board, len(s.Monitors)),
		Tables:   AggregateTables(s.Tickets, s.Lines, now),
	}
	for _, m := range s.Monitors {
		view.Active[m.ID] = GroupBoard(s.Lines, tickets, s.Marches, m, BoardActive)
		view.History[m.ID] = GroupBoard(s.Lines, tickets, s.Marches, m, BoardHistory)
	}
	return view
}

// Broadcaster pushes derived state to connected displays.
type Broadcaster interface {
	BroadcastBoard(board Board)
	BroadcastTables(tables []TableStatus)
}

// ProjectorDeps groups the collaborators of a Projector.
type ProjectorDeps struct {
	Lines        LineRepository
	Courses      CourseRepository
	Monitors     MonitorRepository
	Tickets      TicketRepository
	Tracker      *ReadinessTracker
	Broadcasters []Broadcaster
	TickInterval time.Duration
	Logger       apt.Logger
}

// Projector holds the latest derived view. Every change notification triggers
// a full Reload; a reload that finishes after a newer one has been applied is
// discarded.
type Projector struct {
	deps   ProjectorDeps
	logger apt.Logger
	now    func() time.Time

	generation atomic.Uint64

	mu       sync.RWMutex
	view     View
	applied  uint64
	revision uint64
	loaded   bool

	stop chan struct{}
	done chan struct{}
}

func NewProjector(deps ProjectorDeps) *Projector {
	logger := deps.Logger
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if deps.TickInterval <= 0 {
		deps.TickInterval = defaultTickInterval
	}
	if deps.Tracker == nil {
		deps.Tracker = NewReadinessTracker(nil, logger)
	}
	return &Projector{
		deps:   deps,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		view:   Derive(Snapshot{}, time.Now().UTC()),
	}
}

// AddBroadcaster registers a broadcaster before Start.
func (p *Projector) AddBroadcaster(b Broadcaster) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deps.Broadcasters = append(p.deps.Broadcasters, b)
}

// Load reads the full snapshot from the store.
func (p *Projector) Load(ctx context.Context) (Snapshot, error) {
	tickets, err := p.deps.Tickets.ListOpen(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cannot list open tickets: %w", err)
	}

	ids := make([]TicketID, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.TicketID)
	}

	var raws []RawLine
	marches := MarchSet{}
	if len(ids) > 0 {
		raws, err = p.deps.Lines.ListByTickets(ctx, ids)
		if err != nil {
			return Snapshot{}, fmt.Errorf("cannot list ticket lines: %w", err)
		}
		marches, err = p.deps.Courses.ListMarches(ctx, ids)
		if err != nil {
			return Snapshot{}, fmt.Errorf("cannot list course marches: %w", err)
		}
	}

	monitors, err := p.deps.Monitors.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cannot list monitors: %w", err)
	}

	return Snapshot{
		Tickets:  tickets,
		Lines:    ClassifyAll(raws, p.logger),
		Marches:  marches,
		Monitors: monitors,
		LoadedAt: p.now(),
	}, nil
}

// Reload loads a fresh snapshot and publishes the derived view.
func (p *Projector) Reload(ctx context.Context) error {
	gen := p.generation.Add(1)

	snapshot, err := p.Load(ctx)
	if err != nil {
		return err
	}
	view := Derive(snapshot, p.now())

	p.mu.Lock()
	if gen < p.applied {
		p.mu.Unlock()
		p.logger.Debug("discarding superseded reload", "generation", gen)
		return nil
	}
	p.view = view
	p.applied = gen
	p.loaded = true
	p.revision++
	rev := p.revision
	broadcasters := append([]Broadcaster(nil), p.deps.Broadcasters...)
	p.mu.Unlock()

	p.deps.Tracker.ObserveRevision(ctx, rev, view.Tables, snapshot.LoadedAt)
	p.publish(broadcasters, view)
	return nil
}

// Tick recomputes table statuses so elapsed minutes advance between reloads.
func (p *Projector) Tick(ctx context.Context) {
	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return
	}
	now := p.now()
	p.view.Tables = AggregateTables(p.view.Snapshot.Tickets, p.view.Snapshot.Lines, now)
	tables := p.view.Tables
	p.revision++
	rev := p.revision
	broadcasters := append([]Broadcaster(nil), p.deps.Broadcasters...)
	p.mu.Unlock()

	p.deps.Tracker.ObserveRevision(ctx, rev, tables, now)
	for _, b := range broadcasters {
		b.BroadcastTables(tables)
	}
}

func (p *Projector) publish(broadcasters []Broadcaster, view View) {
	for _, b := range broadcasters {
		for _, m := range view.Snapshot.Monitors {
			b.BroadcastBoard(view.Active[m.ID])
		}
		b.BroadcastTables(view.Tables)
	}
}

// Monitors returns the configured monitors.
func (p *Projector) Monitors() []Monitor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Monitor(nil), p.view.Snapshot.Monitors...)
}

// Monitor returns the monitor with the given id.
func (p *Projector) Monitor(id string) (Monitor, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, m := range p.view.Snapshot.Monitors {
		if m.ID == id {
			return m, nil
		}
	}
	return Monitor{}, fmt.Errorf("monitor %q: %w", id, ErrMonitorNotFound)
}

// Board returns the current board of a monitor.
func (p *Projector) Board(monitorID string, kind BoardKind) (Board, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	boards := p.view.Active
	if kind == BoardHistory {
		boards = p.view.History
	}
	board, ok := boards[monitorID]
	if !ok {
		return Board{}, fmt.Errorf("monitor %q: %w", monitorID, ErrMonitorNotFound)
	}
	return board, nil
}

// Tables returns the current table statuses.
func (p *Projector) Tables() []TableStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]TableStatus(nil), p.view.Tables...)
}

// TicketLines returns the lines of a ticket routed to st, in course then
// sent order, together with the ticket's table mapping.
func (p *Projector) TicketLines(ticketID TicketID, st station.Station) (TicketInfo, []PrepLine, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var info TicketInfo
	found := false
	for _, t := range p.view.Snapshot.Tickets {
		if t.TicketID == ticketID {
			info = t
			found = true
			break
		}
	}
	if !found {
		return TicketInfo{}, nil, fmt.Errorf("ticket %s: %w", ticketID, ErrTicketNotFound)
	}

	var lines []PrepLine
	for _, l := range p.view.Snapshot.Lines {
		if l.TicketID == ticketID && l.Station == st {
			lines = append(lines, l)
		}
	}
	sortLines(lines)
	sortByCourse(lines)
	return info, lines, nil
}

// Start performs the initial reload and starts the elapsed-time ticker.
func (p *Projector) Start(ctx context.Context) error {
	if err := p.Reload(ctx); err != nil {
		p.logger.Error("initial reload failed, boards start empty", "error", err)
	}

	p.stop = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stop, p.done)
	return nil
}

func (p *Projector) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(p.deps.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			p.Tick(context.Background())
		}
	}
}

func (p *Projector) Stop(ctx context.Context) error {
	if p.stop == nil {
		return nil
	}
	close(p.stop)
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	p.stop = nil
	return nil
}
