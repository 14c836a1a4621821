package kds

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/appetiteclub/kds/internal/ticket"
	"github.com/appetiteclub/kds/pkg/enums/station"
	"github.com/google/uuid"
)

// MockLineRepository is a test mock for LineRepository
type MockLineRepository struct {
	mu               sync.Mutex
	lines            map[string]RawLine
	FindByIDFunc     func(ctx context.Context, id LineID) (*RawLine, error)
	ListFunc         func(ctx context.Context, ticketIDs []TicketID) ([]RawLine, error)
	UpdateStatusFunc func(ctx context.Context, update StatusUpdate) (bool, error)
	Updates          []StatusUpdate
}

func NewMockLineRepository(lines ...RawLine) *MockLineRepository {
	m := &MockLineRepository{lines: make(map[string]RawLine)}
	for _, l := range lines {
		m.lines[l.ID] = l
	}
	return m
}

func (m *MockLineRepository) AddLine(l RawLine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[l.ID] = l
}

func (m *MockLineRepository) Get(id string) RawLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lines[id]
}

func (m *MockLineRepository) FindByID(ctx context.Context, id LineID) (*RawLine, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lines[id.String()]
	if !ok {
		return nil, ErrLineNotFound
	}
	return &l, nil
}

func (m *MockLineRepository) ListByTickets(ctx context.Context, ticketIDs []TicketID) ([]RawLine, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, ticketIDs)
	}
	wanted := make(map[string]bool, len(ticketIDs))
	for _, id := range ticketIDs {
		wanted[id.String()] = true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RawLine
	for _, l := range m.lines {
		if wanted[l.TicketID] {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockLineRepository) ListByCourse(ctx context.Context, ticketID TicketID, course int) ([]RawLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []RawLine
	for _, l := range m.lines {
		c := l.Course
		if c < 1 {
			c = 1
		}
		if l.TicketID == ticketID.String() && c == course {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockLineRepository) UpdateStatus(ctx context.Context, update StatusUpdate) (bool, error) {
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, update)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.lines[update.LineID.String()]
	if !ok {
		return false, ErrLineNotFound
	}
	current := l.PrepStatus
	if current == "" {
		current = "pending"
	}
	matched := false
	for _, from := range update.From {
		if from == current {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	l.PrepStatus = update.To
	l.StartedAt = update.StartedAt
	l.ReadyAt = update.ReadyAt
	l.ServedAt = update.ServedAt
	m.lines[l.ID] = l
	m.Updates = append(m.Updates, update)
	return true, nil
}

// MockCourseRepository is a test mock for CourseRepository
type MockCourseRepository struct {
	mu             sync.Mutex
	marches        MarchSet
	SetMarchedFunc func(ctx context.Context, ticketID TicketID, course int, marched bool) error
}

func NewMockCourseRepository() *MockCourseRepository {
	return &MockCourseRepository{marches: make(MarchSet)}
}

func (m *MockCourseRepository) ListMarches(ctx context.Context, ticketIDs []TicketID) (MarchSet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(MarchSet)
	for _, id := range ticketIDs {
		for k, v := range m.marches {
			if k.TicketID == id && v {
				out[k] = true
			}
		}
	}
	return out, nil
}

func (m *MockCourseRepository) SetMarched(ctx context.Context, ticketID TicketID, course int, marched bool) error {
	if m.SetMarchedFunc != nil {
		return m.SetMarchedFunc(ctx, ticketID, course, marched)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marches[CourseKey{TicketID: ticketID, Course: course}] = marched
	return nil
}

func (m *MockCourseRepository) IsMarched(ticketID TicketID, course int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.marches.IsMarched(ticketID, course)
}

// MockMonitorRepository is a test mock for MonitorRepository
type MockMonitorRepository struct {
	Monitors []Monitor
	Err      error
}

func (m *MockMonitorRepository) List(ctx context.Context) ([]Monitor, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Monitors, nil
}

// MockTicketRepository is a test mock for TicketRepository
type MockTicketRepository struct {
	Tickets      []TicketInfo
	Err          error
	ListOpenFunc func(ctx context.Context) ([]TicketInfo, error)
}

func (m *MockTicketRepository) ListOpen(ctx context.Context) ([]TicketInfo, error) {
	if m.ListOpenFunc != nil {
		return m.ListOpenFunc(ctx)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tickets, nil
}

type PublishedEvent struct {
	Topic string
	Data  []byte
}

type MockPublisher struct {
	mu     sync.Mutex
	Events []PublishedEvent
	Err    error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Events = append(m.Events, PublishedEvent{Topic: topic, Data: data})
	return nil
}

func (m *MockPublisher) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Events)
}

type MockBroadcaster struct {
	mu     sync.Mutex
	Boards []Board
	Tables [][]TableStatus
}

func (m *MockBroadcaster) BroadcastBoard(board Board) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Boards = append(m.Boards, board)
}

func (m *MockBroadcaster) BroadcastTables(tables []TableStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tables = append(m.Tables, tables)
}

type MockNotifier struct {
	mu    sync.Mutex
	Ready []TableReady
	Err   error
}

func (m *MockNotifier) NotifyTableReady(ctx context.Context, ready TableReady) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Ready = append(m.Ready, ready)
	return m.Err
}

type MockReadyStore struct {
	Memory  ReadyMemory
	LoadErr error
	Saves   int
}

func (m *MockReadyStore) Load(ctx context.Context) (ReadyMemory, error) {
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	return m.Memory, nil
}

func (m *MockReadyStore) Save(ctx context.Context, memory ReadyMemory) error {
	m.Saves++
	m.Memory = memory
	return nil
}

// BlockingReadyStore holds the first Save until Release is closed.
type BlockingReadyStore struct {
	Entered chan struct{}
	Release chan struct{}
	once    sync.Once
}

func NewBlockingReadyStore() *BlockingReadyStore {
	return &BlockingReadyStore{Entered: make(chan struct{}), Release: make(chan struct{})}
}

func (m *BlockingReadyStore) Load(ctx context.Context) (ReadyMemory, error) {
	return nil, nil
}

func (m *BlockingReadyStore) Save(ctx context.Context, memory ReadyMemory) error {
	first := false
	m.once.Do(func() { first = true })
	if first {
		close(m.Entered)
		<-m.Release
	}
	return nil
}

type MockPrinter struct {
	Tickets  []ticket.Ticket
	Location string
	Station  station.Station
	Err      error
}

func (m *MockPrinter) Print(ctx context.Context, locationID string, st station.Station, t ticket.Ticket) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Tickets = append(m.Tickets, t)
	m.Location = locationID
	m.Station = st
	return "job-1", nil
}

type MockStream struct {
	MonitorID string
}

func (m *MockStream) ServeMonitor(w http.ResponseWriter, r *http.Request, monitorID string) {
	m.MonitorID = monitorID
	w.WriteHeader(http.StatusSwitchingProtocols)
}

// fixture holds the ids of a small two-table dining room.
type fixture struct {
	now     time.Time
	ticket1 TicketID
	ticket2 TicketID
	table1  TableID
	table2  TableID
}

func newFixture() fixture {
	return fixture{
		now:     time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC),
		ticket1: uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		ticket2: uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		table1:  uuid.MustParse("aaaaaaaa-aaaa-aaaa-aaaa-aaaaaaaaaaaa"),
		table2:  uuid.MustParse("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb"),
	}
}

func (f fixture) tickets() []TicketInfo {
	return []TicketInfo{
		{TicketID: f.ticket1, TableID: f.table1, TableName: "T1", ServerName: "Ana", LocationID: "main"},
		{TicketID: f.ticket2, TableID: f.table2, TableName: "T2", ServerName: "Luis", LocationID: "main"},
	}
}

func (f fixture) minutesAgo(n int) *time.Time {
	t := f.now.Add(-time.Duration(n) * time.Minute)
	return &t
}

func rawLine(id string, ticketID TicketID, item, dest, status string, course int, sent *time.Time) RawLine {
	return RawLine{
		ID:          id,
		TicketID:    ticketID.String(),
		ItemName:    item,
		Quantity:    1,
		Destination: dest,
		Course:      course,
		PrepStatus:  status,
		SentAt:      sent,
	}
}

func lineID(n int) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte{byte(n)}).String()
}
