package events

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/kds/internal/kds"
	"github.com/appetiteclub/kds/internal/ticket"
	"github.com/appetiteclub/kds/pkg/enums/station"
)

// MockSubscriber implements events.Subscriber for testing
type MockSubscriber struct {
	Topic         string
	Handler       events.HandlerFunc
	SubscribeFunc func(ctx context.Context, topic string, handler events.HandlerFunc) error
}

func (m *MockSubscriber) Subscribe(ctx context.Context, topic string, handler events.HandlerFunc) error {
	if m.SubscribeFunc != nil {
		return m.SubscribeFunc(ctx, topic, handler)
	}
	m.Topic = topic
	m.Handler = handler
	return nil
}

type printoutCall struct {
	TicketID kds.TicketID
	Station  station.Station
	LineIDs  []kds.LineID
}

// MockProjection implements Projection for testing
type MockProjection struct {
	mu        sync.Mutex
	Reloads   int
	ReloadErr error
	Calls     []printoutCall
	// Tickets keyed by station code; a missing station has no lines.
	Tickets     map[string]ticket.Ticket
	Info        kds.TicketInfo
	PrintoutErr error
}

func (m *MockProjection) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Reloads++
	return m.ReloadErr
}

func (m *MockProjection) Printout(ticketID kds.TicketID, st station.Station, lineIDs []kds.LineID, at time.Time) (kds.TicketInfo, ticket.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, printoutCall{TicketID: ticketID, Station: st, LineIDs: lineIDs})
	if m.PrintoutErr != nil {
		return kds.TicketInfo{}, ticket.Ticket{}, m.PrintoutErr
	}
	tk, ok := m.Tickets[st.Code()]
	if !ok {
		return kds.TicketInfo{}, ticket.Ticket{}, kds.ErrLineNotFound
	}
	return m.Info, tk, nil
}

type printed struct {
	Location string
	Station  string
	Ticket   ticket.Ticket
}

// MockPrinter implements kds.TicketPrinter for testing
type MockPrinter struct {
	Printed []printed
	Err     error
}

func (m *MockPrinter) Print(ctx context.Context, locationID string, st station.Station, t ticket.Ticket) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	m.Printed = append(m.Printed, printed{Location: locationID, Station: st.Code(), Ticket: t})
	return "job", nil
}

// MockPublisher implements events.Publisher for testing
type MockPublisher struct {
	PublishedEvents []struct {
		Topic string
		Data  []byte
	}
	Err error
}

func (m *MockPublisher) Publish(ctx context.Context, topic string, data []byte) error {
	if m.Err != nil {
		return m.Err
	}
	m.PublishedEvents = append(m.PublishedEvents, struct {
		Topic string
		Data  []byte
	}{Topic: topic, Data: data})
	return nil
}

// MockStreamFetcher implements StreamFetcher for testing
type MockStreamFetcher struct {
	Messages []events.StreamMessage
	Limit    int
	Err      error
}

func (m *MockStreamFetcher) Fetch(ctx context.Context, limit int) ([]events.StreamMessage, error) {
	m.Limit = limit
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Messages, nil
}

func (m *MockStreamFetcher) AddMessage(data []byte) {
	m.Messages = append(m.Messages, events.StreamMessage{Data: data})
}
