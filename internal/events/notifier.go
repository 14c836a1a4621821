package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/kds/internal/kds"
	"github.com/appetiteclub/kds/pkg/event"
)

// ReadyPublisher forwards table-ready signals to POS and floor devices.
type ReadyPublisher struct {
	publisher events.Publisher
}

func NewReadyPublisher(publisher events.Publisher) *ReadyPublisher {
	return &ReadyPublisher{publisher: publisher}
}

func (p *ReadyPublisher) NotifyTableReady(ctx context.Context, ready kds.TableReady) error {
	payload := event.TableReadyEvent{
		EventType:  event.EventTableReady,
		OccurredAt: ready.At.UTC(),
		TableID:    ready.TableID.String(),
		TableName:  ready.TableName,
		TotalItems: ready.TotalItems,
		HasRush:    ready.HasRush,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cannot marshal table ready event: %w", err)
	}
	if err := p.publisher.Publish(ctx, event.NotificationsTopic, data); err != nil {
		return fmt.Errorf("cannot publish table ready event: %w", err)
	}
	return nil
}

// StreamFetcher reads retained messages from a durable stream.
type StreamFetcher interface {
	Fetch(ctx context.Context, limit int) ([]events.StreamMessage, error)
}

// ReadyHistory reads back retained ready notifications from the durable stream.
type ReadyHistory struct {
	stream StreamFetcher
}

func NewReadyHistory(stream StreamFetcher) *ReadyHistory {
	return &ReadyHistory{stream: stream}
}

// Recent returns up to limit retained notifications, skipping unreadable ones.
func (h *ReadyHistory) Recent(ctx context.Context, limit int) ([]event.TableReadyEvent, error) {
	msgs, err := h.stream.Fetch(ctx, limit)
	if err != nil {
		return nil, err
	}

	out := make([]event.TableReadyEvent, 0, len(msgs))
	for _, msg := range msgs {
		var evt event.TableReadyEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			continue
		}
		if evt.EventType != event.EventTableReady {
			continue
		}
		out = append(out, evt)
	}
	return out, nil
}
