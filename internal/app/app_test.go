package app

import (
	"testing"
	"time"

	"github.com/appetiteclub/kds/pkg/event"
)

func TestNotificationStreamConfig(t *testing.T) {
	cfg := NotificationStreamConfig("nats://nats:4222")

	if cfg.URL != "nats://nats:4222" {
		t.Errorf("URL = %q", cfg.URL)
	}
	if cfg.Topic != event.NotificationsTopic {
		t.Errorf("Topic = %q, want %q", cfg.Topic, event.NotificationsTopic)
	}
	if cfg.StreamName == "" || cfg.ConsumerName == "" {
		t.Errorf("stream and consumer must be named: %+v", cfg)
	}
	if cfg.MaxAge != 12*time.Hour {
		t.Errorf("MaxAge = %v, want 12h", cfg.MaxAge)
	}
}
