// Package redis keeps the one-shot table-ready memory across restarts so a
// restarted KDS does not announce the same ready table twice.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/internal/kds"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultKey is the hash holding the memory, one field per table.
const DefaultKey = "kds:ready_memory"

const (
	readyValue    = "1"
	notReadyValue = "0"
)

// ReadyStore is a kds.ReadyMemoryStore backed by a redis hash.
type ReadyStore struct {
	url    string
	key    string
	client *redis.Client
	logger apt.Logger
}

func NewReadyStore(url string, logger apt.Logger) *ReadyStore {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	return &ReadyStore{url: url, key: DefaultKey, logger: logger}
}

func (s *ReadyStore) Start(ctx context.Context) error {
	opt, err := redis.ParseURL(s.url)
	if err != nil {
		return fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.MaxRetries = 3

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	s.client = client
	s.logger.Info("Connected to Redis", "key", s.key)
	return nil
}

func (s *ReadyStore) Stop(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("cannot close Redis client: %w", err)
	}
	return nil
}

func (s *ReadyStore) Load(ctx context.Context) (kds.ReadyMemory, error) {
	if s.client == nil {
		return nil, fmt.Errorf("redis ready store not started")
	}
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("cannot load ready memory: %w", err)
	}
	return decodeMemory(fields), nil
}

// Save replaces the stored memory atomically.
func (s *ReadyStore) Save(ctx context.Context, memory kds.ReadyMemory) error {
	if s.client == nil {
		return fmt.Errorf("redis ready store not started")
	}
	fields := encodeMemory(memory)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(fields) > 0 {
			pipe.HSet(ctx, s.key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cannot save ready memory: %w", err)
	}
	return nil
}

func encodeMemory(memory kds.ReadyMemory) map[string]interface{} {
	fields := make(map[string]interface{}, len(memory))
	for tableID, ready := range memory {
		value := notReadyValue
		if ready {
			value = readyValue
		}
		fields[tableID.String()] = value
	}
	return fields
}

func decodeMemory(fields map[string]string) kds.ReadyMemory {
	memory := make(kds.ReadyMemory, len(fields))
	for field, value := range fields {
		tableID, err := uuid.Parse(field)
		if err != nil {
			continue
		}
		memory[tableID] = value == readyValue
	}
	return memory
}
