// Package health reports over gRPC whether the KDS is following the change feed.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the gRPC health service name of the KDS.
const ServiceName = "appetite.kds"

const defaultReloadTimeout = 30 * time.Second

// Reloader rebuilds the projection after the feed comes back.
type Reloader interface {
	Reload(ctx context.Context) error
}

// FeedHealth serves NOT_SERVING while the change feed is disconnected. Events
// missed during the outage are recovered with a full reload on reconnect.
type FeedHealth struct {
	server   *health.Server
	reloader Reloader
	logger   apt.Logger
	timeout  time.Duration

	mu        sync.Mutex
	connected bool
	reloading chan struct{}
}

func NewFeedHealth(reloader Reloader, logger apt.Logger) *FeedHealth {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	h := &FeedHealth{
		server:    health.NewServer(),
		reloader:  reloader,
		logger:    logger,
		timeout:   defaultReloadTimeout,
		connected: true,
	}
	h.set(healthpb.HealthCheckResponse_SERVING)
	return h
}

// RegisterGRPCService registers the health service with the gRPC server.
func (h *FeedHealth) RegisterGRPCService(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, h.server)
}

// Server exposes the underlying health server.
func (h *FeedHealth) Server() healthpb.HealthServer {
	return h.server
}

// Connected reports the last known feed state.
func (h *FeedHealth) Connected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

// Disconnected marks the service NOT_SERVING.
func (h *FeedHealth) Disconnected(err error) {
	h.mu.Lock()
	h.connected = false
	h.mu.Unlock()

	h.logger.Info("change feed lost, reporting not serving", "error", err)
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
}

// Reconnected reloads in the background and reports SERVING once the reload succeeds.
func (h *FeedHealth) Reconnected() {
	h.mu.Lock()
	h.connected = true
	done := make(chan struct{})
	h.reloading = done
	h.mu.Unlock()

	go func() {
		defer close(done)
		h.recover()
	}()
}

// Wait blocks until the last triggered reload finished. Used by callers that
// need the post-reconnect state.
func (h *FeedHealth) Wait() {
	h.mu.Lock()
	done := h.reloading
	h.mu.Unlock()
	if done != nil {
		<-done
	}
}

func (h *FeedHealth) recover() {
	if h.reloader != nil {
		ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
		defer cancel()
		if err := h.reloader.Reload(ctx); err != nil {
			h.logger.Error("reload after reconnect failed, staying not serving", "error", err)
			return
		}
	}

	h.mu.Lock()
	connected := h.connected
	h.mu.Unlock()
	if !connected {
		return
	}

	h.logger.Info("change feed restored, reporting serving")
	h.set(healthpb.HealthCheckResponse_SERVING)
}

func (h *FeedHealth) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}

func (h *FeedHealth) Start(ctx context.Context) error {
	return nil
}

// Stop reports NOT_SERVING for good.
func (h *FeedHealth) Stop(ctx context.Context) error {
	h.server.Shutdown()
	return nil
}
