package app

import (
	"context"
	"time"

	"github.com/appetiteclub/apt"
	aptevents "github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"
	"github.com/appetiteclub/kds/internal/display"
	"github.com/appetiteclub/kds/internal/events"
	"github.com/appetiteclub/kds/internal/health"
	"github.com/appetiteclub/kds/internal/kds"
	"github.com/appetiteclub/kds/internal/mongo"
	"github.com/appetiteclub/kds/internal/printing"
	"github.com/appetiteclub/kds/internal/redis"
	"github.com/appetiteclub/kds/pkg"
	"github.com/appetiteclub/kds/pkg/event"
)

const (
	AppName    = "kds"
	AppVersion = "0.1.0"
)

const (
	defaultNATSURL      = "nats://localhost:4222"
	defaultTickInterval = time.Minute
)

// NotificationStreamConfig is the durable stream that keeps table-ready
// notifications for devices that were offline.
func NotificationStreamConfig(natsURL string) pkg.NATSStreamConfig {
	return pkg.NATSStreamConfig{
		URL:          natsURL,
		StreamName:   "KDS_NOTIFICATIONS",
		Topic:        event.NotificationsTopic,
		ConsumerName: "kds-ready-history",
		MaxAge:       12 * time.Hour,
		MaxMsgs:      0,
	}
}

// App encapsulates the KDS service application
type App struct {
	config    *apt.Config
	logger    apt.Logger
	micro     *apt.Micro
	store     *mongo.Store
	projector *kds.Projector
}

// New creates a new KDS service application
func New(config *apt.Config, logger apt.Logger) (*App, error) {
	return &App{
		config: config,
		logger: logger,
	}, nil
}

// Initialize sets up all dependencies and components
func (a *App) Initialize(ctx context.Context) error {
	a.store = mongo.NewStore(a.config, a.logger)
	lineRepo := mongo.NewLineRepo(a.store)
	courseRepo := mongo.NewCourseRepo(a.store)
	monitorRepo := mongo.NewMonitorRepo(a.store)
	ticketRepo := mongo.NewTicketRepo(a.store, a.logger)

	lifecycles := []interface{}{a.store}

	// Demo seeds need a started store
	seedLifecycle := apt.LifecycleHooks{
		OnStart: func(ctx context.Context) error {
			if err := kds.ApplyDemoSeeds(ctx, a.config, a.store.GetDatabase(), a.logger); err != nil {
				a.logger.Errorf("Demo seeding failed (non-fatal): %v", err)
			}
			return nil
		},
	}
	lifecycles = append(lifecycles, seedLifecycle)

	// Ready memory survives restarts only when redis is configured
	var memoryStore kds.ReadyMemoryStore
	redisURL, _ := a.config.GetString("redis.url")
	if redisURL != "" {
		readyStore := redis.NewReadyStore(redisURL, a.logger)
		memoryStore = readyStore
		lifecycles = append(lifecycles, readyStore)
	}

	natsURL, _ := a.config.GetString("nats.url")
	if natsURL == "" {
		natsURL = defaultNATSURL
	}

	// Line status events go through NATS core, ready notifications through
	// the durable stream when enabled
	linePublisher, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		return err
	}
	var readyPublisher aptevents.Publisher = linePublisher

	var notificationStream *pkg.NATSStream
	streamEnabled, _ := a.config.GetString("nats.stream.enabled")
	if streamEnabled == "true" {
		notificationStream, err = pkg.NewNATSStream(ctx, NotificationStreamConfig(natsURL))
		if err != nil {
			linePublisher.Close()
			return err
		}
		a.logger.Info("NATS stream initialized for ready notifications")
		readyPublisher = notificationStream
	}

	tracker := kds.NewReadinessTracker(memoryStore, a.logger)
	a.projector = kds.NewProjector(kds.ProjectorDeps{
		Lines:        lineRepo,
		Courses:      courseRepo,
		Monitors:     monitorRepo,
		Tickets:      ticketRepo,
		Tracker:      tracker,
		TickInterval: a.tickInterval(),
		Logger:       a.logger,
	})

	hub := display.NewHub(a.projector, a.logger)
	a.projector.AddBroadcaster(hub)
	tracker.AddNotifier(hub)
	tracker.AddNotifier(events.NewReadyPublisher(readyPublisher))

	// Health follows the change feed connection
	feedHealth := health.NewFeedHealth(a.projector, a.logger)
	feedSubscriber, err := pkg.NewNATSSubscriber(natsURL, a.logger, pkg.ConnectionHooks{
		OnDisconnect: feedHealth.Disconnected,
		OnReconnect:  feedHealth.Reconnected,
	})
	if err != nil {
		linePublisher.Close()
		if notificationStream != nil {
			notificationStream.Close()
		}
		return err
	}

	var printer kds.TicketPrinter
	printURL, _ := a.config.GetString("print.api.url")
	if printURL != "" {
		printer = printing.NewDispatcher(apt.NewServiceClient(printURL), printing.NewDirectory(a.config), a.logger)
	} else {
		a.logger.Info("print.api.url not set, printing disabled")
	}

	changeFeed := events.NewChangeFeedSubscriber(feedSubscriber, a.projector, printer, a.logger)
	commander := kds.NewCommander(lineRepo, courseRepo, linePublisher, a.logger)

	handler := kds.NewHandler(kds.HandlerDeps{
		Projector: a.projector,
		Commander: commander,
		Printer:   printer,
		Stream:    hub,
	}, a.config, a.logger)

	// Setup middleware
	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      a.logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	lifecycles = append(lifecycles, a.projector, hub, changeFeed, feedHealth)

	lifecycles = append(lifecycles, apt.LifecycleHooks{
		OnStop: func(context.Context) error { return feedSubscriber.Close() },
	})
	lifecycles = append(lifecycles, apt.LifecycleHooks{
		OnStop: func(context.Context) error { return linePublisher.Close() },
	})
	if notificationStream != nil {
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error { return notificationStream.Close() },
		})
	}

	options := []apt.Option{
		apt.WithConfig(a.config),
		apt.WithLogger(a.logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithGRPCServerModules("grpc.port", feedHealth),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(AppName),
	}

	a.micro = apt.NewMicro(options...)
	return nil
}

func (a *App) tickInterval() time.Duration {
	raw, _ := a.config.GetString("kds.tick.interval")
	if raw == "" {
		return defaultTickInterval
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		a.logger.Info("invalid kds.tick.interval, using default", "value", raw, "default", defaultTickInterval)
		return defaultTickInterval
	}
	return d
}

// Run starts the application
func (a *App) Run(ctx context.Context) error {
	a.logger.Infof("Starting %s(%s)", AppName, AppVersion)
	if err := a.micro.Run(ctx); err != nil {
		return err
	}
	a.logger.Infof("%s(%s) stopped", AppName, AppVersion)
	return nil
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	// Lifecycle cleanup is handled by apt.Micro
	return nil
}
