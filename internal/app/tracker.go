package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/repository/sqlite"
	"sparkvision/internal/routes"
	"sparkvision/internal/services/alert"
	"sparkvision/internal/services/notify"
	"sparkvision/internal/services/tracker"
	"sparkvision/internal/services/websocket"

	"golang.org/x/sync/errgroup"
)

// Tracker receives alerts from the broker, journals them, serves them to
// viewers and optionally forwards them as SMS.
type Tracker struct {
	config  *config.Config
	logger  *logger.Logger
	db      *sqlite.DB
	hub     *websocket.HubService
	manager *tracker.Manager
	server  *http.Server
}

// NewTracker opens the alert journal and builds the HTTP surface. The
// broker connection is made by Run.
func NewTracker(cfg *config.Config, logger *logger.Logger) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required for the tracker")
	}

	db, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	alerts := sqlite.NewAlertRepository(db)

	var notifier tracker.Notifier
	if sms, err := notify.NewSMSNotifier(cfg.Twilio, logger); err == nil {
		notifier = sms
	} else {
		logger.Warning("SMS alerts disabled: %v", err)
	}

	hub := websocket.NewHubService(logger)

	return &Tracker{
		config:  cfg,
		logger:  logger,
		db:      db,
		hub:     hub,
		manager: tracker.NewManager(alerts, hub, notifier, logger),
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.TrackerPort),
			Handler:           routes.SetupRoutes(hub, alerts, cfg, logger),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}, nil
}

// Run serves until ctx is cancelled or one of the components fails.
func (t *Tracker) Run(ctx context.Context) error {
	subscriber, err := alert.NewSubscriber(t.config, t.logger, t.manager.HandleAlert)
	if err != nil {
		return err
	}
	defer subscriber.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		t.hub.Run(ctx)
		return nil
	})

	g.Go(func() error {
		t.logger.Info("Listening at port %d", t.config.TrackerPort)
		if err := t.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close waits for pending notifications and closes the journal.
func (t *Tracker) Close() {
	t.manager.Stop()
	if err := t.db.Close(); err != nil {
		t.logger.Error("Failed to close database: %v", err)
	}
}
