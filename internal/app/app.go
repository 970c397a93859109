package app

import (
	"context"
	"fmt"

	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/repository"
	"sparkvision/internal/repository/sqlite"
	"sparkvision/internal/services/alert"
	"sparkvision/internal/services/classifier"
	"sparkvision/internal/services/detection"
	"sparkvision/internal/services/storage"
	"sparkvision/internal/services/vision"
)

// App is the fire detector: camera, prefilter, classifier, debounce and
// MQTT alerting.
type App struct {
	config    *config.Config
	logger    *logger.Logger
	db        *sqlite.DB
	publisher *alert.MQTTPublisher
	snapshots *storage.SnapshotBuffer
	pipeline  *detection.Pipeline
}

// NewApp validates the configuration and connects the detector's
// collaborators. The camera is opened by Run.
func NewApp(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*App, error) {
	if err := cfg.ValidateDetector(); err != nil {
		return nil, err
	}

	a := &App{config: cfg, logger: logger}

	var journal repository.EscalationRepository
	var snapshotRepo repository.SnapshotRepository
	if cfg.DBPath != "" {
		db, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		a.db = db
		journal = sqlite.NewEscalationRepository(db)
		snapshotRepo = sqlite.NewSnapshotRepository(db)
	} else {
		logger.Warning("DB_PATH is empty - escalation journal disabled")
	}

	cls, err := classifier.New(ctx, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	publisher, err := alert.NewMQTTPublisher(cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.publisher = publisher

	a.snapshots = storage.NewSnapshotBuffer(cfg, logger, snapshotRepo)
	a.pipeline = detection.NewPipeline(cls, publisher, journal, a.snapshots,
		detection.OptionsFromConfig(cfg), logger)

	return a, nil
}

// Run opens the camera and processes frames until ctx is cancelled, the
// user quits the window or the camera fails.
func (a *App) Run(ctx context.Context) error {
	webcam, err := vision.OpenCamera(a.config.CameraDevice)
	if err != nil {
		return err
	}
	defer webcam.Close()

	var viewer vision.Viewer = vision.HeadlessViewer{}
	if !a.config.Headless {
		viewer = vision.NewWindowViewer("SparkVision")
	}
	defer viewer.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	flushed := make(chan struct{})
	go func() {
		a.snapshots.Run(ctx)
		close(flushed)
	}()
	defer func() {
		cancel()
		<-flushed
	}()

	fmt.Printf("🔥 SparkVision\n")
	fmt.Printf("📷 Camera: %d\n", a.config.CameraDevice)
	fmt.Printf("🤖 Classifier: %s (%s)\n", a.config.Classifier.Backend, a.config.Classifier.Model)
	fmt.Printf("📡 Alerts: %s -> %s\n", a.config.MQTT.Host, a.config.MQTT.Topic)

	return a.pipeline.Run(ctx, webcam, viewer)
}

// Close disconnects from the broker and closes the journal.
func (a *App) Close() {
	if a.publisher != nil {
		published, failed := a.publisher.Stats()
		a.logger.Info("Alerts published: %d, failed: %d", published, failed)
		a.publisher.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Failed to close database: %v", err)
		}
	}
}
