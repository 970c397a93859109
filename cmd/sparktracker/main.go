package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sparkvision/internal/app"
	"sparkvision/internal/config"
	"sparkvision/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "Optional YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.NewLogger(cfg)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker, err := app.NewTracker(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start tracker: %v", err)
	}
	defer tracker.Close()

	if err := tracker.Run(ctx); err != nil {
		logger.Error("Tracker stopped: %v", err)
	}
}
