package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"sparkvision/internal/app"
	"sparkvision/internal/config"
	"sparkvision/internal/logger"
	"sparkvision/internal/services/vision"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "Optional YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load configuration: %v", err)
		return 1
	}

	logger := logger.NewLogger(cfg)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to start detector: %v", err)
		return 1
	}
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		if errors.Is(err, vision.ErrCameraUnavailable) {
			fmt.Println("Error: Unable to access the webcam.")
		}
		logger.Error("Detector stopped: %v", err)
		return 1
	}
	return 0
}
