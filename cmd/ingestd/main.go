package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"stockpulse/config"
	"stockpulse/internal/ingest"
	"stockpulse/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[ingestd] config: %v", err)
	}

	logger.Init("ingestd", logger.ParseLevel(cfg.LogLevel))

	svc, err := ingest.New(cfg)
	if err != nil {
		log.Fatalf("[ingestd] init failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := svc.Run(ctx); err != nil {
		log.Fatalf("[ingestd] fatal: %v", err)
	}
}
