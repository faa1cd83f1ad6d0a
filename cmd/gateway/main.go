package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stockpulse/config"
	"stockpulse/internal/gateway"
	"stockpulse/internal/logger"
	redisstore "stockpulse/internal/store/redis"
	sqlitestore "stockpulse/internal/store/sqlite"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[gateway] config: %v", err)
	}

	logger.Init("gateway", logger.ParseLevel(cfg.LogLevel))

	if cfg.Redis.Addr == "" {
		log.Fatalf("[gateway] redis addr is required for the live stream")
	}
	rstore, err := redisstore.New(redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.RedisTTL(),
	})
	if err != nil {
		log.Fatalf("[gateway] redis: %v", err)
	}
	defer rstore.Close()

	store, err := sqlitestore.Open(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[gateway] sqlite: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := gateway.NewHub(rstore.Client())
	go hub.Run(ctx)

	srv := gateway.NewServer(cfg.GatewayAddr, hub, rstore, store)
	srv.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Stop(shutdownCtx)
}
