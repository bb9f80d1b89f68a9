package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wnt/walletd/internal/config"
	"github.com/wnt/walletd/internal/confirm"
	"github.com/wnt/walletd/internal/database"
	"github.com/wnt/walletd/internal/gateway"
	"github.com/wnt/walletd/internal/logger"
	"github.com/wnt/walletd/internal/store"
)

func main() {
	// Parse command-line arguments
	envFile := flag.String("envFile", ".env", "Path to .env file")
	flag.Parse()

	// Load environment variables from the specified file
	if err := godotenv.Load(*envFile); err != nil {
		log.Printf("No .env file found at %s, using environment variables", *envFile)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg := logger.New(cfg.LogLevel)

	db, err := database.Connect()
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to connect to database")
	}
	st := store.New(db)

	queue, err := confirm.NewQueue(cfg.RedisURL, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer queue.Close()

	gw := gateway.NewClient(cfg.GatewayURL, lg,
		gateway.WithAPIKey(os.Getenv("GATEWAY_API_KEY")))

	manager := confirm.NewManager(cfg, queue, st, gw, lg)
	if err := manager.Start(); err != nil {
		lg.Fatal().Err(err).Msg("Failed to start confirmation manager")
	}

	// Serve Prometheus metrics
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		lg.Info().Str("addr", addr).Msg("Serving metrics")
		if err := http.ListenAndServe(addr, nil); err != nil {
			lg.Error().Err(err).Msg("Metrics server stopped")
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	lg.Info().Str("signal", sig.String()).Msg("Shutting down")
	if err := manager.Stop(); err != nil {
		lg.Error().Err(err).Msg("Error stopping confirmation manager")
	}
}
