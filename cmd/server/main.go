package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GriffinCanCode/AdMonitor/internal/infrastructure/config"
	"github.com/GriffinCanCode/AdMonitor/internal/server"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Flags override environment and file values
	flag.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "Server port")
	flag.StringVar(&cfg.Storage.Driver, "storage", cfg.Storage.Driver, "State storage driver (sqlite|memory)")
	flag.StringVar(&cfg.Storage.Path, "db", cfg.Storage.Path, "SQLite state database path")
	flag.StringVar(&cfg.Host.Bridge, "bridge", cfg.Host.Bridge, "Host bridge (ws|http)")
	flag.StringVar(&cfg.Host.URL, "host-url", cfg.Host.URL, "Shim URL for the http bridge")
	flag.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "Development logging")
	flag.Parse()

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case <-sigChan:
	case err := <-errChan:
		if err != nil {
			log.Printf("Server error: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	err = srv.Shutdown(ctx)
	cancel()
	if err != nil {
		log.Printf("Error during shutdown: %v", err)
		os.Exit(1)
	}
}
