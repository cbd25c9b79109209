package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/marmos91/vaultfs/internal/logger"
	"github.com/marmos91/vaultfs/pkg/config"
	"github.com/marmos91/vaultfs/pkg/vaultfs"
)

func main() {
	configPath := flag.String("config", "", "Path to config file (default: "+config.GetDefaultConfigPath()+")")
	logLevel := flag.String("log-level", "", "Log level override (DEBUG, INFO, WARN, ERROR)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	logger.SetLevel(cfg.Logging.Level)

	fmt.Println("VaultFS - Shared File Namespace Engine")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Resource store: %s", cfg.Resources.Type)
	logger.Info("Blob store: %s", cfg.Blobs.Type)
	logger.Info("Lock store: %s", cfg.Locks.Type)

	// Cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resources, err := config.CreateResourceStore(ctx, &cfg.Resources)
	if err != nil {
		log.Fatalf("Failed to create resource store: %v", err)
	}

	blobs, err := config.CreateBlobStore(ctx, &cfg.Blobs)
	if err != nil {
		log.Fatalf("Failed to create blob store: %v", err)
	}

	locks, err := config.CreateLockStore(ctx, &cfg.Locks)
	if err != nil {
		log.Fatalf("Failed to create lock store: %v", err)
	}

	engine := vaultfs.New(resources, blobs, locks, cfg.Queue.Capacity)
	engine.Start(ctx)
	logger.Info("Engine ready, background worker running. Press Ctrl+C to stop.")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, initiating graceful shutdown...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := engine.Stop(shutdownCtx); err != nil {
		logger.Error("Shutdown error: %v", err)
		os.Exit(1)
	}
	logger.Info("Engine stopped gracefully")
}
