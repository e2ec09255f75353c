package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/flowmesh/distributer/internal/config"
	"github.com/flowmesh/distributer/internal/logging"
	"github.com/flowmesh/distributer/internal/processor"
)

func main() {
	configPath := flag.String("config", "/etc/flowmesh/processor.yaml", "path to processor config file")
	flag.Parse()

	cfg, err := config.LoadProcessorConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger, logCloser := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, "")
	defer logCloser.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := processor.Run(ctx, cfg, logger); err != nil {
		logger.Error("processor error", "error", err)
		os.Exit(1)
	}
}
