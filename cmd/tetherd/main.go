// Copyright 2026 The Tether Authors
// SPDX-License-Identifier: Apache-2.0

// tetherd is the tether host daemon. It serves the control WebSocket on
// /ws and terminal attachments on /terminal, reading transcripts from
// the configured workspace root. Configuration comes from a YAML file
// named by --config or the TETHER_CONFIG environment variable.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"

	"github.com/tetherhq/tether/host"
	"github.com/tetherhq/tether/lib/config"
	"github.com/tetherhq/tether/lib/logging"
	"github.com/tetherhq/tether/lib/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("tetherd", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to the YAML config file (or set TETHER_CONFIG)")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	if showVersion {
		fmt.Printf("tetherd %s\n", version.Info())
		return nil
	}

	logger := logging.NewLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	server, err := host.NewServer(host.ServerConfig{
		Config: cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	controlServer := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.Handler(),
	}

	serveErr := make(chan error, 2)
	go func() {
		logger.Info("control listener starting", "listen", cfg.Listen, "workspace_root", cfg.WorkspaceRoot)
		if err := controlServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- fmt.Errorf("control listener: %w", err)
		}
	}()

	var metricsServer *http.Server
	if cfg.MetricsListen != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(server.Metrics().Registry, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.MetricsListen, Handler: mux}
		go func() {
			logger.Info("metrics listener starting", "listen", cfg.MetricsListen)
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- fmt.Errorf("metrics listener: %w", err)
			}
		}()
	}

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := controlServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("control shutdown", "error", err)
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics shutdown", "error", err)
		}
	}
	return nil
}
