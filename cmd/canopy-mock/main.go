// Copyright 2026 The Canopy Authors
// SPDX-License-Identifier: Apache-2.0

// canopy-mock serves a synthetic accessibility tree for exercising
// Canopy clients without a real application. It plays a scenario (the
// built-in settings form, or a JSONC file) over a Unix socket and,
// optionally, a WebSocket endpoint, and answers action requests by
// mutating the scenario's tree.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/canopy-a11y/canopy/adapter"
	"github.com/canopy-a11y/canopy/lib/clock"
	"github.com/canopy-a11y/canopy/lib/version"
	"github.com/canopy-a11y/canopy/wire"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	socketPath := flag.String("socket", filepath.Join(os.TempDir(), "canopy-mock.sock"),
		"unix socket path to serve the tree stream on")
	httpAddress := flag.String("http", "",
		"optional host:port for a WebSocket endpoint serving the same tree")
	scenarioPath := flag.String("scenario", "",
		"JSONC scenario file (empty for the built-in settings form)")
	tick := flag.Duration("tick", time.Second,
		"interval between scenario steps")
	compressionName := flag.String("compression", "zstd",
		"payload compression for framed clients: none, lz4, or zstd")
	logLevelName := flag.String("log-level", "info",
		"log level: debug, info, warn, or error")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("canopy-mock %s\n", version.Info())
		return nil
	}

	level, err := parseLogLevel(*logLevelName)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	compression, err := wire.ParseCompressionTag(*compressionName)
	if err != nil {
		return err
	}

	scenario := DefaultScenario()
	if *scenarioPath != "" {
		scenario, err = ReadScenarioFile(*scenarioPath)
		if err != nil {
			return err
		}
	}

	player, err := NewPlayer(scenario, clock.Real(), *tick, logger)
	if err != nil {
		return err
	}

	if err := os.Remove(*socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", *socketPath, err)
	}
	listener, err := net.Listen("unix", *socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", *socketPath, err)
	}

	acceptors := []adapter.Acceptor{adapter.NewListenerAcceptor(listener)}

	var httpServer *http.Server
	if *httpAddress != "" {
		webSocketAcceptor := adapter.NewWebSocketAcceptor()
		httpServer = &http.Server{Addr: *httpAddress, Handler: webSocketAcceptor}
		httpDone := make(chan struct{})
		go func() {
			defer close(httpDone)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
			<-httpDone
		}()
		acceptors = append(acceptors, webSocketAcceptor)
	}

	var acceptor adapter.Acceptor = acceptors[0]
	if len(acceptors) > 1 {
		acceptor = adapter.NewMultiAcceptor(acceptors...)
	}

	service := adapter.New(
		acceptor,
		player.Factory,
		adapter.ActionHandlerFunc(player.HandleAction),
		adapter.WithLogger(logger),
		adapter.WithCompression(compression),
	)
	defer service.Close()
	player.Bind(service)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("mock application running",
		"scenario", scenario.Name,
		"socket", *socketPath,
		"http", *httpAddress,
		"tick", *tick,
		"compression", compression,
	)

	player.Run(ctx)
	logger.Info("shutting down")
	return nil
}

func parseLogLevel(name string) (slog.Level, error) {
	switch name {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q (want debug, info, warn, or error)", name)
	}
}
