// Package main starts the user identity service. It stays minimal: load
// configuration, build a logger, hand both to internal/server. Everything
// interesting lives in the imported packages.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/CS3219-AY2526S2/peerprep-g15/internal/config"
	"github.com/CS3219-AY2526S2/peerprep-g15/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Configuration problems are startup-fatal on purpose: a service with
	// no signing secrets must refuse to run, not 500 on its first request.
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if dir := filepath.Dir(cfg.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
