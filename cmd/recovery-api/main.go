// HTTP API server for the disruption recovery simulator.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"airline_recovery/internal/api"
	"airline_recovery/internal/config"
	"airline_recovery/internal/logging"
	"airline_recovery/internal/scenario"
	"airline_recovery/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New("recovery-api", cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}

	store, err := scenario.Open(cfg.ScenarioDB)
	if err != nil {
		log.Error("open scenario store", slog.String("path", cfg.ScenarioDB), slog.Any("err", err))
		os.Exit(1)
	}
	defer store.Close()

	var db *storage.DB
	if cfg.PersistRuns {
		db, err = storage.Open(context.Background(), cfg.Storage)
		if err != nil {
			log.Error("open result stores", slog.Any("err", err))
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
	}

	srv, err := api.NewServer(store, db, log, cfg.API)
	if err != nil {
		log.Error("build server", slog.Any("err", err))
		os.Exit(1)
	}
	if err := srv.Run(); err != nil {
		log.Error("server exited", slog.Any("err", err))
		os.Exit(1)
	}
}
