// Package database opens the bot's SQL store and applies schema migrations.
// It supports postgres for deployments and an embedded sqlite file for local
// runs, selected by configuration.
package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	coreconfig "github.com/diarypete/diarypete/core/config"
	"github.com/diarypete/diarypete/core/logger"
)

// Connect opens the database connection, configures the pool, and verifies
// connectivity.
func Connect(cfg coreconfig.DatabaseConfig) (*sqlx.DB, error) {
	driver := cfg.Driver()
	dsn := buildDSN(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	took := time.Since(start)
	if err != nil {
		logger.DB.Error("db connect failed",
			slog.String("event", "db.connect"),
			slog.String("driver", driver),
			slog.Duration("duration", logger.RoundMS(took)),
			slog.String("err", err.Error()),
		)
		return nil, fmt.Errorf("db connect: %w", err)
	}

	switch driver {
	case "postgres":
		db.SetMaxOpenConns(cfg.MaxConnections)
		db.SetMaxIdleConns(cfg.MaxConnections)
	case "sqlite":
		// The embedded driver serializes writers; a single connection keeps
		// the scheduler and the update loop from tripping over file locks.
		db.SetMaxOpenConns(1)
	}

	logger.DB.Info("db connected",
		slog.String("event", "db.connect"),
		slog.String("driver", driver),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	return db, nil
}

func buildDSN(cfg coreconfig.DatabaseConfig) string {
	if cfg.Driver() == "sqlite" {
		return cfg.Path
	}
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)
}
