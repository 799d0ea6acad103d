package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"tourism-forecast/internal/app"
	"tourism-forecast/migrations"
	"tourism-forecast/pkg/database"
	"tourism-forecast/pkg/logging"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	env := app.Load("tourism-migrate")
	cfg, logger := env.Config, env.Logger
	ctx := context.Background()

	schema, err := migrations.Load(*direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(2)
	}

	// the mirror may be disabled for the pipeline while its schema is prepared
	db, err := database.NewPostgresDB(ctx, database.FromSettings(cfg.Database), logger, env.Metrics)
	if err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	logger.Info(ctx, "[MIGRATE_START] Running migration", logging.Fields{
		"direction": *direction,
		"database":  cfg.Database.Database,
	})

	if _, err := db.ExecContext(ctx, "migrate_"+*direction, schema); err != nil {
		logger.Fatal(ctx, "[MIGRATE_ERROR] Failed to execute migration", logging.Fields{
			"direction": *direction,
		}, err)
	}

	logger.Info(ctx, "[MIGRATE_COMPLETE] Migration completed successfully", logging.Fields{
		"direction": *direction,
	})
}
