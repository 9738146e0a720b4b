package main

import (
	"context"
	"flag"
	"log"

	"github.com/f-lab-edu/stock-simulator/pkg/config"
	"github.com/f-lab-edu/stock-simulator/pkg/migration"
	"github.com/f-lab-edu/stock-simulator/pkg/postgresql"
)

func main() {
	var (
		direction = flag.String("direction", "up", "Migration direction: up or down")
		steps     = flag.Int("steps", 0, "Number of steps to migrate (0 = all)")
		dir       = flag.String("dir", "migrations", "Directory holding the migration files")
	)
	flag.Parse()

	ctx := context.Background()

	cfg := &config.Config{}
	if err := config.Load(cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	client, err := postgresql.NewClient(ctx, cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to initialize PostgreSQL client: %v", err)
	}
	defer client.Close()

	runner := migration.NewRunner(client, *dir)

	if err := runner.EnsureTrackingTable(ctx); err != nil {
		log.Fatalf("Failed to create migration table: %v", err)
	}

	switch *direction {
	case "up":
		if err := runner.Up(ctx, *steps); err != nil {
			log.Fatalf("Failed to migrate up: %v", err)
		}
	case "down":
		if err := runner.Down(ctx, *steps); err != nil {
			log.Fatalf("Failed to migrate down: %v", err)
		}
	default:
		log.Fatalf("Invalid direction: %s. Use 'up' or 'down'", *direction)
	}

	log.Printf("Migration %s completed successfully", *direction)
}
