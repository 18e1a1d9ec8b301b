package main

import (
	"log"
	"os"

	"github.com/safar/framely/internal/config"
	"github.com/safar/framely/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run scripts/run_migrations.go [up|down]")
	}

	direction := database.Direction(os.Args[1])
	if direction != database.MigrateUp && direction != database.MigrateDown {
		log.Fatal("Direction must be 'up' or 'down'")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	if err := database.Migrate(cfg.Database.URL, direction); err != nil {
		log.Fatalf("Run migrations: %v", err)
	}

	log.Printf("Successfully migrated %s", direction)
}
