package main

import (
	"context"
	"log"
	"os"

	"gocalib/adapters/bolt"
	"gocalib/adapters/postgres"
	"gocalib/domain/core"
	"gocalib/internal/migration"
)

// importBatch bounds how many bolt runs are copied per invocation
const importBatch = 100000

func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: migrate <database_url> [bolt_file]")
	}

	databaseURL := os.Args[1]
	ctx := context.Background()

	db, err := postgres.Open(ctx, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	log.Printf("Schema is at version %s", runner.Version())

	if len(os.Args) < 3 {
		return
	}

	boltPath := os.Args[2]
	log.Printf("Importing calibration runs from %s", boltPath)

	source, err := bolt.Open(boltPath)
	if err != nil {
		log.Fatalf("Failed to open bolt file: %v", err)
	}
	defer source.Close()

	runs, err := source.List(ctx, importBatch)
	if err != nil {
		log.Fatalf("Failed to read runs: %v", err)
	}

	target := postgres.NewCalibrationRunRepository(db)
	migrated := 0
	skipped := 0

	// Oldest first so created_at ordering survives the copy
	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		if _, err := target.GetByID(ctx, run.ID); err == nil {
			skipped++
			continue
		} else if !core.IsNotFoundError(err) {
			log.Printf("Failed to check run %s: %v", run.ID, err)
			skipped++
			continue
		}
		if err := target.Save(ctx, run); err != nil {
			log.Printf("Failed to import run %s: %v", run.ID, err)
			skipped++
			continue
		}
		migrated++
	}

	log.Printf("Import complete: %d migrated, %d skipped", migrated, skipped)
}
