package main

import (
	"context"
	"log"

	"budget-engine/internal/config"
	"budget-engine/internal/db"
	"budget-engine/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("[CONFIG] %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("[CONNECT] %v", err)
	}
	defer pool.Close()
	log.Println("[CONNECT] success")

	if err := db.Migrate(ctx, pool, migrations.FS); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	log.Println("[DONE] All migrations processed.")
}
