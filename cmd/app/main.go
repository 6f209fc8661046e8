package main

import (
	"context"
	"log"
	"os"

	"budget-engine/internal/adapters/cli"
	"budget-engine/internal/app"
	"budget-engine/internal/config"
	"budget-engine/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	var pool *pgxpool.Pool
	open := func() (app.ApplicationService, error) {
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
		p, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		pool = p
		return app.NewFromPool(pool, cfg.OrderPrefix, nil), nil
	}

	err = cli.NewRootCommand(open).ExecuteContext(ctx)
	if pool != nil {
		pool.Close()
	}
	if err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
