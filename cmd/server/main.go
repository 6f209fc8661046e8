package main

import (
	"context"
	"log"
	"net/http"

	webAdapter "budget-engine/internal/adapters/web"
	"budget-engine/internal/app"
	"budget-engine/internal/config"
	"budget-engine/internal/db"
	"budget-engine/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	opts := webAdapter.Options{AllowedOrigins: cfg.AllowedOrigins, MaxBodyBytes: cfg.MaxBodyBytes}
	var obs app.Observer
	if cfg.MetricsEnabled {
		rec := metrics.New()
		obs = rec
		opts.Metrics = rec.Handler()
	}

	svc := app.NewFromPool(pool, cfg.OrderPrefix, obs)
	handler := webAdapter.NewHandler(svc, opts)

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := http.ListenAndServe(":"+cfg.ServerPort, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
