package main

import (
	"context"
	"flag"
	"log"

	"github.com/joho/godotenv"
	"github.com/yi-nology/docvault/biz/app"
	"github.com/yi-nology/docvault/pkg/config"
	"github.com/yi-nology/docvault/pkg/logging"
)

// Requeue FAILED document versions whose staged file still exists.
// Usage: go run script/requeue_failed_uploads.go -config=./config.yaml -limit=500

var (
	configPath = flag.String("config", "config.yaml", "config file")
	limit      = flag.Int("limit", 100, "maximum number of versions to queue")
	drain      = flag.Bool("drain", true, "process the jobs in this process when the queue is in-memory")
)

func main() {
	flag.Parse()
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logging.Init(cfg.Log); err != nil {
		log.Fatalf("init logging: %v", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer a.Close()

	ctx := context.Background()
	n, err := a.Service.RequeueFailed(ctx, *limit)
	if err != nil {
		log.Fatalf("requeue failed: %v", err)
	}
	log.Printf("queued %d failed versions on the %s queue", n, a.Queue.Name())

	if a.SharedQueue() || !*drain {
		return
	}
	processed, err := a.Drain(ctx)
	if err != nil {
		log.Fatalf("drain: %v", err)
	}
	log.Printf("processed %d uploads", processed)
}
