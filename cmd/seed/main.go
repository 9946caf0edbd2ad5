package main

import (
	"context"
	"flag"
	"log"
	"time"

	"dataward.org/internal/config"
	"dataward.org/internal/seed"
	"dataward.org/internal/store"
)

func main() {
	log.SetFlags(0)
	file := flag.String("file", "seed.json", "Path to the JSON seed document")
	flag.Parse()

	cfg := config.Load()
	if cfg.DSN == "" {
		log.Fatal("missing DSN: set DATAWARD_PG_DSN")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	st, err := store.Open(ctx, cfg.DSN,
		store.WithMaxOpenConns(cfg.MaxOpenConns),
		store.WithMaxIdleConns(cfg.MaxIdleConns))
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer st.Close()

	if err := seed.LoadFile(ctx, st, *file); err != nil {
		log.Fatalf("seed: %v", err)
	}
	log.Printf("seeded from %s", *file)
}
