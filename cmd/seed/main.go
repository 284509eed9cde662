// seed writes demo sessions into the configured store for manual QA:
// demo-fresh is activated with no readings, demo-sealed has used its whole quota.
// Idempotent: sessions already at or past their target count are left alone.
package main

import (
	"context"
	"log"
	"time"

	"moon-oracle/backend/internal/config"
	"moon-oracle/backend/internal/session/repository"
	sessionservice "moon-oracle/backend/internal/session/service"
)

const (
	freshSessionID  = "demo-fresh"
	sealedSessionID = "demo-sealed"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.StoreBackend == config.BackendMemory {
		log.Fatal("seed: STORE_BACKEND=memory would discard the seed on exit; choose a persistent backend")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo, err := repository.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store: %v", err)
	}
	defer repo.Close()

	counter := sessionservice.NewCounter(repo, int64(cfg.SessionQuota))

	if err := counter.Activate(ctx, freshSessionID); err != nil {
		log.Fatalf("seed %s: %v", freshSessionID, err)
	}

	if err := counter.Activate(ctx, sealedSessionID); err != nil {
		log.Fatalf("seed %s: %v", sealedSessionID, err)
	}
	n, err := counter.Count(ctx, sealedSessionID)
	if err != nil {
		log.Fatalf("seed %s: %v", sealedSessionID, err)
	}
	for n < counter.Quota() {
		if n, err = counter.ReadAndIncrement(ctx, sealedSessionID); err != nil {
			log.Fatalf("seed %s: %v", sealedSessionID, err)
		}
	}
	for _, id := range []string{freshSessionID, sealedSessionID} {
		state, err := counter.State(ctx, id)
		if err != nil {
			log.Fatalf("seed %s: %v", id, err)
		}
		log.Printf("seed: %s is %s (quota %d)", id, state, counter.Quota())
	}
}
