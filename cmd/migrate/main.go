// migrate applies or rolls back the Postgres session schema from embedded SQL: go run ./cmd/migrate -direction up.
package main

import (
	"flag"
	"fmt"
	"os"

	"moon-oracle/backend/internal/config"
	"moon-oracle/backend/internal/db/migrate"
)

func main() {
	direction := flag.String("direction", "up", "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.StoreBackend != config.BackendPostgres {
		fmt.Fprintf(os.Stderr, "migrate: STORE_BACKEND is %q; migrations only apply to postgres\n", cfg.StoreBackend)
		os.Exit(1)
	}

	if err := migrate.Run(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("migrate: %s complete\n", *direction)
}
