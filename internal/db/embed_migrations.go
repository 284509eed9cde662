package db

import "embed"

// MigrationFS embeds the Postgres migrations for the sessions table.
// Applied by cmd/migrate and by the server at startup when STORE_BACKEND=postgres.
//
//go:embed migrations/*.sql
var MigrationFS embed.FS
