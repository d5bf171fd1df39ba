// Package migrations holds the SQL schema applied by cmd/migrate.
package migrations

import "embed"

// Files contains every *.sql migration in this directory.
//
//go:embed *.sql
var Files embed.FS

// Up and Down name the schema migration pair.
const (
	Up   = "001_create_schema.up.sql"
	Down = "001_create_schema.down.sql"
)
