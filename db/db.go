// Package db holds the SQL migrations for the permission schema.
package db

import "embed"

// Migrations holds the SQL files. permctl reads them from here when built
// with -tags embed_migrations and from the db/migrations directory otherwise.
//
//go:embed migrations/*.sql
var Migrations embed.FS
