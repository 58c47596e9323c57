package postgres

import (
	"embed"

	pgpkg "github.com/obkaraca/sportsmaker-backend-sub001/pkg/postgres"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp applies every pending schema migration.
func MigrateUp(dsn string) error {
	return pgpkg.RunMigrationsFS(dsn, migrationsFS, "migrations")
}

// MigrateDown rolls every migration back.
func MigrateDown(dsn string) error {
	return pgpkg.RunMigrationsDownFS(dsn, migrationsFS, "migrations")
}
