package database

import (
	"embed"

	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func migrationSource() migrate.MigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationFiles,
		Root:       "migrations",
	}
}

// Migrate applies all pending up migrations.
func (s *DB) Migrate() error {
	log := s.log.Function("Migrate")

	sqlDB, err := s.SQL.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	applied, err := migrate.Exec(sqlDB, "sqlite3", migrationSource(), migrate.Up)
	if err != nil {
		return log.Err("failed to apply migrations", err)
	}

	log.Info("Migrations applied", "count", applied)
	return nil
}

// Rollback reverts the given number of migrations, newest first.
func (s *DB) Rollback(steps int) error {
	log := s.log.Function("Rollback")

	sqlDB, err := s.SQL.DB()
	if err != nil {
		return log.Err("failed to get database from GORM", err)
	}

	reverted, err := migrate.ExecMax(sqlDB, "sqlite3", migrationSource(), migrate.Down, steps)
	if err != nil {
		return log.Err("failed to roll back migrations", err, "steps", steps)
	}

	log.Info("Migrations rolled back", "count", reverted)
	return nil
}
