package database

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// Migrate applies every pending migration to the database at url.
func Migrate(url string) error {
	migrationDB, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("failed to open DB for migrations: %w", err)
	}
	defer migrationDB.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(migrationDB, "migrations"); err != nil {
		return fmt.Errorf("failed to run up migrations: %w", err)
	}
	return nil
}

// Status prints the applied state of every migration.
func Status(url string) error {
	migrationDB, err := sql.Open("pgx", url)
	if err != nil {
		return fmt.Errorf("failed to open DB for migrations: %w", err)
	}
	defer migrationDB.Close()

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	return goose.Status(migrationDB, "migrations")
}
