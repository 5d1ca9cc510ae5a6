package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"account-service/internal/utils"
	"account-service/migrations"
)

func newMigrator(url string) (*migrate.Migrate, error) {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

func closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil {
		utils.LogWarning("Migrate", "close source: %v", srcErr)
	}
	if dbErr != nil {
		utils.LogWarning("Migrate", "close database: %v", dbErr)
	}
}

// MigrateUp applies every pending migration.
func MigrateUp(url string) error {
	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			utils.LogInfo("Migrate", "Schema is up to date")
			return nil
		}
		return fmt.Errorf("migrate up: %w", err)
	}

	utils.LogSuccess("Migrate", "Migrations applied")
	return nil
}

// MigrateDown rolls back steps migrations. Zero or less rolls back everything.
func MigrateDown(url string, steps int) error {
	m, err := newMigrator(url)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if steps > 0 {
		err = m.Steps(-steps)
	} else {
		err = m.Down()
	}
	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			utils.LogInfo("Migrate", "Nothing to roll back")
			return nil
		}
		return fmt.Errorf("migrate down: %w", err)
	}

	utils.LogSuccess("Migrate", "Migrations rolled back")
	return nil
}
