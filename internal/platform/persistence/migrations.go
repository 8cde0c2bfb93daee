package persistence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // PostgreSQL driver
	_ "github.com/golang-migrate/migrate/v4/source/file"       // File source driver
)

const fileSourceScheme = "file://"

// ErrDirtySchema means a previous migration stopped halfway and needs a manual force
var ErrDirtySchema = errors.New("database schema is dirty")

// MigrationState is the schema version left after migrating
type MigrationState struct {
	Version uint
	Applied bool // false when the schema was already current
}

// MigrationSourceURL turns a migrations directory into a golang-migrate source URL
func MigrationSourceURL(migrationsPath string) string {
	if strings.HasPrefix(migrationsPath, fileSourceScheme) {
		return migrationsPath
	}
	return fileSourceScheme + migrationsPath
}

// RunMigrations brings holds, outbox_events and processed_events up to the latest version.
// It refuses to run against a dirty schema.
func RunMigrations(databaseURL string, migrationsPath string) (state MigrationState, err error) {
	if migrationsPath == "" {
		return state, errors.New("migrations path cannot be empty")
	}
	if databaseURL == "" {
		return state, errors.New("database URL cannot be empty")
	}

	m, err := migrate.New(MigrationSourceURL(migrationsPath), databaseURL)
	if err != nil {
		return state, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer func() {
		sourceErr, dbErr := m.Close()
		if err == nil && sourceErr != nil {
			err = fmt.Errorf("migration source error: %w", sourceErr)
		}
		if err == nil && dbErr != nil {
			err = fmt.Errorf("migration database error: %w", dbErr)
		}
	}()

	if version, dirty, verr := m.Version(); verr == nil && dirty {
		return state, fmt.Errorf("%w at version %d", ErrDirtySchema, version)
	}

	switch err := m.Up(); {
	case err == nil:
		state.Applied = true
	case errors.Is(err, migrate.ErrNoChange):
	default:
		return state, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return state, fmt.Errorf("failed to read schema version: %w", err)
	}
	state.Version = version
	return state, nil
}
