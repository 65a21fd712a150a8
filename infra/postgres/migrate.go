package postgres

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// Migrate applies every pending migration found in migrationsPath, either a
// directory or a file:// URL.
func Migrate(dsn, migrationsPath string) error {
	sourceURL := migrationsPath
	if !strings.Contains(sourceURL, "://") {
		absPath, err := filepath.Abs(migrationsPath)
		if err != nil {
			return fmt.Errorf("resolve migrations path: %w", err)
		}
		sourceURL = "file://" + absPath
	}

	zap.L().Info("Running migrations", zap.String("source", sourceURL))

	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("read migration version: %w", err)
	}
	zap.L().Info("Migrations applied", zap.Uint("version", version), zap.Bool("dirty", dirty))

	return nil
}
