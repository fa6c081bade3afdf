package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/liamcoop/ruleseditor/internal/logger"
)

// migrator is the subset of *migrate.Migrate the commands use
type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (uint, bool, error)
	Force(version int) error
}

// run executes one migration command against m
func run(m migrator, command string, args []string) error {
	switch command {
	case "up":
		logger.Info("running migrations up")
		err := m.Up()
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("no migrations to run, database is up to date")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("migrations completed")

	case "down":
		// One step unless "all" is given
		if len(args) > 0 && args[0] == "all" {
			logger.Info("rolling back all migrations")
			if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to rollback migrations: %w", err)
			}
		} else {
			logger.Info("rolling back one migration")
			if err := m.Steps(-1); err != nil && !errors.Is(err, migrate.ErrNoChange) {
				return fmt.Errorf("failed to rollback migration: %w", err)
			}
		}
		logger.Info("rollback completed")

	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			logger.Info("no migrations applied")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		logger.Info("current version", "version", version, "dirty", dirty)

	case "force":
		if len(args) < 1 {
			return fmt.Errorf("force requires a version number: -command force <version>")
		}
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version number %q: %w", args[0], err)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
		logger.Info("forced version", "version", version)

	default:
		return fmt.Errorf("unknown command: %s (use: up, down, version, force)", command)
	}
	return nil
}

func main() {
	var databaseURL string
	var migrationsPath string
	var command string

	flag.StringVar(&databaseURL, "database", "", "Database URL (defaults to DATABASE_URL)")
	flag.StringVar(&migrationsPath, "path", "migrations", "Path to migrations directory")
	flag.StringVar(&command, "command", "up", "Migration command: up, down [all], version, force <version>")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		logger.Fatal("database URL is required, use -database or DATABASE_URL")
	}

	logger.Info("connecting to database", "migrations", migrationsPath)
	m, err := migrate.New("file://"+migrationsPath, databaseURL)
	if err != nil {
		logger.Fatal("failed to create migration instance", "error", err)
	}

	err = run(m, command, flag.Args())
	srcErr, dbErr := m.Close()
	if err != nil {
		logger.Fatal("migration failed", "command", command, "error", err)
	}
	if srcErr != nil || dbErr != nil {
		logger.Warn("failed to close migration instance", "source", srcErr, "database", dbErr)
	}
}
