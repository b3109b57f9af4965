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
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/feedback-app/internal/config"
)

var logger = logrus.New()

func main() {
	logger.SetFormatter(&logrus.JSONFormatter{})

	path := flag.String("path", "./migrations", "directory with migration files")
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.DBDriver != "postgres" {
		logger.Fatalf("Migrations target postgres only, got DB_DRIVER=%s", cfg.DBDriver)
	}

	m, err := migrate.New("file://"+*path, cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to init migrations: %v", err)
	}
	defer m.Close()
	m.Log = migrateLogger{}

	switch args[0] {
	case "up":
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatalf("Migration up failed: %v", err)
		}
		logger.Info("Migrations applied")

	case "down":
		steps := 1
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				logger.Fatalf("Invalid steps argument %q", args[1])
			}
			steps = n
		}
		if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			logger.Fatalf("Migration down failed: %v", err)
		}
		logger.WithField("steps", steps).Info("Migrations rolled back")

	case "version":
		v, dirty, err := m.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			logger.Fatalf("Failed to read version: %v", err)
		}
		fmt.Printf("version: %d  dirty: %v\n", v, dirty)

	case "force":
		if len(args) < 2 {
			logger.Fatal("force requires a version argument")
		}
		v, err := strconv.Atoi(args[1])
		if err != nil {
			logger.Fatalf("Invalid version %q", args[1])
		}
		if err := m.Force(v); err != nil {
			logger.Fatalf("Force failed: %v", err)
		}
		logger.WithField("version", v).Info("Migration version forced")

	default:
		usage()
		os.Exit(1)
	}
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, v ...interface{}) {
	logger.Infof(format, v...)
}

func (migrateLogger) Verbose() bool { return logger.IsLevelEnabled(logrus.DebugLevel) }

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: migrate [-path dir] <command> [args]

Commands:
  up           Apply all pending migrations
  down [N]     Roll back N migrations (default: 1)
  version      Print current migration version
  force <V>    Force set migration version

The database is read from DB_CONN (or CONFIG_FILE / .env) like the API server.`)
}
