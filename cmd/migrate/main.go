package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/m04kA/SMC-AppointmentService/internal/config"
	"github.com/m04kA/SMC-AppointmentService/pkg/logger"
)

// Применение миграций схемы: up, down (один шаг), step-up, drop, version
func main() {
	configPath := flag.String("config", "config.toml", "path to config file")
	action := flag.String("action", "up", "up | down | step-up | drop | version")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New("", cfg.Logs.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	mig, err := migrate.New("file://"+cfg.Database.MigrationsPath, cfg.Database.URL())
	if err != nil {
		log.Fatal("Failed to create migrate instance: %v", err)
	}
	defer mig.Close()

	if err := run(mig, *action); err != nil {
		log.Fatal("Migration %s failed: %v", *action, err)
	}

	version, dirty, err := mig.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		log.Info("Migration %s done, schema is empty", *action)
	case err != nil:
		log.Error("Failed to read schema version: %v", err)
	default:
		log.Info("Migration %s done, version=%d, dirty=%t", *action, version, dirty)
	}
}

func run(mig *migrate.Migrate, action string) error {
	var err error
	switch action {
	case "up":
		err = mig.Up()
	case "down":
		err = mig.Steps(-1)
	case "step-up":
		err = mig.Steps(1)
	case "drop":
		err = mig.Down()
	case "version":
		return nil
	default:
		return fmt.Errorf("unknown action %q", action)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
