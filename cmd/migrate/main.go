package main

import (
	"flag"
	"os"

	"go-doctor-scheduling/config"
	"go-doctor-scheduling/internal/infrastructure/database"

	"github.com/sirupsen/logrus"
)

func main() {
	down := flag.Int("down", 0, "number of migrations to roll back instead of migrating up")
	flag.Parse()

	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	if *down > 0 {
		if err := database.MigrateDown(cfg.DB, *down); err != nil {
			logrus.Fatalf("Failed to roll back migrations: %v", err)
		}
		logrus.Infof("Rolled back %d migration(s)", *down)
		return
	}

	if err := database.MigrateUp(cfg.DB); err != nil {
		logrus.Fatalf("Failed to apply migrations: %v", err)
	}
}
