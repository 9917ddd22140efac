package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"wainbox/internal/config"
	"wainbox/internal/database"
	"wainbox/internal/migrations"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "Path to JSON configuration file")
	dbPath := flag.String("db", "", "Path to the database file (overrides config)")
	list := flag.Bool("list", false, "List embedded migrations and exit")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	if *list {
		all, err := migrations.All()
		if err != nil {
			logger.Fatalf("Failed to read migrations: %v", err)
		}
		for _, m := range all {
			fmt.Println(m.Name)
		}
		return
	}

	if err := run(context.Background(), logger, *configPath, *dbPath); err != nil {
		logger.Fatalf("Migration failed: %v", err)
	}
}

func run(ctx context.Context, logger *logrus.Logger, configPath, dbPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}

	if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
		logger.WithField("path", cfg.Database.Path).Info("Database file not found, creating it")
	}

	db, err := database.New(cfg.Database.Path, &cfg.Database, database.EncryptionConfig{
		Enabled: cfg.Security.EncryptAtRest,
		Secret:  cfg.Security.SecretKey,
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Initialize(ctx); err != nil {
		return err
	}

	logger.WithField("path", cfg.Database.Path).Info("Schema is up to date")
	return nil
}
