package main

import (
	"context"
	"time"

	mongoMigration "roombook/internal/migrations/mongo"
	postgresMigration "roombook/internal/migrations/postgres"
	"roombook/pkg/config"
)

const JobName = "migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	defer cfg.GracefulShutdown()

	if cfg.UsesMongo() {
		cfg.SetMongo()
		db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
		if err := mongoMigration.RunMigration(ctx, db, cfg.Log); err != nil {
			cfg.Log.Fatal("Mongo migration failed", "error", err)
		}
	}

	if cfg.StoreBackend == config.StorePostgres {
		cfg.SetPostgres()
		if err := postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log); err != nil {
			cfg.Log.Fatal("PostgreSQL migration failed", "error", err)
		}
	}

	if cfg.StoreBackend == config.StoreCSV && !cfg.UsesMongo() {
		cfg.Log.Info("CSV store needs no migration", "path", cfg.CSVPath)
	}
	cfg.Log.Info("Migration completed successfully")
}
