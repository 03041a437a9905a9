// Standalone migration runner for deployments that apply schema changes
// before rolling the server.
package main

import (
	"flag"
	"os"

	"github.com/harbourlight/conductor/internal/config"
	"github.com/harbourlight/conductor/internal/db"
	"github.com/harbourlight/conductor/internal/logger"
)

func main() {
	migrationsPath := flag.String("path", "file://./migrations", "migration source URL")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Init(cfg.Logging.Level, cfg.Logging.Pretty)

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}
	defer database.Close()

	sqlDB, err := database.GetSQLDB()
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to get underlying sql.DB")
	}

	if err := db.RunMigrations(sqlDB, *migrationsPath); err != nil {
		logger.Log.Fatal().Err(err).Msg("Migrations failed")
	}

	logger.Log.Info().Str("path", cfg.Database.Path).Msg("Migrations applied")
}
