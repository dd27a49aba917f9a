package main

import (
	"mashub/api/internal/app"
	"mashub/api/internal/config"
	"mashub/api/internal/infra/database"
	"mashub/api/internal/logger"
	"os"
)

func main() {
	config := config.MustReadConfig()

	unixLogger := logger.Init(config.ProdEnv)

	db, err := database.Init(config)
	if err != nil {
		unixLogger.Fatal("can't init database", logger.LS_FATAL, false, "driver", config.DB.Driver, "error", err)
		os.Exit(1)
	}

	app := &app.App{
		Config: config,
		Db:     db,
		Log:    unixLogger,
	}

	if err := app.Start(); err != nil {
		unixLogger.Fatal("app stopped", logger.LS_FATAL, false, "error", err)
		os.Exit(1)
	}
}
