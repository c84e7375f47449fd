package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"food-delivery/config"
	"food-delivery/internal/store"
	"food-delivery/internal/util"

	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [up|down|version]\n", os.Args[0])
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()

	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg := config.Load()
	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()
	logger := util.GetLogger()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	switch command {
	case "up":
		if err := db.MigrateUp(); err != nil {
			logger.Fatal("Migration failed", zap.Error(err))
		}
		logger.Info("Migrations applied")
	case "down":
		if err := db.MigrateDown(); err != nil {
			logger.Fatal("Rollback failed", zap.Error(err))
		}
		logger.Info("Migrations rolled back")
	case "version":
		version, dirty, err := db.MigrationVersion()
		if err != nil {
			logger.Fatal("Failed to read migration version", zap.Error(err))
		}
		logger.Info("Migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	default:
		usage()
		os.Exit(2)
	}
}
