package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"fitadmin/cmd/migration/initialize"
	"fitadmin/cmd/migration/seed"
	"fitadmin/config"
	"fitadmin/internal/database"
	"fitadmin/internal/logger"
)

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: migration [flags] <command>

Commands:
  up          apply pending migrations
  down        roll back -steps migrations and flush caches
  initialize  apply migrations and create the admin member
  seed        apply migrations, create the admin and load development data

Flags:
`)
	flag.PrintDefaults()
}

func main() {
	steps := flag.Int("steps", 1, "number of migrations to roll back with down")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *steps); err != nil {
		os.Exit(1)
	}
}

func run(command string, steps int) error {
	log := logger.New("migration").Function("run")

	config, err := config.InitConfig()
	if err != nil {
		return log.Err("failed to initialize config", err)
	}
	logger.SetLevel(config.LogLevel)

	// New applies pending migrations before returning.
	db, err := database.New(config)
	if err != nil {
		return log.Err("failed to open database", err)
	}
	defer db.Close()

	ctx := context.Background()

	switch command {
	case "up":
		log.Info("Migrations applied")
		return nil
	case "down":
		if err := db.Rollback(steps); err != nil {
			return err
		}
		return db.FlushAllCaches()
	case "initialize":
		return initialize.InitializeTables(ctx, db, config, log)
	case "seed":
		if config.IsProduction() {
			return log.Error("refusing to seed development data in production")
		}
		if err := initialize.InitializeTables(ctx, db, config, log); err != nil {
			return err
		}
		return seed.Seed(ctx, db, config, log)
	default:
		flag.Usage()
		return log.Error("unknown command", "command", command)
	}
}
