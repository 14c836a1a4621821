package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/kds/cmd/utils/internal/commands"
)

const (
	appName    = "kds-utils"
	appVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	// print-preview takes two positional arguments before the flags
	var positional []string
	if command == "print-preview" {
		if len(args) < 2 {
			fmt.Printf("print-preview needs a ticket id and a station\n\n")
			printUsage()
			os.Exit(1)
		}
		positional, args = args[:2], args[2:]
	}

	config, err := apt.LoadConfig("UTILS", args)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := apt.NewLogger(logLevel)

	ctx := context.Background()

	switch command {
	case "seed-demo":
		if err := commands.SeedDemo(ctx, config, logger); err != nil {
			log.Fatalf("❌ Demo seeding failed: %v", err)
		}
		logger.Info("✅ Demo seeding completed successfully")

	case "clear-demo":
		if err := commands.ClearDemo(ctx, config, logger); err != nil {
			log.Fatalf("❌ Clear demo data failed: %v", err)
		}
		logger.Info("✅ Demo data cleared successfully")

	case "reset-db":
		if err := commands.ResetDB(ctx, config, logger); err != nil {
			log.Fatalf("❌ Database reset failed: %v", err)
		}
		logger.Info("✅ Database reset completed successfully")

	case "print-preview":
		if err := commands.PrintPreview(ctx, config, logger, os.Stdout, positional[0], positional[1]); err != nil {
			log.Fatalf("❌ Print preview failed: %v", err)
		}

	case "recent-ready":
		if err := commands.RecentReady(ctx, config, logger, os.Stdout); err != nil {
			log.Fatalf("❌ Reading ready notifications failed: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - KDS utility commands

Usage:
  %s <command> [options]

Commands:
  seed-demo                             Apply demo seeding (monitors, open tickets and sent lines)
  clear-demo                            Clear demo data and its seed records
  reset-db                              Drop the KDS database (USE WITH CAUTION)
  print-preview <ticket-id> <station>   Render the ticket a station would print
  recent-ready                          List table-ready notifications kept by the stream
  version                               Print version information
  help                                  Show this help message

Environment Variables:
  UTILS_DB_MONGO_URL   MongoDB connection URL (default: mongodb://localhost:27017)
  UTILS_DB_MONGO_NAME  KDS database name (default: appetite_kds)
  UTILS_NATS_URL       NATS server URL (default: nats://localhost:4222)
  UTILS_LOG_LEVEL      Log level: debug, info, warn, error (default: info)

Examples:
  %s seed-demo
  %s print-preview 6f1c0e4a-2d0b-4d7e-9a51-1c2f3b4d5e6f kitchen
  UTILS_DB_MONGO_URL=mongodb://localhost:27017 %s reset-db

`, appName, appName, appName, appName, appName)
}
