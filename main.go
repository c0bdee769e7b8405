package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"spinningrats/cmd"
	"spinningrats/database"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.Fatal("Migration error:", err)
			}
			return
		case "import-json":
			if err := handleImportCommand(); err != nil {
				log.Fatal("Import error:", err)
			}
			return
		case "leaderboard":
			if err := handleLeaderboardCommand(); err != nil {
				log.Fatal("Leaderboard error:", err)
			}
			return
		}
	}

	// Normal site operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Println("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.Fatal("Application error:", err)
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: spinningrats migrate [up|down|status] [args...]")
	}

	command := os.Args[2]
	switch command {
	case "up":
		return database.MigrateUp()
	case "down":
		steps := "1"
		if len(os.Args) > 3 {
			steps = os.Args[3]
		}
		return database.MigrateDown(steps)
	case "status":
		return database.MigrateStatus()
	default:
		return fmt.Errorf("unknown migration command: %s", command)
	}
}

func handleImportCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: spinningrats import-json <path>")
	}
	return cmd.ImportJSON(context.Background(), os.Args[2])
}

func handleLeaderboardCommand() error {
	n := 0
	if len(os.Args) > 2 {
		parsed, err := strconv.Atoi(os.Args[2])
		if err != nil || parsed <= 0 {
			return fmt.Errorf("usage: spinningrats leaderboard [n]")
		}
		n = parsed
	}
	return cmd.PrintLeaderboard(context.Background(), os.Stdout, n)
}
