package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"economy/cmd"
	"economy/database"
	"economy/service"

	log "github.com/sirupsen/logrus"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			if err := handleMigrationCommand(); err != nil {
				log.WithError(err).Fatal("Migration error")
			}
			return
		case "catalog":
			if err := handleCatalogCommand(); err != nil {
				log.WithError(err).Fatal("Catalog error")
			}
			return
		case "simulate":
			if err := handleSimulateCommand(); err != nil {
				log.WithError(err).Fatal("Simulation error")
			}
			return
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("Received shutdown signal, shutting down gracefully...")
		cancel()
	}()

	if err := cmd.Run(ctx); err != nil {
		log.WithError(err).Fatal("Application error")
	}
}

func handleMigrationCommand() error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: economy migrate [up|down|status] [args...]")
	}

	switch os.Args[2] {
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
		return fmt.Errorf("unknown migration command: %s", os.Args[2])
	}
}

func handleCatalogCommand() error {
	if len(os.Args) < 4 || os.Args[2] != "load" {
		return fmt.Errorf("usage: economy catalog load <file.json>")
	}
	return cmd.LoadCatalog(context.Background(), os.Args[3])
}

func handleSimulateCommand() error {
	trials := 100000
	if len(os.Args) > 2 {
		n, err := strconv.Atoi(os.Args[2])
		if err != nil {
			return fmt.Errorf("usage: economy simulate [trials]: %w", err)
		}
		trials = n
	}

	result, err := cmd.SimulateRewards(service.DefaultRewardTable, trials, service.DefaultRandomSource)
	if err != nil {
		return err
	}
	cmd.PrintSimulation(os.Stdout, result)
	return nil
}
