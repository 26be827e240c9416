// Command seed loads a YAML fixture of flights, seats and bookings into
// the kiosk MySQL database.  Database settings come from the same
// DB_* variables the server uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/iliyamo/airport-kiosk/internal/config"
	"github.com/iliyamo/airport-kiosk/internal/database"
	"github.com/iliyamo/airport-kiosk/internal/repository"
	"github.com/iliyamo/airport-kiosk/internal/seed"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "seed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		filePath string
		migrate  bool
		dryRun   bool
	)
	flagSet := pflag.NewFlagSet("seed", pflag.ContinueOnError)
	flagSet.StringVarP(&filePath, "file", "f", "fixtures/kiosk.yaml", "path to the YAML fixture")
	flagSet.BoolVar(&migrate, "migrate", false, "create missing tables before loading")
	flagSet.BoolVar(&dryRun, "dry-run", false, "validate the fixture and report counts without touching the database")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		return fmt.Errorf("unexpected argument: %s", args[0])
	}

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	fx, err := seed.LoadFile(filePath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if dryRun {
		res, err := seed.Apply(ctx, seed.Discard{}, fx, log)
		if err != nil {
			return err
		}
		fmt.Printf("fixture %s is valid: %d flights, %d seats, %d bookings\n", filePath, res.Flights, res.Seats, res.Bookings)
		return nil
	}

	_ = godotenv.Load()
	_ = os.Setenv("STORE_BACKEND", config.StoreMySQL)
	cfg := config.Load()
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer db.Close()
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}
	sink := seed.SQLSink{
		Flights:  repository.NewFlightRepo(db),
		Seats:    repository.NewSeatRepo(db),
		Bookings: repository.NewBookingRepo(db),
	}
	res, err := seed.Apply(ctx, sink, fx, log)
	if err != nil {
		return err
	}
	fmt.Printf("loaded %d flights, %d seats (%d already present), %d bookings\n", res.Flights, res.Seats, res.Skipped, res.Bookings)
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `seed loads kiosk fixtures into MySQL.

Usage:
  seed [flags]

Flags:
%s`, flagSet.FlagUsages())
}
