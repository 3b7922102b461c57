package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/timetable-api/internal/models"
	"github.com/noah-isme/timetable-api/internal/repository"
	"github.com/noah-isme/timetable-api/internal/scheduler"
	"github.com/noah-isme/timetable-api/pkg/config"
	"github.com/noah-isme/timetable-api/pkg/database"
	"github.com/noah-isme/timetable-api/pkg/logger"
)

func main() {
	var (
		catalogDir    = flag.String("catalog", "./data/catalog", "directory holding the catalog CSV files")
		seed          = flag.Int64("seed", 1, "seed for lab slot shuffling")
		output        = flag.String("out", "", "assignments CSV path (stdout when empty)")
		conflictsPath = flag.String("conflicts", "", "conflicts CSV path (stderr when empty)")
		sessionHours  = flag.Float64("session-hours", scheduler.DefaultSessionHours, "weekly hours charged per lab session")
		timeout       = flag.Duration("timeout", time.Minute, "generation timeout")
		importDB      = flag.Bool("import-db", false, "replace the Postgres catalog with the CSV catalog before generating")
		verbose       = flag.Bool("v", false, "log per-unit progress")
	)
	flag.Parse()

	logr, err := logger.NewCLI(*verbose)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	catalog, err := repository.NewCSVCatalogRepository(*catalogDir).Load(ctx)
	if err != nil {
		logr.Fatal("failed to load catalog", zap.String("dir", *catalogDir), zap.Error(err))
	}

	if *importDB {
		if err := importCatalog(ctx, logr, catalog); err != nil {
			logr.Fatal("failed to import catalog", zap.Error(err))
		}
	}

	result, err := scheduler.Generate(ctx, catalog, *seed,
		scheduler.WithLogger(logr),
		scheduler.WithSessionHours(*sessionHours))
	if err != nil {
		logr.Fatal("generation failed", zap.Int64("seed", *seed), zap.Error(err))
	}

	if err := writeTo(*output, os.Stdout, func(w io.Writer) error {
		return repository.WriteAssignments(w, catalog.Grid, result.Assignments)
	}); err != nil {
		logr.Fatal("failed to write assignments", zap.Error(err))
	}
	if len(result.Conflicts) > 0 {
		if err := writeTo(*conflictsPath, os.Stderr, func(w io.Writer) error {
			return repository.WriteConflicts(w, result.Conflicts)
		}); err != nil {
			logr.Fatal("failed to write conflicts", zap.Error(err))
		}
	}

	logr.Info("timetable generated",
		zap.Int64("seed", result.Seed),
		zap.Int("assignments", len(result.Assignments)),
		zap.Int("conflicts", len(result.Conflicts)),
		zap.Int("lectures_placed", result.Stats.LecturesPlaced),
		zap.Int("lectures_requested", result.Stats.LecturesRequested),
		zap.Int("labs_placed", result.Stats.LabsPlaced),
		zap.Int("labs_requested", result.Stats.LabsRequested))
}

func importCatalog(ctx context.Context, logr *zap.Logger, catalog *models.Catalog) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.NewPostgres(ctx, cfg.Database, logr)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.RunMigrations(db.DB, logr); err != nil {
		return err
	}
	if err := repository.NewCatalogRepository(db).Replace(ctx, catalog); err != nil {
		return err
	}
	logr.Info("catalog imported",
		zap.Int("rooms", len(catalog.Rooms)),
		zap.Int("groups", len(catalog.Groups)),
		zap.Int("lectures", len(catalog.Lectures)),
		zap.Int("labs", len(catalog.Labs)))
	return nil
}

func writeTo(path string, fallback io.Writer, write func(io.Writer) error) error {
	if path == "" {
		return write(fallback)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
