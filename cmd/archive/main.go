// Command archive runs one snapshot archival pass and prints its summary.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/politicianfinder/evalengine/internal/adapters/repository"
	service "github.com/politicianfinder/evalengine/internal/app"
	"github.com/politicianfinder/evalengine/internal/config"
	"github.com/politicianfinder/evalengine/pkg/logger"
)

func main() {
	var (
		date     = flag.String("date", "", "Snapshot date YYYY-MM-DD (default: today, UTC)")
		lookback = flag.Int("lookback", 0, "Lookback window in days (default: archive_lookback_days)")
	)
	flag.Parse()

	if err := run(*date, *lookback); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(date string, lookback int) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	_ = logger.SetLevelString(cfg.LogLevel)

	day := time.Now().UTC()
	if date != "" {
		if day, err = time.Parse(time.DateOnly, date); err != nil {
			return fmt.Errorf("invalid -date %q: %w", date, err)
		}
	}
	if lookback == 0 {
		lookback = cfg.ArchiveLookbackDays
	}

	store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN, repository.WithMaxOpenConns(cfg.DBMaxOpenConns))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	svc := service.New(store, service.WithLogger(logger.Get()))

	runCtx, cancel := context.WithTimeout(ctx, cfg.ArchiveTimeout())
	defer cancel()

	summary, err := svc.RunSnapshotArchival(runCtx, day, lookback)
	if err != nil {
		return fmt.Errorf("archival: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
