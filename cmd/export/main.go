// File: cmd/export/main.go
//
// Offline CSV dump of the onboarding records, for operators without access
// to the bot's /export command or the admin API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"telegram-onboarding-bot/internal/config"
	"telegram-onboarding-bot/internal/infra/logging"
	pgstore "telegram-onboarding-bot/internal/infra/store/postgres"
	"telegram-onboarding-bot/internal/infra/store/sheets"
	"telegram-onboarding-bot/internal/infra/store/sqlite"
	"telegram-onboarding-bot/internal/usecase"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	outPath := flag.String("out", "", "output file (default: stdout)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	var uc usecase.AdminUseCase
	switch cfg.Store.Backend {
	case "sqlite":
		repo, err := sqlite.NewRecordRepo(cfg.Store.SQLitePath)
		if err != nil {
			log.Fatalf("sqlite: %v", err)
		}
		uc = usecase.NewAdminUseCase(repo, logger)
	case "postgres":
		pool, err := pgstore.NewPgxPool(ctx, cfg.Store.Postgres, 2)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer pool.Close()
		uc = usecase.NewAdminUseCase(pgstore.NewRecordRepo(pool), logger)
	case "sheets":
		repo, err := sheets.NewRecordRepo(ctx, cfg.Store.Sheets, logger)
		if err != nil {
			log.Fatalf("sheets: %v", err)
		}
		uc = usecase.NewAdminUseCase(repo, logger)
	default:
		log.Fatalf("unknown store backend %q", cfg.Store.Backend)
	}

	data, err := uc.ExportCSV(ctx)
	if err != nil {
		log.Fatalf("export: %v", err)
	}

	if *outPath == "" {
		fmt.Print(string(data))
		return
	}
	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatalf("write %s: %v", *outPath, err)
	}
	log.Printf("wrote %d bytes to %s", len(data), *outPath)
}
