// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"telegram-onboarding-bot/internal/application"
	"telegram-onboarding-bot/internal/config"
	"telegram-onboarding-bot/internal/domain/ports/adapter"
	"telegram-onboarding-bot/internal/domain/ports/repository"
	"telegram-onboarding-bot/internal/infra/logging"
	"telegram-onboarding-bot/internal/infra/metrics"
	red "telegram-onboarding-bot/internal/infra/redis"
	"telegram-onboarding-bot/internal/infra/session"
	pgstore "telegram-onboarding-bot/internal/infra/store/postgres"
	"telegram-onboarding-bot/internal/infra/store/sheets"
	"telegram-onboarding-bot/internal/infra/store/sqlite"
	tele "telegram-onboarding-bot/internal/infra/telegram"
	"telegram-onboarding-bot/internal/infra/web"
	"telegram-onboarding-bot/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop Telegram adapter)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("[DEV MODE] Enabled")
	}
	metrics.Register()

	// ---- Record store ----
	records, cleanup, err := buildRecordStore(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("record store (%s): %v", cfg.Store.Backend, err)
	}
	defer cleanup()
	logger.Info().Str("backend", cfg.Store.Backend).Msg("record store ready")

	// ---- Session store ----
	var sessions repository.SessionRepository
	switch cfg.Session.Backend {
	case "redis":
		redisClient, err := red.NewClient(ctx, &cfg.Session)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer func() { _ = redisClient.Close() }()
		sessions = red.NewSessionRepo(redisClient, cfg.Session.TTL)
	default:
		mem := session.NewMemoryRepo(cfg.Session.TTL)
		go mem.StartSweeper(ctx, time.Minute)
		sessions = mem
	}
	logger.Info().Str("backend", cfg.Session.Backend).Msg("session store ready")

	// ---- Telegram client and role granter ----
	var (
		bot     *tgbotapi.BotAPI
		botPort adapter.TelegramBotAdapter
		roles   adapter.RoleGranter
	)
	if cfg.Runtime.Dev {
		botPort = tele.NewNoopBotAdapter()
		roles = tele.NoopRoleGranter{}
	} else {
		bot, err = tgbotapi.NewBotAPI(cfg.Bot.Token)
		if err != nil {
			log.Fatalf("telegram: %v", err)
		}
		botPort = tele.NewMessenger(bot)
		roles = tele.NewChatRoleGranter(bot, cfg.Bot.CommunityChatID, logger)
	}

	// ---- Use cases and facade ----
	onboardingUC := usecase.NewOnboardingUseCase(
		sessions, records, roles,
		usecase.RepeatPolicy(cfg.Onboarding.RepeatPolicy),
		cfg.Store.Backend, logger,
	)
	adminUC := usecase.NewAdminUseCase(records, logger)
	notifier := usecase.NewAdminNotifier(botPort, cfg.Bot.AdminIDs, logger)
	facade := application.NewBotFacade(onboardingUC, adminUC, notifier)

	// ---- Telegram polling ----
	if cfg.Runtime.Dev {
		logger.Info().Msg("dev mode: Telegram polling disabled, noop adapter only")
	} else {
		if strings.ToLower(cfg.Bot.Mode) != "" && strings.ToLower(cfg.Bot.Mode) != "polling" {
			logger.Warn().Str("mode", cfg.Bot.Mode).Msg("bot mode not implemented, falling back to polling")
		}
		botAdapter, err := tele.NewRealBotAdapter(bot, &cfg.Bot, facade, logger)
		if err != nil {
			log.Fatalf("telegram adapter: %v", err)
		}
		go func() {
			if err := botAdapter.StartPolling(ctx); err != nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
	}

	// ---- Admin HTTP server ----
	if cfg.Admin.Port > 0 {
		auth := web.NewAuthManager(cfg.Admin.JWTSecret, 30*time.Minute)
		webSrv := web.NewServer(records, adminUC, auth, logger)
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Admin.Port)
			logger.Info().Str("addr", addr).Msg("admin http listening")
			if err := webSrv.Serve(ctx, addr); err != nil {
				logger.Error().Err(err).Msg("admin http server stopped")
			}
		}()
	} else {
		logger.Warn().Msg("admin.port not set, admin http server disabled")
	}

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()
}

// buildRecordStore picks the durable backend from config. The returned
// cleanup is a no-op for backends without pooled connections.
func buildRecordStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (repository.RecordRepository, func(), error) {
	switch cfg.Store.Backend {
	case "sqlite":
		repo, err := sqlite.NewRecordRepo(cfg.Store.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	case "postgres":
		pool, err := pgstore.NewPgxPool(ctx, cfg.Store.Postgres, 10)
		if err != nil {
			return nil, nil, err
		}
		return pgstore.NewRecordRepo(pool), pool.Close, nil
	case "sheets":
		repo, err := sheets.NewRecordRepo(ctx, cfg.Store.Sheets, logger)
		if err != nil {
			return nil, nil, err
		}
		return repo, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
