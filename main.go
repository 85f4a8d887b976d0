package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/iamwavecut/shopkeeper/internal/bot"
	"github.com/iamwavecut/shopkeeper/internal/commerce"
	"github.com/iamwavecut/shopkeeper/internal/config"
	"github.com/iamwavecut/shopkeeper/internal/db/sqlite"
	"github.com/iamwavecut/shopkeeper/internal/handlers/chat"
	"github.com/iamwavecut/shopkeeper/internal/handlers/commands"
	"github.com/iamwavecut/shopkeeper/internal/handlers/moderation"
	"github.com/iamwavecut/shopkeeper/internal/i18n"
	"github.com/iamwavecut/shopkeeper/internal/infra"
	"github.com/iamwavecut/shopkeeper/internal/infrastructure/telegram"
	"github.com/iamwavecut/shopkeeper/internal/lifecycle"
	"github.com/iamwavecut/shopkeeper/internal/observability"
	"github.com/iamwavecut/shopkeeper/internal/policy/permissions"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log.SetFormatter(&config.NbFormatter{})
	log.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		log.WithField("error", err.Error()).Fatal("cant load config")
	}
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg); err != nil {
		log.WithField("error", err.Error()).Fatal("shopkeeper stopped")
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	entry := log.WithField("object", "main")

	workDir, err := infra.EnsureWorkDir(cfg.DotPath)
	if err != nil {
		return err
	}

	shutdownObservability, err := observability.Init(ctx, filepath.Join(workDir, "audit.log"))
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownObservability(shutdownCtx); err != nil {
			entry.WithField("error", err.Error()).Warn("cant shutdown observability")
		}
	}()

	store, err := sqlite.NewSQLiteClient(ctx, workDir, "shopkeeper.db")
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	botAPI, err := api.NewBotAPI(cfg.TelegramAPIToken)
	if err != nil {
		return err
	}
	if log.Level(cfg.LogLevel) == log.TraceLevel {
		botAPI.Debug = true
	}
	entry.WithFields(log.Fields{
		"bot":      botAPI.Self.UserName,
		"language": i18n.GetLanguageName(cfg.DefaultLanguage),
	}).Info("authorized")

	connector := telegram.NewConnector(botAPI)
	bans := moderation.NewBanService(store)
	gate := permissions.NewGate(connector, bans, cfg.OwnerID)
	ledger := moderation.NewLedger(moderation.LedgerConfig{
		MaxWarnings:   cfg.Moderation.MaxWarnings,
		SpamWindow:    cfg.Moderation.SpamWindow,
		SpamThreshold: cfg.Moderation.SpamThreshold,
	}, time.Now)
	detector := moderation.NewDetector(cfg.Moderation, ledger)
	moderator := moderation.NewModerator(connector, bans, detector, ledger, store, cfg.Moderation, cfg.DefaultLanguage)

	router, err := commands.New(commands.Deps{
		Messenger: connector,
		Gate:      gate,
		Store:     store,
		Bans:      bans,
		Ledger:    ledger,
		Sales:     commerce.NewSales(store, cfg.Sales, cfg.DefaultLanguage),
		Bookings:  commerce.NewBookings(store, cfg.Services, cfg.DefaultLanguage, time.Now),
		Config:    cfg,
		Now:       time.Now,
	})
	if err != nil {
		return err
	}

	processor := bot.NewUpdateProcessor(cfg.EnabledHandlers, []bot.NamedHandler{
		{Name: "moderation", Handler: moderator},
		{Name: "registrar", Handler: chat.NewRegistrar(store)},
		{Name: "commands", Handler: router},
		{Name: "fallback", Handler: chat.Fallback{}},
	}, chat.NewGreeter(connector, cfg.Moderation, cfg.DefaultLanguage))

	runtime := lifecycle.NewRuntime()
	if cfg.Metrics.Enabled {
		runtime.Register("metrics", observability.NewMetricsServer(cfg.Metrics.Addr))
	}
	runtime.Register("poller", telegram.NewPoller(botAPI, processor, connector, cfg.Workers))

	if err := runtime.Start(ctx); err != nil {
		return err
	}
	entry.Info("started")

	<-ctx.Done()
	entry.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return runtime.Stop(stopCtx)
}
