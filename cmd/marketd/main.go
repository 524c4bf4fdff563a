// Command marketd runs the dynamic market as a standalone daemon: it
// loads or seeds the catalog, starts the background jobs, and serves the
// observation API until interrupted. A game server embedding the market
// would wire the same pieces in-process and supply its own currency and
// inventory collaborators.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/dynmarket/internal/api"
	"github.com/talgya/dynmarket/internal/config"
	"github.com/talgya/dynmarket/internal/ledger"
	"github.com/talgya/dynmarket/internal/market"
	"github.com/talgya/dynmarket/internal/pricing"
	"github.com/talgya/dynmarket/internal/sched"
	"github.com/talgya/dynmarket/internal/store/sqlite"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "path to TOML config (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DB.Path), 0755)
	store, err := sqlite.Open(cfg.DB.Path)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("database opened", "path", cfg.DB.Path)

	// ── Catalog ───────────────────────────────────────────────────────
	catalog := market.NewCatalog(store, logger)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := catalog.Load(ctx); err != nil {
		slog.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}

	model := pricing.Model{
		MinPrice:       cfg.Market.MinPrice,
		MaxPrice:       cfg.Market.MaxPrice,
		AdjustmentRate: cfg.Market.AdjustmentRate,
	}

	// The standalone daemon trades against in-memory collaborators; an
	// embedding game server passes its own ledger here instead.
	bank := ledger.NewBank()
	vault := ledger.NewVault(0)
	engine := market.NewEngine(catalog, model, bank, vault, logger)

	// ── Scheduler ─────────────────────────────────────────────────────
	scheduler := sched.New(catalog, model, store, sched.Config{
		AutosaveInterval: cfg.Jobs.AutosaveInterval.Std(),
		DecayInterval:    cfg.Jobs.DecayInterval.Std(),
		AnalysisInterval: cfg.Jobs.AnalysisInterval.Std(),
		Retention:        cfg.Jobs.Retention.Std(),
	}, logger)

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.API.AdminKey == "" {
		slog.Warn("DYNMARKET_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Catalog:  catalog,
		Engine:   engine,
		Sched:    scheduler,
		Gateway:  store,
		Bank:     bank,
		Vault:    vault,
		Model:    model,
		Addr:     cfg.API.Addr,
		AdminKey: cfg.API.AdminKey,
	}
	if cfg.API.TradeBurst > 0 {
		apiServer.Throttle = api.NewThrottle(cfg.API.TradeBurst, time.Minute)
	}
	apiServer.Start()

	// ── Run ───────────────────────────────────────────────────────────
	if err := scheduler.Run(ctx); err != nil {
		slog.Error("scheduler error", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	saveCtx := context.Background()
	if err := catalog.SaveAll(saveCtx); err != nil {
		slog.Error("final save failed", "error", err)
	}
	slog.Info("market stopped, state saved")
}
