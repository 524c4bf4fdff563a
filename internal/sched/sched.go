// Package sched runs the market's periodic background jobs: autosave,
// price decay, and market analysis. The three jobs tick independently and
// concurrently with live transactions; every pass serializes with them
// through the catalog lock.
package sched

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/talgya/dynmarket/internal/market"
	"github.com/talgya/dynmarket/internal/pricing"
)

// Analysis thresholds, from the market's tuning.
const (
	lowStockMark     = 10
	highStockMark    = 200
	criticalStock    = 5
	hotItemTrades    = 1000
	hotItemWindow    = 7 * 24 * time.Hour
	stagnantAfter    = 30 * 24 * time.Hour
	restockThreshold = 0.3 // emergency restock when this share of items is low
)

// Pruner is the optional retention hook for the append-only transaction
// log.
type Pruner interface {
	PruneTransactions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config sets the job intervals. Zero or negative disables a job.
type Config struct {
	AutosaveInterval time.Duration
	DecayInterval    time.Duration
	AnalysisInterval time.Duration
	Retention        time.Duration // transaction log retention; 0 keeps everything
}

// DefaultConfig matches the stock tuning: autosave and decay every five
// minutes, analysis hourly, keep the full log.
func DefaultConfig() Config {
	return Config{
		AutosaveInterval: 5 * time.Minute,
		DecayInterval:    5 * time.Minute,
		AnalysisInterval: time.Hour,
	}
}

// Scheduler owns the periodic jobs over one catalog.
type Scheduler struct {
	catalog *market.Catalog
	model   pricing.Model
	pruner  Pruner // may be nil
	cfg     Config
	log     *slog.Logger
	now     func() time.Time
}

// New creates a scheduler. pruner may be nil when the gateway does not
// support retention pruning.
func New(catalog *market.Catalog, model pricing.Model, pruner Pruner, cfg Config, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		catalog: catalog,
		model:   model,
		pruner:  pruner,
		cfg:     cfg,
		log:     log,
		now:     time.Now,
	}
}

// Run starts the jobs and blocks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	s.runEvery(ctx, g, "autosave", s.cfg.AutosaveInterval, s.Autosave)
	s.runEvery(ctx, g, "decay", s.cfg.DecayInterval, func(ctx context.Context) error {
		s.DecayPass()
		return nil
	})
	s.runEvery(ctx, g, "analysis", s.cfg.AnalysisInterval, func(ctx context.Context) error {
		s.AnalysisPass()
		return nil
	})

	s.log.Info("scheduler started",
		"autosave", s.cfg.AutosaveInterval,
		"decay", s.cfg.DecayInterval,
		"analysis", s.cfg.AnalysisInterval)

	err := g.Wait()
	s.log.Info("scheduler stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *Scheduler) runEvery(ctx context.Context, g *errgroup.Group, name string, interval time.Duration, job func(context.Context) error) {
	if interval <= 0 {
		s.log.Warn("job disabled", "job", name)
		return
	}
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := job(ctx); err != nil {
					// Background jobs never kill the market.
					s.log.Error("job failed", "job", name, "error", err)
				}
			}
		}
	})
}

// Autosave persists every category and item unconditionally, then applies
// transaction-log retention when configured.
func (s *Scheduler) Autosave(ctx context.Context) error {
	if err := s.catalog.SaveAll(ctx); err != nil {
		return err
	}
	if s.pruner != nil && s.cfg.Retention > 0 {
		n, err := s.pruner.PruneTransactions(ctx, s.now().Add(-s.cfg.Retention))
		if err != nil {
			return err
		}
		if n > 0 {
			s.log.Info("pruned transaction log", "removed", n)
		}
	}
	s.log.Debug("market autosaved")
	return nil
}

// DecayPass applies time-based price decay and the stock scarcity
// adjustment to every item.
func (s *Scheduler) DecayPass() {
	now := s.now()
	decayed := 0
	s.catalog.UpdateItems(func(it *market.Item) {
		buy, sell, moved := s.model.Decay(it.BuyPrice, it.SellPrice, now.Sub(it.LastUpdated))
		if moved {
			it.BuyPrice, it.SellPrice = buy, sell
			it.LastUpdated = now
			decayed++
		}
		it.BuyPrice, it.SellPrice = s.model.Scarcity(it.BuyPrice, it.SellPrice, it.Stock)
	})
	if decayed > 0 {
		s.log.Info("price decay applied", "items", decayed)
	}
}

// Report aggregates one analysis pass over the whole catalog.
type Report struct {
	Categories int     `json:"categories"`
	Items      int     `json:"items"`
	LowStock   int     `json:"low_stock"`
	HighStock  int     `json:"high_stock"`
	TotalValue float64 `json:"total_value"`
	Rebalanced int     `json:"rebalanced"`
	Stimulated int     `json:"stimulated"`
	Restocked  int     `json:"restocked"`
}

// AnalysisPass aggregates market statistics and rebalances outliers:
// high-velocity items move 10% of the way toward their suggested optimal
// prices, stagnant items get a price easing, and when too large a share of
// the catalog runs low on stock an emergency restock tops it back up.
func (s *Scheduler) AnalysisPass() Report {
	now := s.now()
	var rep Report
	rep.Categories = len(s.catalog.Categories())

	var critical []string
	s.catalog.UpdateItems(func(it *market.Item) {
		rep.Items++
		rep.TotalValue += it.Value()
		switch {
		case it.Stock <= lowStockMark:
			rep.LowStock++
		case it.Stock >= highStockMark:
			rep.HighStock++
		}
		if it.Stock <= criticalStock {
			critical = append(critical, it.ID)
		}

		idle := now.Sub(it.LastUpdated)
		stats := pricing.Stats{
			Stock:       it.Stock,
			TotalBought: it.TotalBought,
			TotalSold:   it.TotalSold,
			SinceUpdate: idle,
		}

		if it.Transactions() > hotItemTrades && idle <= hotItemWindow {
			optBuy, optSell := s.model.SuggestAdjustment(it.BuyPrice, it.SellPrice, stats)
			it.BuyPrice = s.model.Clamp(it.BuyPrice + (optBuy-it.BuyPrice)*0.1)
			it.SellPrice = s.model.Clamp(it.SellPrice + (optSell-it.SellPrice)*0.1)
			rep.Rebalanced++
		}

		if it.Transactions() == 0 && idle > stagnantAfter {
			it.BuyPrice, it.SellPrice = s.model.Stimulate(it.BuyPrice, it.SellPrice)
			rep.Stimulated++
		}
	})

	if rep.Items > 0 && float64(rep.LowStock) > float64(rep.Items)*restockThreshold {
		rep.Restocked = s.emergencyRestock(critical)
	}

	s.log.Info("market analysis",
		"categories", rep.Categories,
		"items", rep.Items,
		"low_stock", rep.LowStock,
		"high_stock", rep.HighStock,
		"total_value", humanize.CommafWithDigits(rep.TotalValue, 2),
		"rebalanced", rep.Rebalanced,
		"stimulated", rep.Stimulated,
		"restocked", rep.Restocked)
	return rep
}

// emergencyRestock tops up critically low items and charges a small price
// premium for the restocking cost.
func (s *Scheduler) emergencyRestock(critical []string) int {
	restocked := 0
	for _, id := range critical {
		err := s.catalog.UpdateItem(id, func(it *market.Item) {
			if it.Stock > criticalStock {
				return // refilled by sales in the meantime
			}
			top := min(50, max(10, it.Stock*10))
			it.Stock += top
			it.BuyPrice = s.model.Clamp(it.BuyPrice * 1.01)
			restocked++
		})
		if err != nil {
			continue // removed since the pass; nothing to do
		}
	}
	if restocked > 0 {
		s.log.Warn("emergency restock", "items", restocked)
	}
	return restocked
}
