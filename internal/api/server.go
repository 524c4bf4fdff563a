// Package api serves the read-only market observation API over HTTP.
// GET endpoints are public snapshots of catalog state; POST endpoints are
// admin triggers and require a bearer token. Trading itself stays a
// library API consumed by the host process.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/dynmarket/internal/market"
	"github.com/talgya/dynmarket/internal/pricing"
	"github.com/talgya/dynmarket/internal/sched"
)

// Server serves market state over HTTP.
type Server struct {
	Catalog  *market.Catalog
	Engine   *market.Engine
	Sched    *sched.Scheduler
	Gateway  market.Gateway
	Bank     market.Currency
	Vault    market.Custody
	Model    pricing.Model
	Addr     string
	AdminKey string    // Bearer token for POST endpoints. Empty = POST disabled.
	Throttle *Throttle // per-actor trade cap; nil disables throttling

	started time.Time
}

// Start begins serving in a goroutine.
func (s *Server) Start() {
	s.started = time.Now()

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/categories", s.handleCategories)
	mux.HandleFunc("/api/v1/items", s.handleItems)
	mux.HandleFunc("/api/v1/item/", s.handleItemDetail)
	mux.HandleFunc("/api/v1/transactions", s.handleTransactions)

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/decay", s.adminOnly(s.handleDecay))
	mux.HandleFunc("/api/v1/analyze", s.adminOnly(s.handleAnalyze))
	mux.HandleFunc("/api/v1/reset", s.adminOnly(s.handleReset))
	mux.HandleFunc("/api/v1/trade", s.adminOnly(s.handleTrade))
	mux.HandleFunc("/api/v1/fund", s.adminOnly(s.handleFund))
	mux.HandleFunc("/api/v1/adjust", s.adminOnly(s.handleAdjust))

	slog.Info("market API starting", "addr", s.Addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := http.ListenAndServe(s.Addr, mux); err != nil {
			slog.Error("market API server error", "error", err)
		}
	}()
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	return ok && token == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth and the POST
// method.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.AdminKey == "" {
			http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
			return
		}
		if !s.checkBearerToken(r) {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	items := s.Catalog.Items()
	totalValue := 0.0
	totalStock := 0
	for i := range items {
		totalValue += items[i].Value()
		totalStock += items[i].Stock
	}

	writeJSON(w, map[string]any{
		"categories":  len(s.Catalog.Categories()),
		"items":       len(items),
		"total_stock": totalStock,
		"total_value": humanize.CommafWithDigits(totalValue, 2),
		"uptime":      time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Catalog.View())
}

func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Catalog.Items())
}

func (s *Server) handleItemDetail(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/item/")
	it, err := s.Catalog.FindByID(id)
	if err != nil {
		it, err = s.Catalog.FindByKind(id)
	}
	if err != nil {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, it)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	recs, err := s.Gateway.RecentTransactions(r.Context(), limit)
	if err != nil {
		slog.Error("load transactions", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, recs)
}

func (s *Server) handleDecay(w http.ResponseWriter, r *http.Request) {
	s.Sched.DecayPass()
	writeJSON(w, map[string]string{"status": "decay pass complete"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sched.AnalysisPass())
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := s.Catalog.Reset(r.Context()); err != nil {
		slog.Error("market reset", "error", err)
		http.Error(w, "reset failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"status": "market reset to defaults"})
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
