package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/talgya/dynmarket/internal/market"
)

// Trade and fund endpoints let operators exercise the engine from the
// standalone daemon with synthetic actors. A game server embedding the
// market calls the engine directly instead.

type tradeRequest struct {
	Actor     string `json:"actor"`
	Item      string `json:"item"`
	Direction string `json:"direction"` // "BUY" or "SELL"
	Amount    int    `json:"amount"`
}

type fundRequest struct {
	Actor  string  `json:"actor"`
	Funds  float64 `json:"funds"`
	Kind   string  `json:"kind"`
	Amount int     `json:"amount"`
}

type adjustRequest struct {
	Item       string   `json:"item"`
	BuyPrice   *float64 `json:"buy_price"`
	SellPrice  *float64 `json:"sell_price"`
	Stock      *int     `json:"stock"`
	StockDelta *int     `json:"stock_delta"`
}

func (s *Server) handleTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.Actor == "" || req.Item == "" {
		http.Error(w, "actor and item are required", http.StatusBadRequest)
		return
	}
	if s.Throttle != nil && !s.Throttle.Allow(req.Actor) {
		w.Header().Set("Retry-After", s.Throttle.RetryAfter(req.Actor))
		http.Error(w, "trade rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	var receipt market.Receipt
	var err error
	switch market.Direction(req.Direction) {
	case market.Buy:
		receipt, err = s.Engine.Purchase(r.Context(), req.Actor, req.Item, req.Amount)
	case market.Sell:
		receipt, err = s.Engine.SellGoods(r.Context(), req.Actor, req.Item, req.Amount)
	default:
		http.Error(w, "direction must be BUY or SELL", http.StatusBadRequest)
		return
	}
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, market.ErrNotFound) {
			status = http.StatusNotFound
		} else if errors.Is(err, market.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, receipt)
}

// handleAdjust applies operator overrides to one item: a clamped price
// pair, an absolute stock level, or a stock delta.
func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.Item == "" {
		http.Error(w, "item is required", http.StatusBadRequest)
		return
	}
	if (req.BuyPrice == nil) != (req.SellPrice == nil) {
		http.Error(w, "buy_price and sell_price must be set together", http.StatusBadRequest)
		return
	}

	it, err := s.Catalog.FindByID(req.Item)
	if err != nil {
		it, err = s.Catalog.FindByKind(req.Item)
	}
	if err != nil {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}

	if req.BuyPrice != nil {
		err = s.Catalog.SetItemPrices(r.Context(), s.Model, it.ID, *req.BuyPrice, *req.SellPrice)
	}
	if err == nil && req.Stock != nil {
		err = s.Catalog.SetItemStock(r.Context(), it.ID, *req.Stock)
	}
	if err == nil && req.Stock == nil && req.StockDelta != nil {
		err = s.Catalog.AdjustItemStock(r.Context(), it.ID, *req.StockDelta)
	}
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, market.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	it, err = s.Catalog.FindByID(it.ID)
	if err != nil {
		http.Error(w, "item not found", http.StatusNotFound)
		return
	}
	writeJSON(w, it)
}

// handleFund seeds a synthetic actor with funds and goods so trades can be
// exercised against the in-memory collaborators.
func (s *Server) handleFund(w http.ResponseWriter, r *http.Request) {
	var req fundRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	if req.Actor == "" {
		http.Error(w, "actor is required", http.StatusBadRequest)
		return
	}
	if req.Funds > 0 {
		if err := s.Bank.Deposit(req.Actor, req.Funds); err != nil {
			slog.Error("fund deposit", "actor", req.Actor, "error", err)
			http.Error(w, "deposit failed", http.StatusInternalServerError)
			return
		}
	}
	if req.Kind != "" && req.Amount > 0 {
		if err := s.Vault.Grant(req.Actor, req.Kind, req.Amount); err != nil {
			slog.Error("fund grant", "actor", req.Actor, "error", err)
			http.Error(w, "grant failed", http.StatusInternalServerError)
			return
		}
	}
	writeJSON(w, map[string]any{
		"actor":   req.Actor,
		"balance": s.Bank.Balance(req.Actor),
	})
}
