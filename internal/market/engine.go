package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/talgya/dynmarket/internal/pricing"
)

// Engine orchestrates buys and sells against the shared catalog: validate,
// move funds and goods through the external collaborators, mutate stock
// and prices, persist, and append an audit record. Each call runs as one
// atomic step under the catalog lock.
type Engine struct {
	catalog *Catalog
	model   pricing.Model
	bank    Currency
	vault   Custody
	log     *slog.Logger
	now     func() time.Time
}

// Receipt reports a completed trade back to the caller.
type Receipt struct {
	ItemID    string  `json:"item_id"`
	Kind      string  `json:"kind"`
	Amount    int     `json:"amount"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// NewEngine creates a transaction engine over the given catalog and
// external collaborators.
func NewEngine(catalog *Catalog, model pricing.Model, bank Currency, vault Custody, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		catalog: catalog,
		model:   model,
		bank:    bank,
		vault:   vault,
		log:     log,
		now:     time.Now,
	}
}

// Purchase buys amount units of an item from the market. Validation
// failures are side-effect-free; a delivery failure after the withdrawal
// is compensated with a refund before the error is surfaced. A persistence
// failure after the trade completed is logged and the purchase still
// succeeds.
func (e *Engine) Purchase(ctx context.Context, actor, itemID string, amount int) (Receipt, error) {
	if amount <= 0 {
		return Receipt{}, fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}

	e.catalog.mu.Lock()
	defer e.catalog.mu.Unlock()

	it, ok := e.catalog.items[itemID]
	if !ok {
		return Receipt{}, fmt.Errorf("item %q: %w", itemID, ErrNotFound)
	}
	if it.Stock < amount {
		return Receipt{}, &InsufficientStockError{Available: it.Stock}
	}

	cost := it.BuyPrice * float64(amount)
	if !e.bank.HasBalance(actor, cost) {
		return Receipt{}, &InsufficientFundsError{Required: cost}
	}
	if !e.vault.CanHold(actor, it.Kind, amount) {
		return Receipt{}, ErrInsufficientSpace
	}

	unitPrice := it.BuyPrice
	if err := e.bank.Withdraw(actor, cost); err != nil {
		// The balance may have been drained elsewhere between the check
		// and the withdrawal; keep the shortfall typed.
		if !e.bank.HasBalance(actor, cost) {
			return Receipt{}, &InsufficientFundsError{Required: cost}
		}
		return Receipt{}, fmt.Errorf("withdraw %.2f from %s: %w", cost, actor, err)
	}
	if err := e.vault.Grant(actor, it.Kind, amount); err != nil {
		// Funds already left the actor; refund before reporting.
		if refundErr := e.bank.Deposit(actor, cost); refundErr != nil {
			e.log.Error("refund after failed delivery",
				"actor", actor, "amount", cost, "error", refundErr)
		}
		return Receipt{}, &DeliveryFailedError{Cause: err}
	}

	it.Stock -= amount
	it.BuyPrice, it.SellPrice = e.model.ApplyBuy(it.BuyPrice, it.SellPrice, amount)
	it.TotalBought += amount
	it.LastUpdated = e.now()

	e.persist(ctx, *it, Record{
		ID:        uuid.NewString(),
		Actor:     actor,
		ItemID:    it.ID,
		Category:  it.CategoryID,
		Direction: Buy,
		Amount:    amount,
		UnitPrice: unitPrice,
		At:        it.LastUpdated,
	})

	e.log.Info("purchase",
		"actor", actor, "item", it.ID, "amount", amount, "total", cost)
	return Receipt{
		ItemID:    it.ID,
		Kind:      it.Kind,
		Amount:    amount,
		UnitPrice: unitPrice,
		Total:     cost,
	}, nil
}

// SellGoods sells amount units of the actor's goods into the market. The
// item is resolved by id first, then by good kind (the common "sell what
// I'm holding" path). Mirrors Purchase: goods leave the actor before the
// credit, and a failed credit is compensated by returning the goods.
func (e *Engine) SellGoods(ctx context.Context, actor, ref string, amount int) (Receipt, error) {
	if amount <= 0 {
		return Receipt{}, fmt.Errorf("amount %d: %w", amount, ErrInvalidAmount)
	}

	e.catalog.mu.Lock()
	defer e.catalog.mu.Unlock()

	it, ok := e.catalog.items[ref]
	if !ok {
		it, ok = e.catalog.kinds[ref]
	}
	if !ok {
		return Receipt{}, fmt.Errorf("item %q: %w", ref, ErrNotFound)
	}

	if held := e.vault.Count(actor, it.Kind); held < amount {
		return Receipt{}, &InsufficientHoldingsError{Held: held}
	}

	proceeds := it.SellPrice * float64(amount)
	unitPrice := it.SellPrice
	if err := e.vault.Take(actor, it.Kind, amount); err != nil {
		// Same race as the funds check in Purchase: holdings can shrink
		// between the count and the take.
		if held := e.vault.Count(actor, it.Kind); held < amount {
			return Receipt{}, &InsufficientHoldingsError{Held: held}
		}
		return Receipt{}, fmt.Errorf("take %d %s from %s: %w", amount, it.Kind, actor, err)
	}
	if err := e.bank.Deposit(actor, proceeds); err != nil {
		// Goods already left the actor; hand them back before reporting.
		if returnErr := e.vault.Grant(actor, it.Kind, amount); returnErr != nil {
			e.log.Error("return goods after failed credit",
				"actor", actor, "kind", it.Kind, "amount", amount, "error", returnErr)
		}
		return Receipt{}, &DeliveryFailedError{Cause: err}
	}

	it.Stock += amount
	it.BuyPrice, it.SellPrice = e.model.ApplySell(it.BuyPrice, it.SellPrice, amount)
	it.TotalSold += amount
	it.LastUpdated = e.now()

	e.persist(ctx, *it, Record{
		ID:        uuid.NewString(),
		Actor:     actor,
		ItemID:    it.ID,
		Category:  it.CategoryID,
		Direction: Sell,
		Amount:    amount,
		UnitPrice: unitPrice,
		At:        it.LastUpdated,
	})

	e.log.Info("sale",
		"actor", actor, "item", it.ID, "amount", amount, "total", proceeds)
	return Receipt{
		ItemID:    it.ID,
		Kind:      it.Kind,
		Amount:    amount,
		UnitPrice: unitPrice,
		Total:     proceeds,
	}, nil
}

// MaxAffordable reports how many units the actor could buy at the current
// price, bounded by stock.
func (e *Engine) MaxAffordable(actor, itemID string) (int, error) {
	it, err := e.catalog.FindByID(itemID)
	if err != nil {
		return 0, err
	}
	if it.BuyPrice <= 0 {
		return 0, nil
	}
	n := int(e.bank.Balance(actor) / it.BuyPrice)
	if n > it.Stock {
		n = it.Stock
	}
	return n, nil
}

// persist writes the traded item and its audit record through the
// gateway. The economy favors availability over audit durability: errors
// are logged and the completed trade stands.
func (e *Engine) persist(ctx context.Context, it Item, rec Record) {
	if err := e.catalog.gw.SaveItem(ctx, it); err != nil {
		e.log.Error("persist item after trade", "item", it.ID, "error", err)
	}
	if err := e.catalog.gw.AppendTransaction(ctx, rec); err != nil {
		e.log.Error("append transaction record", "item", it.ID, "error", err)
	}
}
