package market

import "context"

// Gateway is the durable store for categories, items, and the append-only
// transaction log. Save operations are upserts: saving the same state
// twice leaves the stored state identical to a single save. Any storage
// technology can implement it.
type Gateway interface {
	LoadCategories(ctx context.Context) ([]Category, error)
	LoadItems(ctx context.Context) ([]Item, error)
	SaveCategory(ctx context.Context, c Category) error
	SaveItem(ctx context.Context, it Item) error
	DeleteCategory(ctx context.Context, id string) error
	DeleteItem(ctx context.Context, id string) error
	AppendTransaction(ctx context.Context, r Record) error
	RecentTransactions(ctx context.Context, limit int) ([]Record, error)
	ResetAll(ctx context.Context) error
}

// Currency is the external ledger holding player funds. All calls are
// synchronous and fallible; the engine never retries them.
type Currency interface {
	Balance(actor string) float64
	HasBalance(actor string, amount float64) bool
	Withdraw(actor string, amount float64) error
	Deposit(actor string, amount float64) error
}

// Custody is the external goods store (the player's inventory). Grant is
// bounded by capacity, Take by held quantity.
type Custody interface {
	CanHold(actor, kind string, amount int) bool
	Grant(actor, kind string, amount int) error
	Take(actor, kind string, amount int) error
	Count(actor, kind string) int
}
