package market

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/talgya/dynmarket/internal/pricing"
)

// Catalog is the single shared registry of categories and items. One
// RWMutex serializes all mutating access, so a scheduled price pass and a
// live transaction on the same item cannot interleave their
// read-modify-write sequences. Structural mutations are persisted through
// the gateway before the in-memory state changes, so a failed save leaves
// the catalog untouched.
type Catalog struct {
	mu         sync.RWMutex
	categories map[string]*Category
	items      map[string]*Item // id → item, unique across the catalog
	kinds      map[string]*Item // kind → item, unique across the catalog

	gw  Gateway
	log *slog.Logger
}

// NewCatalog creates an empty catalog backed by the given gateway.
func NewCatalog(gw Gateway, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{
		categories: make(map[string]*Category),
		items:      make(map[string]*Item),
		kinds:      make(map[string]*Item),
		gw:         gw,
		log:        log,
	}
}

// Load replaces the in-memory state with the gateway's contents. When the
// store holds no categories, the default catalog is seeded and saved.
func (c *Catalog) Load(ctx context.Context) error {
	cats, err := c.gw.LoadCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}
	items, err := c.gw.LoadItems(ctx)
	if err != nil {
		return fmt.Errorf("load items: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(cats) == 0 {
		c.seedDefaultsLocked()
		if err := c.saveAllLocked(ctx); err != nil {
			return fmt.Errorf("save seeded catalog: %w", err)
		}
		c.log.Info("seeded default catalog",
			"categories", len(c.categories), "items", len(c.items))
		return nil
	}

	clear(c.categories)
	clear(c.items)
	clear(c.kinds)

	for i := range cats {
		cat := cats[i]
		c.categories[cat.ID] = &cat
	}
	orphans := 0
	for i := range items {
		it := items[i]
		if _, ok := c.categories[it.CategoryID]; !ok {
			orphans++
			continue
		}
		c.items[it.ID] = &it
		c.kinds[it.Kind] = &it
	}
	if orphans > 0 {
		c.log.Warn("skipped items with missing category", "count", orphans)
	}

	c.log.Info("catalog loaded",
		"categories", len(c.categories), "items", len(c.items))
	return nil
}

// FindByID returns a snapshot of the item with the given id.
func (c *Catalog) FindByID(id string) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	if !ok {
		return Item{}, fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	return *it, nil
}

// FindByKind returns a snapshot of the item backed by the given good kind.
// Kinds are unique across the catalog, so the match is unambiguous.
func (c *Catalog) FindByKind(kind string) (Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.kinds[kind]
	if !ok {
		return Item{}, fmt.Errorf("kind %q: %w", kind, ErrNotFound)
	}
	return *it, nil
}

// AddCategory registers and persists a new category.
func (c *Catalog) AddCategory(ctx context.Context, cat Category) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.categories[cat.ID]; ok {
		return fmt.Errorf("category %q: %w", cat.ID, ErrDuplicate)
	}
	if err := c.gw.SaveCategory(ctx, cat); err != nil {
		return fmt.Errorf("save category %q: %w", cat.ID, err)
	}
	c.categories[cat.ID] = &cat
	return nil
}

// RemoveCategory deletes a category and cascades to all items it owns.
// The cascade is atomic: the gateway removes the items together with the
// category row, and the in-memory state changes only after that succeeds.
func (c *Catalog) RemoveCategory(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.categories[id]; !ok {
		return fmt.Errorf("category %q: %w", id, ErrNotFound)
	}
	if err := c.gw.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category %q: %w", id, err)
	}
	for itemID, it := range c.items {
		if it.CategoryID == id {
			delete(c.items, itemID)
			delete(c.kinds, it.Kind)
		}
	}
	delete(c.categories, id)
	return nil
}

// AddItem registers and persists a new item under an existing category.
// Both the id and the kind must be unused anywhere in the catalog.
func (c *Catalog) AddItem(ctx context.Context, it Item) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.categories[it.CategoryID]; !ok {
		return fmt.Errorf("category %q: %w", it.CategoryID, ErrNotFound)
	}
	if _, ok := c.items[it.ID]; ok {
		return fmt.Errorf("item %q: %w", it.ID, ErrDuplicate)
	}
	if _, ok := c.kinds[it.Kind]; ok {
		return fmt.Errorf("kind %q: %w", it.Kind, ErrDuplicate)
	}
	if it.LastUpdated.IsZero() {
		it.LastUpdated = time.Now()
	}
	if err := c.gw.SaveItem(ctx, it); err != nil {
		return fmt.Errorf("save item %q: %w", it.ID, err)
	}
	c.items[it.ID] = &it
	c.kinds[it.Kind] = &it
	return nil
}

// RemoveItem deletes an item from the catalog and the store.
func (c *Catalog) RemoveItem(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	if err := c.gw.DeleteItem(ctx, id); err != nil {
		return fmt.Errorf("delete item %q: %w", id, err)
	}
	delete(c.items, id)
	delete(c.kinds, it.Kind)
	return nil
}

// MoveItem reassigns an item to another existing category.
func (c *Catalog) MoveItem(ctx context.Context, fromCat, toCat, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.categories[toCat]; !ok {
		return fmt.Errorf("category %q: %w", toCat, ErrNotFound)
	}
	it, ok := c.items[id]
	if !ok || it.CategoryID != fromCat {
		return fmt.Errorf("item %q in category %q: %w", id, fromCat, ErrNotFound)
	}
	moved := *it
	moved.CategoryID = toCat
	if err := c.gw.SaveItem(ctx, moved); err != nil {
		return fmt.Errorf("save item %q: %w", id, err)
	}
	it.CategoryID = toCat
	return nil
}

// SetItemPrices overrides an item's price pair. The prices are clamped to
// the model's bounds and the sell < buy correction applies, so an override
// can never put an item outside the invariants trades rely on.
func (c *Catalog) SetItemPrices(ctx context.Context, m pricing.Model, id string, buy, sell float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	buy, sell = m.Normalize(buy, sell)
	updated := *it
	updated.BuyPrice, updated.SellPrice = buy, sell
	updated.LastUpdated = time.Now()
	if err := c.gw.SaveItem(ctx, updated); err != nil {
		return fmt.Errorf("save item %q: %w", id, err)
	}
	*it = updated
	return nil
}

// SetItemStock overrides an item's stock level.
func (c *Catalog) SetItemStock(ctx context.Context, id string, stock int) error {
	if stock < 0 {
		return fmt.Errorf("stock %d: %w", stock, ErrInvalidAmount)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	updated := *it
	updated.Stock = stock
	updated.LastUpdated = time.Now()
	if err := c.gw.SaveItem(ctx, updated); err != nil {
		return fmt.Errorf("save item %q: %w", id, err)
	}
	*it = updated
	return nil
}

// AdjustItemStock adds delta units to an item's stock (negative removes),
// floored at zero.
func (c *Catalog) AdjustItemStock(ctx context.Context, id string, delta int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	updated := *it
	updated.Stock += delta
	if updated.Stock < 0 {
		updated.Stock = 0
	}
	updated.LastUpdated = time.Now()
	if err := c.gw.SaveItem(ctx, updated); err != nil {
		return fmt.Errorf("save item %q: %w", id, err)
	}
	*it = updated
	return nil
}

// Categories returns snapshot copies ordered by placement slot.
func (c *Catalog) Categories() []Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Category, 0, len(c.categories))
	for _, cat := range c.categories {
		out = append(out, *cat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Items returns snapshot copies of every item, ordered by id.
func (c *Catalog) Items() []Item {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// View returns every category with copies of its items, for display.
func (c *Catalog) View() []CategoryView {
	cats := c.Categories()
	items := c.Items()
	views := make([]CategoryView, len(cats))
	index := make(map[string]int, len(cats))
	for i, cat := range cats {
		views[i] = CategoryView{Category: cat}
		index[cat.ID] = i
	}
	for _, it := range items {
		if i, ok := index[it.CategoryID]; ok {
			views[i].Items = append(views[i].Items, it)
		}
	}
	return views
}

// UpdateItems runs fn on every live item under the write lock. Scheduled
// price passes use this so their read-modify-write cycles cannot race
// transactions.
func (c *Catalog) UpdateItems(fn func(*Item)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		fn(it)
	}
}

// UpdateItem runs fn on one item under the write lock.
func (c *Catalog) UpdateItem(id string, fn func(*Item)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return fmt.Errorf("item %q: %w", id, ErrNotFound)
	}
	fn(it)
	return nil
}

// SaveAll persists every category and item. Used by the autosave job and
// on shutdown.
func (c *Catalog) SaveAll(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.saveAllLocked(ctx)
}

func (c *Catalog) saveAllLocked(ctx context.Context) error {
	for _, cat := range c.categories {
		if err := c.gw.SaveCategory(ctx, *cat); err != nil {
			return fmt.Errorf("save category %q: %w", cat.ID, err)
		}
	}
	for _, it := range c.items {
		if err := c.gw.SaveItem(ctx, *it); err != nil {
			return fmt.Errorf("save item %q: %w", it.ID, err)
		}
	}
	return nil
}

// Reset wipes the store and restores the default catalog. Lifetime
// counters are lost; this is the only path that resets them.
func (c *Catalog) Reset(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.gw.ResetAll(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	c.seedDefaultsLocked()
	if err := c.saveAllLocked(ctx); err != nil {
		return fmt.Errorf("save defaults: %w", err)
	}
	c.log.Info("market reset to defaults",
		"categories", len(c.categories), "items", len(c.items))
	return nil
}
