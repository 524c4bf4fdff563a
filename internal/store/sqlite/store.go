// Package sqlite implements the market persistence gateway on an embedded
// SQLite database.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/dynmarket/internal/market"
)

// Store wraps a SQLite connection implementing market.Gateway. Saves are
// upserts and the transactions table is append-only.
type Store struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*Store, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS categories (
		id TEXT PRIMARY KEY,
		icon TEXT NOT NULL,
		display_name TEXT NOT NULL,
		description TEXT,
		slot INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		display_name TEXT,
		description TEXT,
		buy_price REAL NOT NULL,
		sell_price REAL NOT NULL,
		stock INTEGER NOT NULL,
		total_bought INTEGER NOT NULL DEFAULT 0,
		total_sold INTEGER NOT NULL DEFAULT 0,
		last_updated INTEGER NOT NULL,
		category_id TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		actor TEXT NOT NULL,
		item_id TEXT NOT NULL,
		category TEXT NOT NULL,
		direction TEXT NOT NULL,
		amount INTEGER NOT NULL,
		unit_price REAL NOT NULL,
		at INTEGER NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_items_kind ON items(kind);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category_id);
	CREATE INDEX IF NOT EXISTS idx_transactions_at ON transactions(at);
	CREATE INDEX IF NOT EXISTS idx_transactions_item ON transactions(item_id);
	`
	_, err := s.conn.Exec(schema)
	return err
}

type itemRow struct {
	ID          string  `db:"id"`
	Kind        string  `db:"kind"`
	DisplayName string  `db:"display_name"`
	Description string  `db:"description"`
	BuyPrice    float64 `db:"buy_price"`
	SellPrice   float64 `db:"sell_price"`
	Stock       int     `db:"stock"`
	TotalBought int     `db:"total_bought"`
	TotalSold   int     `db:"total_sold"`
	LastUpdated int64   `db:"last_updated"`
	CategoryID  string  `db:"category_id"`
}

type recordRow struct {
	ID        string  `db:"id"`
	Actor     string  `db:"actor"`
	ItemID    string  `db:"item_id"`
	Category  string  `db:"category"`
	Direction string  `db:"direction"`
	Amount    int     `db:"amount"`
	UnitPrice float64 `db:"unit_price"`
	At        int64   `db:"at"`
}

// LoadCategories reads every stored category.
func (s *Store) LoadCategories(ctx context.Context) ([]market.Category, error) {
	var cats []market.Category
	err := s.conn.SelectContext(ctx, &cats,
		"SELECT id, icon, display_name, description, slot FROM categories ORDER BY slot, id")
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	return cats, nil
}

// LoadItems reads every stored item.
func (s *Store) LoadItems(ctx context.Context) ([]market.Item, error) {
	var rows []itemRow
	err := s.conn.SelectContext(ctx, &rows,
		`SELECT id, kind, display_name, description, buy_price, sell_price,
		        stock, total_bought, total_sold, last_updated, category_id
		 FROM items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}

	items := make([]market.Item, len(rows))
	for i, r := range rows {
		items[i] = market.Item{
			ID:          r.ID,
			Kind:        r.Kind,
			DisplayName: r.DisplayName,
			Description: r.Description,
			BuyPrice:    r.BuyPrice,
			SellPrice:   r.SellPrice,
			Stock:       r.Stock,
			TotalBought: r.TotalBought,
			TotalSold:   r.TotalSold,
			LastUpdated: time.UnixMilli(r.LastUpdated),
			CategoryID:  r.CategoryID,
		}
	}
	return items, nil
}

// SaveCategory upserts one category.
func (s *Store) SaveCategory(ctx context.Context, c market.Category) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO categories (id, icon, display_name, description, slot)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Icon, c.DisplayName, c.Description, c.Slot)
	if err != nil {
		return fmt.Errorf("save category %s: %w", c.ID, err)
	}
	return nil
}

// SaveItem upserts one item.
func (s *Store) SaveItem(ctx context.Context, it market.Item) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT OR REPLACE INTO items
		 (id, kind, display_name, description, buy_price, sell_price,
		  stock, total_bought, total_sold, last_updated, category_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, it.Kind, it.DisplayName, it.Description, it.BuyPrice, it.SellPrice,
		it.Stock, it.TotalBought, it.TotalSold, it.LastUpdated.UnixMilli(), it.CategoryID)
	if err != nil {
		return fmt.Errorf("save item %s: %w", it.ID, err)
	}
	return nil
}

// DeleteCategory removes a category and all of its items in one
// transaction.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE category_id = ?", id); err != nil {
		return fmt.Errorf("delete items of category %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM categories WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete category %s: %w", id, err)
	}
	return tx.Commit()
}

// DeleteItem removes one item.
func (s *Store) DeleteItem(ctx context.Context, id string) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete item %s: %w", id, err)
	}
	return nil
}

// AppendTransaction appends one audit record.
func (s *Store) AppendTransaction(ctx context.Context, r market.Record) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, actor, item_id, category, direction, amount, unit_price, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Actor, r.ItemID, r.Category, string(r.Direction),
		r.Amount, r.UnitPrice, r.At.UnixMilli())
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// RecentTransactions returns the most recent audit records, newest first.
func (s *Store) RecentTransactions(ctx context.Context, limit int) ([]market.Record, error) {
	var rows []recordRow
	err := s.conn.SelectContext(ctx, &rows,
		`SELECT id, actor, item_id, category, direction, amount, unit_price, at
		 FROM transactions ORDER BY at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent transactions: %w", err)
	}

	recs := make([]market.Record, len(rows))
	for i, r := range rows {
		recs[i] = market.Record{
			ID:        r.ID,
			Actor:     r.Actor,
			ItemID:    r.ItemID,
			Category:  r.Category,
			Direction: market.Direction(r.Direction),
			Amount:    r.Amount,
			UnitPrice: r.UnitPrice,
			At:        time.UnixMilli(r.At),
		}
	}
	return recs, nil
}

// PruneTransactions removes audit records older than the cutoff. This is
// the only path that deletes from the transaction log.
func (s *Store) PruneTransactions(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.conn.ExecContext(ctx,
		"DELETE FROM transactions WHERE at < ?", cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("prune transactions: %w", err)
	}
	return res.RowsAffected()
}

// ResetAll wipes categories, items, and the transaction log.
func (s *Store) ResetAll(ctx context.Context) error {
	tx, err := s.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "items", "categories"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}
