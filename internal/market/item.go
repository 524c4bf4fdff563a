// Package market holds the tradable-goods registry and the transaction
// engine that moves stock and prices on every buy and sell.
package market

import "time"

// Item is one tradable good with its own price/stock state. Cosmetic
// fields (DisplayName, Description) never affect pricing. All mutation
// happens under the owning Catalog's lock.
type Item struct {
	ID          string    `json:"id" db:"id"`
	Kind        string    `json:"kind" db:"kind"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Description string    `json:"description" db:"description"`
	BuyPrice    float64   `json:"buy_price" db:"buy_price"`
	SellPrice   float64   `json:"sell_price" db:"sell_price"`
	Stock       int       `json:"stock" db:"stock"`
	TotalBought int       `json:"total_bought" db:"total_bought"`
	TotalSold   int       `json:"total_sold" db:"total_sold"`
	LastUpdated time.Time `json:"last_updated" db:"last_updated"`
	CategoryID  string    `json:"category_id" db:"category_id"`
}

// Category is a named grouping of items, presentation-only. Slot is a
// placement hint for host UIs and is irrelevant to pricing.
type Category struct {
	ID          string `json:"id" db:"id"`
	Icon        string `json:"icon" db:"icon"`
	DisplayName string `json:"display_name" db:"display_name"`
	Description string `json:"description" db:"description"`
	Slot        int    `json:"slot" db:"slot"`
}

// CategoryView is a category snapshot together with copies of its items.
type CategoryView struct {
	Category
	Items []Item `json:"items"`
}

// Value is the notional value the market holds in this item.
func (it *Item) Value() float64 {
	return it.BuyPrice * float64(it.Stock)
}

// Transactions is the lifetime trade count.
func (it *Item) Transactions() int {
	return it.TotalBought + it.TotalSold
}
