package market

import "time"

// Direction of a trade from the actor's point of view.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
)

// Record is one immutable audit entry for a completed trade. Records are
// append-only; they are never mutated or deleted except by retention
// pruning.
type Record struct {
	ID        string    `json:"id" db:"id"`
	Actor     string    `json:"actor" db:"actor"`
	ItemID    string    `json:"item_id" db:"item_id"`
	Category  string    `json:"category" db:"category"`
	Direction Direction `json:"direction" db:"direction"`
	Amount    int       `json:"amount" db:"amount"`
	UnitPrice float64   `json:"unit_price" db:"unit_price"`
	At        time.Time `json:"at" db:"at"`
}
