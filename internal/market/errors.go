package market

import (
	"errors"
	"fmt"
)

// Sentinel errors for catalog lookups and structural mutation. Callers
// match with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrDuplicate         = errors.New("already exists")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInsufficientSpace = errors.New("insufficient inventory space")
)

// InsufficientStockError rejects a purchase larger than the market's
// current stock.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: %d available", e.Available)
}

// InsufficientFundsError rejects a purchase the actor cannot pay for.
type InsufficientFundsError struct {
	Required float64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: %.2f required", e.Required)
}

// InsufficientHoldingsError rejects a sale of more units than the actor
// holds.
type InsufficientHoldingsError struct {
	Held int
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("insufficient holdings: %d held", e.Held)
}

// DeliveryFailedError reports an external-system failure after funds moved.
// The engine compensates (refunds) before surfacing it.
type DeliveryFailedError struct {
	Cause error
}

func (e *DeliveryFailedError) Error() string {
	return fmt.Sprintf("delivery failed: %v", e.Cause)
}

func (e *DeliveryFailedError) Unwrap() error { return e.Cause }
