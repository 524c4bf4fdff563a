// Package ledger provides in-memory implementations of the external
// currency and goods-custody collaborators. The host game server normally
// supplies its own; these back the standalone daemon and the tests.
package ledger

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientHoldings = errors.New("insufficient holdings")
	ErrCapacityExceeded     = errors.New("capacity exceeded")
)

// Bank is a mutex-guarded currency ledger keyed by actor.
type Bank struct {
	mu       sync.Mutex
	balances map[string]float64
}

// NewBank creates an empty bank.
func NewBank() *Bank {
	return &Bank{balances: make(map[string]float64)}
}

// Balance returns the actor's current funds.
func (b *Bank) Balance(actor string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[actor]
}

// HasBalance reports whether the actor can cover amount.
func (b *Bank) HasBalance(actor string, amount float64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balances[actor] >= amount
}

// Withdraw removes funds, failing without mutation when the balance is
// short.
func (b *Bank) Withdraw(actor string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("withdraw %.2f: negative amount", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.balances[actor] < amount {
		return ErrInsufficientFunds
	}
	b.balances[actor] -= amount
	return nil
}

// Deposit adds funds to the actor's balance.
func (b *Bank) Deposit(actor string, amount float64) error {
	if amount < 0 {
		return fmt.Errorf("deposit %.2f: negative amount", amount)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[actor] += amount
	return nil
}

// Vault is a mutex-guarded goods store keyed by actor and good kind, with
// a per-actor capacity across all kinds.
type Vault struct {
	mu       sync.Mutex
	capacity int
	holdings map[string]map[string]int
}

// NewVault creates a vault with the given per-actor capacity. A capacity
// of zero or less means unbounded.
func NewVault(capacity int) *Vault {
	return &Vault{
		capacity: capacity,
		holdings: make(map[string]map[string]int),
	}
}

func (v *Vault) totalLocked(actor string) int {
	total := 0
	for _, n := range v.holdings[actor] {
		total += n
	}
	return total
}

// CanHold reports whether the actor has room for amount more units.
func (v *Vault) CanHold(actor, kind string, amount int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.capacity <= 0 {
		return true
	}
	return v.totalLocked(actor)+amount <= v.capacity
}

// Grant adds units to the actor's holdings, bounded by capacity.
func (v *Vault) Grant(actor, kind string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("grant %d: negative amount", amount)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.capacity > 0 && v.totalLocked(actor)+amount > v.capacity {
		return ErrCapacityExceeded
	}
	if v.holdings[actor] == nil {
		v.holdings[actor] = make(map[string]int)
	}
	v.holdings[actor][kind] += amount
	return nil
}

// Take removes units, failing without mutation when the actor holds fewer.
func (v *Vault) Take(actor, kind string, amount int) error {
	if amount < 0 {
		return fmt.Errorf("take %d: negative amount", amount)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.holdings[actor][kind] < amount {
		return ErrInsufficientHoldings
	}
	v.holdings[actor][kind] -= amount
	return nil
}

// Count returns how many units of kind the actor holds.
func (v *Vault) Count(actor, kind string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.holdings[actor][kind]
}
