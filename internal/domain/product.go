package domain

import (
	"errors"
	"fmt"
)

var ErrInvalidCost = errors.New("the cost must be in multiples of 5")

// InsufficientStockError carries the quantity still on the shelf.
type InsufficientStockError struct {
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("there is not enough amount of this product. Current amount: %d", e.Available)
}

type Product struct {
	ID              int
	Name            string
	AmountAvailable int
	Cost            int
	SellerID        int
}

// ValidateCost enforces the coin-set alignment rule: a cost that is not a
// positive multiple of 5 can produce a balance no change decomposes.
func ValidateCost(cost int) error {
	if cost <= 0 || cost%5 != 0 {
		return ErrInvalidCost
	}
	return nil
}

func (p *Product) HasAvailable(quantity int) bool {
	return p.AmountAvailable >= quantity
}

func (p *Product) Decrement(quantity int) error {
	if !p.HasAvailable(quantity) {
		return &InsufficientStockError{Available: p.AmountAvailable}
	}
	p.AmountAvailable -= quantity
	return nil
}
