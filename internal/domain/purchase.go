package domain

import "errors"

var ErrInvalidQuantity = errors.New("amount of products must be a positive integer")

// Receipt is the result of a successful purchase.
type Receipt struct {
	TotalSpent       int
	RemainingDeposit int
	ProductID        int
	ProductName      string
	Change           Change
}

// ExecutePurchase runs the purchase protocol against in-memory copies of
// the buyer and the product. Stock is checked before funds, so the stock
// error wins when both would fail. On error the mutations are meaningless:
// callers must discard both copies and persist nothing.
func ExecutePurchase(buyer *User, product *Product, quantity int) (*Receipt, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if err := product.Decrement(quantity); err != nil {
		return nil, err
	}

	total := quantity * product.Cost
	if err := buyer.Withdraw(total); err != nil {
		return nil, err
	}
	change := buyer.DrainAsChange()

	return &Receipt{
		TotalSpent:       total,
		RemainingDeposit: buyer.Deposit,
		ProductID:        product.ID,
		ProductName:      product.Name,
		Change:           change,
	}, nil
}
