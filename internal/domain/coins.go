package domain

import "errors"

// Denominations are the coin values the machine accepts, largest first.
// The order matters: greedy change walks this slice top-down.
var Denominations = []int{100, 50, 20, 10, 5}

var ErrNegativeAmount = errors.New("amount must not be negative")

// Change maps a denomination to the number of coins returned.
// All five denominations are always present, possibly with count 0.
type Change map[int]int

func IsValidDenomination(amount int) bool {
	for _, d := range Denominations {
		if amount == d {
			return true
		}
	}
	return false
}

// ChangeFor decomposes total into coins greedily. The denomination set is
// canonical, so greedy is minimal, and every reachable balance is a sum of
// valid coins, so the remainder is always zero.
func ChangeFor(total int) (Change, error) {
	if total < 0 {
		return nil, ErrNegativeAmount
	}
	change := Change{}
	remaining := total
	for _, d := range Denominations {
		change[d] = remaining / d
		remaining -= d * change[d]
	}
	return change, nil
}
