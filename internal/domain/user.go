package domain

import (
	"errors"
	"fmt"
)

const (
	RoleAdmin  = 1
	RoleBuyer  = 2
	RoleSeller = 3
)

// RoleNames matches the seeded roles table.
var RoleNames = map[int]string{
	RoleAdmin:  "ADMIN",
	RoleBuyer:  "BUYER",
	RoleSeller: "SELLER",
}

// AssignableRoles are the roles a user may register with.
// ADMIN exists but is not self-assignable.
var AssignableRoles = []int{RoleBuyer, RoleSeller}

func IsAssignableRole(roleID int) bool {
	for _, r := range AssignableRoles {
		if roleID == r {
			return true
		}
	}
	return false
}

var ErrInvalidDenomination = errors.New("the amount is not valid. Valid amounts are: 5, 10, 20, 50, 100")

// InsufficientFundsError carries the total the buyer would have needed.
type InsufficientFundsError struct {
	Needed int
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("not enough amount in your deposit. Amount needed: %d", e.Needed)
}

type User struct {
	ID           int
	Username     string
	PasswordHash string
	RoleID       int
	Deposit      int
}

func (u *User) IsAdmin() bool {
	return u.RoleID == RoleAdmin
}

// DepositCoin adds a single coin to the balance. One coin per call.
func (u *User) DepositCoin(amount int) error {
	if !IsValidDenomination(amount) {
		return ErrInvalidDenomination
	}
	u.Deposit += amount
	return nil
}

func (u *User) HasSufficientFunds(amount int) bool {
	return u.Deposit >= amount
}

func (u *User) Withdraw(amount int) error {
	if !u.HasSufficientFunds(amount) {
		return &InsufficientFundsError{Needed: amount}
	}
	u.Deposit -= amount
	return nil
}

// DrainAsChange converts the whole remaining balance into coins and zeroes
// it in the same step, so no caller can observe the balance reset without
// holding the change.
func (u *User) DrainAsChange() Change {
	// Deposit is a sum of valid coins, ChangeFor cannot fail on it.
	change, _ := ChangeFor(u.Deposit)
	u.Deposit = 0
	return change
}

func (u *User) ResetDeposit() {
	u.Deposit = 0
}
