package usecase

import (
	"errors"

	"github.com/j8n/vending-machine-backend-challenge/internal/domain"
)

// Denials are deliberately uniform so callers learn nothing about why.
var ErrForbidden = errors.New("Forbidden")

type Action string

const (
	ActionListUsers     Action = "users.list"
	ActionViewUser      Action = "users.view"
	ActionUpdateUser    Action = "users.update"
	ActionDeleteUser    Action = "users.delete"
	ActionDeposit       Action = "users.deposit"
	ActionBuy           Action = "users.buy"
	ActionReset         Action = "users.reset"
	ActionCreateProduct Action = "products.create"
	ActionUpdateProduct Action = "products.update"
	ActionDeleteProduct Action = "products.delete"
)

// rule describes who may perform an action: a fixed role set, ownership of
// the target, or both alternatives (owner or admin).
type rule struct {
	roles     []int
	ownerOnly bool
	adminAlso bool
}

var policy = map[Action]rule{
	ActionListUsers:     {roles: []int{domain.RoleAdmin}},
	ActionViewUser:      {ownerOnly: true, adminAlso: true},
	ActionUpdateUser:    {ownerOnly: true, adminAlso: true},
	ActionDeleteUser:    {ownerOnly: true, adminAlso: true},
	ActionDeposit:       {ownerOnly: true},
	ActionBuy:           {ownerOnly: true},
	ActionReset:         {ownerOnly: true},
	ActionCreateProduct: {roles: []int{domain.RoleSeller}},
	ActionUpdateProduct: {ownerOnly: true},
	ActionDeleteProduct: {ownerOnly: true},
}

// Authorize checks actor against the rule for action. ownerID is the id of
// the user owning the target resource (the user itself for account
// operations, the seller for products); it is ignored by pure role rules.
func Authorize(actor *domain.User, action Action, ownerID int) error {
	if actor == nil {
		return ErrForbidden
	}
	r, ok := policy[action]
	if !ok {
		return ErrForbidden
	}
	if r.ownerOnly {
		if actor.ID == ownerID {
			return nil
		}
		if r.adminAlso && actor.IsAdmin() {
			return nil
		}
		return ErrForbidden
	}
	for _, role := range r.roles {
		if actor.RoleID == role {
			return nil
		}
	}
	return ErrForbidden
}
