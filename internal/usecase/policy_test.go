package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/j8n/vending-machine-backend-challenge/internal/domain"
)

func TestAuthorize(t *testing.T) {
	admin := &domain.User{ID: 1, RoleID: domain.RoleAdmin}
	buyer := &domain.User{ID: 2, RoleID: domain.RoleBuyer}
	seller := &domain.User{ID: 3, RoleID: domain.RoleSeller}

	cases := []struct {
		name    string
		actor   *domain.User
		action  Action
		ownerID int
		allowed bool
	}{
		{"admin lists users", admin, ActionListUsers, 0, true},
		{"buyer lists users", buyer, ActionListUsers, 0, false},
		{"seller lists users", seller, ActionListUsers, 0, false},

		{"self view", buyer, ActionViewUser, 2, true},
		{"other view", buyer, ActionViewUser, 3, false},
		{"admin views other", admin, ActionViewUser, 2, true},

		{"self update", buyer, ActionUpdateUser, 2, true},
		{"admin updates other", admin, ActionUpdateUser, 2, true},
		{"other update", seller, ActionUpdateUser, 2, false},

		{"own deposit", buyer, ActionDeposit, 2, true},
		{"foreign deposit", buyer, ActionDeposit, 3, false},
		{"admin cannot deposit for others", admin, ActionDeposit, 2, false},
		{"own buy", buyer, ActionBuy, 2, true},
		{"foreign buy", seller, ActionBuy, 2, false},
		{"own reset", buyer, ActionReset, 2, true},
		{"admin cannot reset others", admin, ActionReset, 2, false},

		{"seller creates product", seller, ActionCreateProduct, 0, true},
		{"buyer creates product", buyer, ActionCreateProduct, 0, false},
		{"admin creates product", admin, ActionCreateProduct, 0, false},
		{"owner updates product", seller, ActionUpdateProduct, 3, true},
		{"non-owner updates product", seller, ActionUpdateProduct, 2, false},
		{"owner deletes product", seller, ActionDeleteProduct, 3, true},
		{"admin deletes foreign product", admin, ActionDeleteProduct, 3, false},

		{"nil actor", nil, ActionViewUser, 2, false},
		{"unknown action", buyer, Action("bogus"), 2, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Authorize(tc.actor, tc.action, tc.ownerID)
			if tc.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}
