package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
)

func TestCan(t *testing.T) {
	tests := []struct {
		action   auth.Action
		customer bool
		employee bool
		admin    bool
	}{
		{auth.ActionManageCart, true, false, false},
		{auth.ActionPlaceOrder, true, false, false},
		{auth.ActionViewMySpace, true, false, false},
		{auth.ActionListOrders, true, true, true},
		{auth.ActionUpdateOrderStatus, false, true, true},
		{auth.ActionCommentOrder, false, true, true},
		{auth.ActionUseConversations, true, true, false},
		{auth.ActionManageCatalog, false, true, false},
		{auth.ActionViewCustomerAccounts, false, true, true},
		{auth.ActionListUsers, false, true, true},
		{auth.ActionManageEmployees, false, false, true},
		{auth.ActionViewAuditLog, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.customer, auth.Can(domain.RoleCustomer, tt.action), "customer")
			assert.Equal(t, tt.employee, auth.Can(domain.RoleEmployee, tt.action), "employee")
			assert.Equal(t, tt.admin, auth.Can(domain.RoleAdministrator, tt.action), "administrator")
		})
	}
}

func TestCan_UnknownRole(t *testing.T) {
	assert.False(t, auth.Can(domain.UserRole("GUEST"), auth.ActionListOrders))
}

func TestUserContext_Predicates(t *testing.T) {
	customer := &auth.UserContext{Role: domain.RoleCustomer}
	employee := &auth.UserContext{Role: domain.RoleEmployee}
	admin := &auth.UserContext{Role: domain.RoleAdministrator}

	assert.True(t, customer.IsCustomer())
	assert.True(t, customer.IsCustomerOrEmployee())
	assert.False(t, customer.IsEmployee())

	assert.True(t, employee.IsEmployee())
	assert.True(t, employee.IsCustomerOrEmployee())

	// No inheritance: an administrator is not an employee
	assert.True(t, admin.IsAdministrator())
	assert.False(t, admin.IsEmployee())
	assert.False(t, admin.IsCustomerOrEmployee())
}
