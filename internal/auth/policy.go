package auth

import "github.com/victorytouchdown/vtshop-api/internal/domain"

// Action is something a principal may be allowed to do through the API
type Action string

const (
	ActionManageCart           Action = "cart:manage"
	ActionPlaceOrder           Action = "orders:place"
	ActionViewMySpace          Action = "myspace:view"
	ActionListOrders           Action = "orders:list"
	ActionUpdateOrderStatus    Action = "orders:status"
	ActionCommentOrder         Action = "orders:comment"
	ActionUseConversations     Action = "conversations:use"
	ActionManageCatalog        Action = "catalog:manage"
	ActionViewCustomerAccounts Action = "customer_accounts:view"
	ActionListUsers            Action = "users:list"
	ActionManageEmployees      Action = "employees:manage"
	ActionViewAuditLog         Action = "audit:view"
)

// rolePolicy is the single source of truth for what each role may do.
// A role missing from the table may do nothing.
var rolePolicy = map[domain.UserRole][]Action{
	domain.RoleCustomer: {
		ActionManageCart,
		ActionPlaceOrder,
		ActionViewMySpace,
		ActionListOrders,
		ActionUseConversations,
	},
	domain.RoleEmployee: {
		ActionListOrders,
		ActionUpdateOrderStatus,
		ActionCommentOrder,
		ActionUseConversations,
		ActionManageCatalog,
		ActionViewCustomerAccounts,
		ActionListUsers,
	},
	domain.RoleAdministrator: {
		ActionListOrders,
		ActionUpdateOrderStatus,
		ActionCommentOrder,
		ActionViewCustomerAccounts,
		ActionListUsers,
		ActionManageEmployees,
		ActionViewAuditLog,
	},
}

// Can reports whether role is allowed to perform action
func Can(role domain.UserRole, action Action) bool {
	for _, a := range rolePolicy[role] {
		if a == action {
			return true
		}
	}
	return false
}

// Can reports whether the user's role is allowed to perform action
func (u *UserContext) Can(action Action) bool {
	return Can(u.Role, action)
}
