package rbac

// Role constants
const (
	RoleRequester = "requester"
	RoleResponder = "responder"
	RoleAdmin     = "admin"
)

// Permission constants
const (
	PermCreateRequest  = "create_request"
	PermFulfillRequest = "fulfill_request"
	PermReclaimDeposit = "reclaim_deposit"
	PermViewLedger     = "view_ledger"
)

// RolePermissions defines what each role can do at the transport boundary.
// The ledger core keeps its own injected fulfillment check on top of this.
var RolePermissions = map[string][]string{
	RoleRequester: {
		PermCreateRequest, PermReclaimDeposit, PermViewLedger,
	},
	RoleResponder: {
		PermFulfillRequest, PermViewLedger,
	},
	RoleAdmin: {
		PermCreateRequest, PermFulfillRequest, PermReclaimDeposit, PermViewLedger,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// AnyHasPermission checks a set of roles, as carried in a token.
func AnyHasPermission(roles []string, permission string) bool {
	for _, r := range roles {
		if HasPermission(r, permission) {
			return true
		}
	}
	return false
}
