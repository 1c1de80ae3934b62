package identity

import (
	"slices"
	"strings"
)

// Role is the single business role a user holds
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleSalesRep  Role = "sales_rep"
	RoleDriver    Role = "driver"
	RoleWarehouse Role = "warehouse"
)

// AllRoles lists the valid roles
var AllRoles = []Role{RoleAdmin, RoleSalesRep, RoleDriver, RoleWarehouse}

// IsValid checks if the role is one of the known roles
func (r Role) IsValid() bool {
	return slices.Contains(AllRoles, r)
}

// String returns the string representation
func (r Role) String() string {
	return string(r)
}

// Resources guarded by permissions and row scopes
const (
	ResourceCustomer = "customer"
	ResourceProduct  = "product"
	ResourceOrder    = "order"
	ResourceSupplier = "supplier"
	ResourcePurchase = "purchase"
	ResourcePayment  = "payment"
	ResourceRoute    = "route"
	ResourceUser     = "user"
	ResourceAudit    = "audit"
	ResourceExport   = "export"
)

// Actions. Order lifecycle actions are permissions of their own so a driver can
// deliver without being able to edit.
const (
	ActionRead     = "read"
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionPrepare  = "prepare"
	ActionDispatch = "dispatch"
	ActionDeliver  = "deliver"
	ActionCancel   = "cancel"
	ActionAssign   = "assign"
	ActionReceive  = "receive"
)

// Permission builds the "resource:action" code carried in tokens
func Permission(resource, action string) string {
	return resource + ":" + action
}

// DataScope is the set of rows a role may see for a resource
type DataScope string

const (
	// DataScopeAll sees every row
	DataScopeAll DataScope = "all"
	// DataScopeOwn sees rows it created
	DataScopeOwn DataScope = "own"
	// DataScopeAssigned sees rows assigned to it (orders and routes of a driver)
	DataScopeAssigned DataScope = "assigned"
	// DataScopeNone sees nothing
	DataScopeNone DataScope = "none"
)

var rolePermissions = map[Role][]string{
	RoleSalesRep: {
		"customer:read", "customer:create", "customer:update",
		"product:read",
		"order:read", "order:create", "order:update", "order:cancel",
		"payment:read", "payment:create",
		"route:read",
		"export:read",
	},
	RoleDriver: {
		"customer:read",
		"product:read",
		"order:read", "order:deliver",
		"payment:read", "payment:create",
		"route:read", "route:create", "route:update",
	},
	RoleWarehouse: {
		"customer:read",
		"product:read", "product:create", "product:update",
		"order:read", "order:prepare", "order:dispatch", "order:assign", "order:cancel",
		"supplier:read", "supplier:create", "supplier:update",
		"purchase:read", "purchase:create", "purchase:update", "purchase:receive", "purchase:cancel",
		"route:read",
		"export:read",
	},
}

var roleScopes = map[Role]map[string]DataScope{
	RoleSalesRep: {
		ResourceOrder:   DataScopeOwn,
		ResourcePayment: DataScopeOwn,
	},
	RoleDriver: {
		ResourceOrder:   DataScopeAssigned,
		ResourceRoute:   DataScopeAssigned,
		ResourcePayment: DataScopeOwn,
	},
	RoleWarehouse: {
		ResourcePayment: DataScopeNone,
	},
}

// Permissions returns the permission codes granted to the role.
// Admin gets the wildcard "*".
func (r Role) Permissions() []string {
	if r == RoleAdmin {
		return []string{"*"}
	}
	return slices.Clone(rolePermissions[r])
}

// Can reports whether the role holds the permission
func (r Role) Can(resource, action string) bool {
	if r == RoleAdmin {
		return true
	}
	return HasPermission(rolePermissions[r], Permission(resource, action))
}

// ScopeFor returns the row scope the role has on a resource.
// Resources without an explicit rule are visible in full to roles allowed to read them.
func (r Role) ScopeFor(resource string) DataScope {
	if r == RoleAdmin {
		return DataScopeAll
	}
	if !r.IsValid() {
		return DataScopeNone
	}
	if scope, ok := roleScopes[r][resource]; ok {
		return scope
	}
	if !r.Can(resource, ActionRead) {
		return DataScopeNone
	}
	return DataScopeAll
}

// HasPermission checks a permission list, honouring "*" and "resource:*" wildcards
func HasPermission(granted []string, required string) bool {
	resource, _, _ := strings.Cut(required, ":")
	for _, p := range granted {
		if p == "*" || p == required || p == resource+":*" {
			return true
		}
	}
	return false
}
