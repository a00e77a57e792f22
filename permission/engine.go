package permission

// Subject is the part of a user record that permission derivation reads.
type Subject interface {
	PermissionRole() string
	PermissionExtras() []string
	PermissionDenials() []string
}

// Engine computes effective permission sets. It holds no mutable state after
// construction and is safe for concurrent use.
type Engine struct {
	registry       *Registry
	roles          *RoleTable
	superAdminRole string
}

// NewEngine binds a frozen registry and role table. superAdminRole names the
// wildcard role; an empty value disables the wildcard.
func NewEngine(registry *Registry, roles *RoleTable, superAdminRole string) *Engine {
	return &Engine{
		registry:       registry,
		roles:          roles,
		superAdminRole: superAdminRole,
	}
}

// Compute returns the effective permission set of subject.
//
// A nil subject yields the empty set. The super-admin role yields the whole
// universe and ignores extra and denied lists. Otherwise the result is
// (base ∪ extra) \ denied, with an unknown role contributing an empty base.
func (e *Engine) Compute(subject Subject) Set {
	if subject == nil {
		return Set{}
	}

	role := subject.PermissionRole()
	if e.superAdminRole != "" && role == e.superAdminRole {
		return e.registry.Universe()
	}

	base, _ := e.roles.Base(role)
	effective := base.Union(NewSet(subject.PermissionExtras()...))
	return effective.Without(NewSet(subject.PermissionDenials()...))
}

// Universe returns every declared permission.
func (e *Engine) Universe() Set {
	return e.registry.Universe()
}

// SuperAdminRole returns the wildcard role name.
func (e *Engine) SuperAdminRole() string {
	return e.superAdminRole
}

// Registry returns the permission registry the engine was built on.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Roles returns the role table the engine was built on.
func (e *Engine) Roles() *RoleTable {
	return e.roles
}
