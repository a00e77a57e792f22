package permission

import (
	"fmt"
	"sync"
)

// RoleTable is the static role → base permissions mapping.
//
// Every permission a role references must exist in the backing [Registry];
// the table refuses unknown names so typos surface at startup rather than as
// silently missing access.
type RoleTable struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]Set
	frozen bool
}

// NewRoleTable creates an empty table validated against registry.
func NewRoleTable(registry *Registry) *RoleTable {
	return &RoleTable{
		registry: registry,
		roles:    make(map[string]Set),
	}
}

// RegisterRole records the base permissions of role.
func (t *RoleTable) RegisterRole(role string, permissions []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return ErrRegistryFrozen
	}
	if role == "" {
		return ErrEmptyName
	}
	if _, exists := t.roles[role]; exists {
		return fmt.Errorf("%w: role %s", ErrDuplicate, role)
	}

	for _, p := range permissions {
		if !t.registry.Known(p) {
			return fmt.Errorf("%w: %s (role %s)", ErrUnknownPermission, p, role)
		}
	}

	t.roles[role] = NewSet(permissions...)
	return nil
}

// Base returns the base permissions of role. Unknown roles yield an empty set
// and false.
func (t *RoleTable) Base(role string) (Set, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.roles[role]
	if !ok {
		return Set{}, false
	}
	return s, true
}

// Roles returns the registered role names in no particular order.
func (t *RoleTable) Roles() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.roles))
	for r := range t.roles {
		out = append(out, r)
	}
	return out
}

// Freeze prevents further role registrations.
func (t *RoleTable) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Count returns the number of registered roles.
func (t *RoleTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.roles)
}
