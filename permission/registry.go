package permission

import (
	"errors"
	"sync"
)

var (
	// ErrRegistryFrozen is returned when registering into a frozen registry or table.
	ErrRegistryFrozen = errors.New("permission: registry frozen")
	// ErrEmptyName is returned for an empty permission or role name.
	ErrEmptyName = errors.New("permission: name cannot be empty")
	// ErrDuplicate is returned when a permission or role is registered twice.
	ErrDuplicate = errors.New("permission: already registered")
	// ErrUnknownPermission is returned when a role references an undeclared permission.
	ErrUnknownPermission = errors.New("permission: not registered")
)

// Registry is the ordered universe of declared permission identifiers.
//
// Registration order is preserved so that [Registry.Names] is stable across
// runs. Registries are configured during initialization, then frozen.
type Registry struct {
	mu     sync.RWMutex
	index  map[string]int
	names  []string
	frozen bool
}

// NewRegistry creates an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register declares name and returns its position in the universe.
// Must be called before [Registry.Freeze].
func (r *Registry) Register(name string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return -1, ErrRegistryFrozen
	}
	if name == "" {
		return -1, ErrEmptyName
	}
	if _, exists := r.index[name]; exists {
		return -1, ErrDuplicate
	}

	pos := len(r.names)
	r.index[name] = pos
	r.names = append(r.names, name)
	return pos, nil
}

// Known reports whether name is part of the universe.
func (r *Registry) Known(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.index[name]
	return ok
}

// Names returns the universe in registration order. The slice is a copy.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Universe returns the full universe as a [Set].
func (r *Registry) Universe() Set {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return NewSet(r.names...)
}

// Freeze prevents further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
}

// Count returns the number of registered permissions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.names)
}
