package store

import (
	"fmt"
	"sort"
)

// KeyFunc derives the primary key of one entity kind from its logical identifiers.
// It must be pure: the same identity always yields the same key.
type KeyFunc func(id Identity) PK

// Registry maps entity kind tags to their key functions.
type Registry struct {
	byType map[string]KeyFunc
}

// NewRegistry creates a new empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byType: make(map[string]KeyFunc),
	}
}

// Register adds the key function for an entity kind, replacing any previous one.
// This should be called once per kind while wiring the application.
func (r *Registry) Register(entityType string, fn KeyFunc) {
	r.byType[entityType] = fn
}

// Key derives the primary key for an entity kind and identity.
func (r *Registry) Key(entityType string, id Identity) (PK, error) {
	fn, ok := r.byType[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEntity, entityType)
	}
	return fn(id), nil
}

// Has returns true if the entity kind has a registered key function.
func (r *Registry) Has(entityType string) bool {
	_, ok := r.byType[entityType]
	return ok
}

// EntityTypes returns all registered kinds in sorted order.
func (r *Registry) EntityTypes() []string {
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
