package store

import "errors"

var (
	// ErrNotFound is returned when an item doesn't exist.
	ErrNotFound = errors.New("store: item not found")

	// ErrConditionFailed is returned when a single-item conditional write is rejected.
	ErrConditionFailed = errors.New("store: condition check failed")

	// ErrInvalidCursor is returned when a cursor cannot be decoded into a key.
	ErrInvalidCursor = errors.New("store: invalid cursor")

	// ErrUnknownEntity is returned when no key function is registered for an entity kind.
	ErrUnknownEntity = errors.New("store: unknown entity type")

	// ErrNoRegistry is returned when a key is requested from a Store without a registry.
	ErrNoRegistry = errors.New("store: no key registry configured")

	// ErrInvalidExpression is returned when conditions or updates cannot be built.
	ErrInvalidExpression = errors.New("store: invalid expression")
)
