package ecs

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrEntityNotAllocated is returned when a command references an entity id
	// that has not been allocated yet.
	ErrEntityNotAllocated = errors.New("ecs: entity not allocated")

	// ErrReservationMismatch is returned when a buffered insert is applied but
	// the world hands out a different id than the one the buffer reserved.
	ErrReservationMismatch = errors.New("ecs: reserved entity id does not match allocation")
)

// CapacityExceededError is raised (as a panic value) when an entity id would
// exceed the configured maximum entity count.
type CapacityExceededError struct {
	Entity EntityId
	Max    int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("ecs: entity %d exceeds the maximum entity count %d", e.Entity, e.Max)
}

// MissingResourceError is raised when a system asks for a resource that was
// never inserted.
type MissingResourceError struct {
	Type reflect.Type
}

func (e *MissingResourceError) Error() string {
	return fmt.Sprintf("ecs: resource %s is not present", e.Type)
}

// BorrowConflictError is raised in strict borrow mode when a component entry
// is already borrowed in a conflicting way.
type BorrowConflictError struct {
	Entity    EntityId
	Component string
	Exclusive bool
}

func (e *BorrowConflictError) Error() string {
	kind := "shared"
	if e.Exclusive {
		kind = "exclusive"
	}
	return fmt.Sprintf("ecs: %s borrow of %s on entity %d conflicts with an outstanding borrow", kind, e.Component, e.Entity)
}
