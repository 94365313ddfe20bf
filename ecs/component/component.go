package component

import (
	"errors"
	"sync/atomic"
)

var (
	ErrEntityNotAlive = errors.New("ecs: entity not alive")
	ErrInvalidHandle  = errors.New("ecs: invalid component handle")
)

// ID is a process-wide unique identity token for a component type. The zero
// value is reserved and never allocated.
type ID uint32

// Handle binds a component type to its ID and debug name. Allocate one per
// type with New and share it; two handles for the same Go type are distinct
// component kinds.
type Handle[T any] struct {
	id   ID
	name string
}

// New allocates a fresh component identity. The name is used in logs and
// error messages only.
func New[T any](name string) Handle[T] {
	return Handle[T]{id: ID(nextID.Add(1)), name: name}
}

func (h Handle[T]) ID() ID {
	return h.id
}

func (h Handle[T]) Name() string {
	return h.name
}

func (h Handle[T]) Valid() bool {
	return h.id != 0
}

var nextID atomic.Uint32
