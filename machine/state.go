// Package machine implements per-entity finite state machines on top of the
// ecs package. States are plain components; a StateMachine attached to an
// entity swaps them according to its transition table, once per tick.
package machine

import (
	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/ecs/component"
)

// StateID identifies a state type. It is the ID of the component that holds
// the state's data while an entity occupies it.
type StateID = component.ID

// AnyState is the wildcard identity. As a transition source it matches every
// current state; in hook filters it matches either side of the pair.
const AnyState StateID = 0

// StateDef identifies a registered state type. Def[T] and Any implement it.
type StateDef interface {
	ID() StateID
	Name() string
	// Matches reports whether a concrete state identity satisfies this
	// definition when used as a hook filter.
	Matches(id StateID) bool
}

// StateSet is a hook filter over state identities. Every StateDef is a
// single-member StateSet; OneOf and Excluding build larger ones.
type StateSet interface {
	Matches(id StateID) bool
	Name() string
}

// State is a concrete state value bound to its identity, ready to be attached
// to an entity. Build one with Def.Is.
type State interface {
	StateID() StateID
	Name() string
	// attach inserts the state's data onto the entity immediately. The
	// runner only calls this from queued commands.
	attach(w *ecs.World, e ecs.Entity)
	// data returns the value handed to transition builders as the prior
	// state.
	data() any
}

// Def is a typed state definition. Allocate one per state type with NewState
// and share it; the definition owns the state's component identity.
type Def[T any] struct {
	handle component.Handle[T]
}

// NewState registers a new state type under the given debug name.
func NewState[T any](name string) Def[T] {
	return Def[T]{handle: component.New[T](name)}
}

func (d Def[T]) ID() StateID {
	return d.handle.ID()
}

func (d Def[T]) Name() string {
	return d.handle.Name()
}

func (d Def[T]) Matches(id StateID) bool {
	return id == d.handle.ID()
}

// Is binds a concrete value to this state definition.
func (d Def[T]) Is(value T) State {
	return boundState[T]{def: d, value: value}
}

// Handle exposes the underlying component handle, for systems that want to
// query the state's data directly.
func (d Def[T]) Handle() component.Handle[T] {
	return d.handle
}

// Current returns the state's data if the entity is currently in it.
func (d Def[T]) Current(w *ecs.World, e ecs.Entity) (T, bool) {
	return ecs.Get(w, e, d.handle)
}

type boundState[T any] struct {
	def   Def[T]
	value T
}

func (s boundState[T]) StateID() StateID {
	return s.def.ID()
}

func (s boundState[T]) Name() string {
	return s.def.Name()
}

func (s boundState[T]) attach(w *ecs.World, e ecs.Entity) {
	_ = ecs.Add(w, e, s.def.handle, s.value)
}

func (s boundState[T]) data() any {
	return s.value
}

type anyState struct{}

// Any is the wildcard StateDef. Use it as a transition source or hook filter
// side to match regardless of the concrete state.
var Any StateDef = anyState{}

func (anyState) ID() StateID          { return AnyState }
func (anyState) Name() string         { return "AnyState" }
func (anyState) Matches(StateID) bool { return true }

type oneOfSet struct {
	name string
	ids  map[StateID]struct{}
}

// OneOf builds a hook filter matching any of the given states.
func OneOf(defs ...StateDef) StateSet {
	ids := make(map[StateID]struct{}, len(defs))
	name := ""
	for i, d := range defs {
		ids[d.ID()] = struct{}{}
		if i > 0 {
			name += "|"
		}
		name += d.Name()
	}
	return oneOfSet{name: "OneOf(" + name + ")", ids: ids}
}

func (s oneOfSet) Matches(id StateID) bool {
	_, ok := s.ids[id]
	return ok
}

func (s oneOfSet) Name() string {
	return s.name
}

type excludingSet struct {
	inner StateSet
}

// Excluding builds a hook filter matching every state the given set does not.
func Excluding(set StateSet) StateSet {
	return excludingSet{inner: set}
}

func (s excludingSet) Matches(id StateID) bool {
	return !s.inner.Matches(id)
}

func (s excludingSet) Name() string {
	return "Not(" + s.inner.Name() + ")"
}
