package ecs

import "github.com/milk9111/machina/ecs/component"

// Typed component access. Methods cannot take type parameters, so these live
// as package-level functions taking the world first.

func Add[T any](w *World, e Entity, h component.Handle[T], value T) error {
	return w.SetComponent(e, h.ID(), h.Name(), value)
}

func Remove[T any](w *World, e Entity, h component.Handle[T]) bool {
	return w.RemoveComponent(e, h.ID())
}

func Has[T any](w *World, e Entity, h component.Handle[T]) bool {
	return w.HasComponent(e, h.ID())
}

func Get[T any](w *World, e Entity, h component.Handle[T]) (T, bool) {
	var zero T
	value, ok := w.GetComponent(e, h.ID())
	if !ok {
		return zero, false
	}
	cast, ok := value.(T)
	if !ok {
		return zero, false
	}
	return cast, true
}

// SetResource stores a typed world-global singleton.
func SetResource[T any](w *World, h component.Handle[T], value T) {
	w.SetResource(h.ID(), h.Name(), value)
}

// Resource fetches a typed world-global singleton.
func Resource[T any](w *World, h component.Handle[T]) (T, bool) {
	var zero T
	value, ok := w.GetResource(h.ID())
	if !ok {
		return zero, false
	}
	cast, ok := value.(T)
	if !ok {
		return zero, false
	}
	return cast, true
}

// RemoveResource drops a typed world-global singleton.
func RemoveResource[T any](w *World, h component.Handle[T]) bool {
	return w.RemoveResource(h.ID())
}

// InsertOn queues a typed component insert on the scoped entity.
func InsertOn[T any](c *EntityCommands, h component.Handle[T], value T) {
	c.Enqueue(func(w *World, e Entity) {
		_ = w.SetComponent(e, h.ID(), h.Name(), value)
	})
}

// RemoveFrom queues a typed component removal on the scoped entity.
func RemoveFrom[T any](c *EntityCommands, h component.Handle[T]) {
	c.Enqueue(func(w *World, e Entity) {
		w.RemoveComponent(e, h.ID())
	})
}
