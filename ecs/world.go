package ecs

import (
	"log/slog"
	"sort"

	"github.com/milk9111/machina/ecs/component"
)

// World owns entities, component tables, resources, and the deferred command
// queue. It is not safe for concurrent mutation; systems that fan out work
// must treat it as read-only while doing so.
type World struct {
	entities  entityStore
	tables    map[component.ID]*SparseSet
	names     map[component.ID]string
	resources map[component.ID]any
	commands  []func(*World)
	logger    *slog.Logger
}

// NewWorld creates an empty world logging through slog.Default.
func NewWorld() *World {
	return &World{
		tables:    make(map[component.ID]*SparseSet),
		names:     make(map[component.ID]string),
		resources: make(map[component.ID]any),
		logger:    slog.Default(),
	}
}

// CreateEntity allocates a new entity.
func (w *World) CreateEntity() Entity {
	return w.entities.create()
}

// DestroyEntity kills an entity and drops all of its components.
func (w *World) DestroyEntity(e Entity) bool {
	if !w.entities.destroy(e) {
		return false
	}
	for _, table := range w.tables {
		table.Remove(e)
	}
	return true
}

// IsAlive reports whether an entity handle is still valid.
func (w *World) IsAlive(e Entity) bool {
	return w.entities.isAlive(e)
}

// Logger returns the world's logging sink.
func (w *World) Logger() *slog.Logger {
	if w == nil || w.logger == nil {
		return slog.Default()
	}
	return w.logger
}

// SetLogger replaces the world's logging sink.
func (w *World) SetLogger(l *slog.Logger) {
	if l != nil {
		w.logger = l
	}
}

func (w *World) table(id component.ID, name string) *SparseSet {
	t, ok := w.tables[id]
	if !ok {
		t = &SparseSet{}
		w.tables[id] = t
		w.names[id] = name
	}
	return t
}

// SetComponent attaches a value under the given component ID. The name is
// registered for diagnostics on first use of the ID.
func (w *World) SetComponent(e Entity, id component.ID, name string, v any) error {
	if id == 0 {
		return component.ErrInvalidHandle
	}
	if !w.IsAlive(e) {
		return component.ErrEntityNotAlive
	}
	w.table(id, name).Set(e, v)
	return nil
}

// GetComponent returns the raw value attached under id.
func (w *World) GetComponent(e Entity, id component.ID) (any, bool) {
	t, ok := w.tables[id]
	if !ok || !t.Has(e) {
		return nil, false
	}
	return t.Get(e), true
}

// HasComponent reports whether id is attached to e.
func (w *World) HasComponent(e Entity, id component.ID) bool {
	t, ok := w.tables[id]
	return ok && t.Has(e)
}

// RemoveComponent detaches id from e.
func (w *World) RemoveComponent(e Entity, id component.ID) bool {
	t, ok := w.tables[id]
	return ok && t.Remove(e)
}

// ComponentIDs returns the IDs attached to e in ascending ID order.
func (w *World) ComponentIDs(e Entity) []component.ID {
	var ids []component.ID
	for id, t := range w.tables {
		if t.Has(e) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ComponentName returns the registered debug name for id.
func (w *World) ComponentName(id component.ID) string {
	if name, ok := w.names[id]; ok {
		return name
	}
	return "unknown"
}

// Table returns the storage for id, creating it if needed. Intended for
// systems that iterate a whole component kind.
func (w *World) Table(id component.ID, name string) *SparseSet {
	return w.table(id, name)
}

// SetResource stores a world-global singleton under id.
func (w *World) SetResource(id component.ID, name string, v any) {
	if id == 0 {
		return
	}
	if _, ok := w.names[id]; !ok {
		w.names[id] = name
	}
	w.resources[id] = v
}

// GetResource returns the resource stored under id.
func (w *World) GetResource(id component.ID) (any, bool) {
	v, ok := w.resources[id]
	return v, ok
}

// RemoveResource drops the resource stored under id.
func (w *World) RemoveResource(id component.ID) bool {
	if _, ok := w.resources[id]; !ok {
		return false
	}
	delete(w.resources, id)
	return true
}

// Enqueue defers a mutation until the next ApplyCommands call. Commands run
// in insertion order.
func (w *World) Enqueue(cmd func(*World)) {
	if cmd != nil {
		w.commands = append(w.commands, cmd)
	}
}

// ApplyCommands drains the command queue in insertion order. Commands queued
// while applying run in the same drain.
func (w *World) ApplyCommands() {
	for len(w.commands) > 0 {
		pending := w.commands
		w.commands = nil
		for _, cmd := range pending {
			cmd(w)
		}
	}
}

// PendingCommands returns the number of queued commands.
func (w *World) PendingCommands() int {
	return len(w.commands)
}

// EntityCommands queues mutations scoped to a single entity. Handed to
// entity-scoped hooks so they can only touch their own entity.
type EntityCommands struct {
	world  *World
	entity Entity
}

// Commands returns an entity-scoped command queue for e.
func (w *World) Commands(e Entity) *EntityCommands {
	return &EntityCommands{world: w, entity: e}
}

// Entity returns the entity these commands are scoped to.
func (c *EntityCommands) Entity() Entity {
	return c.entity
}

// Enqueue defers a mutation that receives the world and the scoped entity.
func (c *EntityCommands) Enqueue(fn func(w *World, e Entity)) {
	if c == nil || fn == nil {
		return
	}
	e := c.entity
	c.world.Enqueue(func(w *World) {
		if w.IsAlive(e) {
			fn(w, e)
		}
	})
}
