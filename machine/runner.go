package machine

import (
	"runtime"

	"github.com/alitto/pond/v2"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/ecs/component"
)

var machineHandle = component.New[*StateMachine]("StateMachine")

// placeholder sits in the component table while a machine is checked out.
var placeholder = &StateMachine{}

// Attach puts a machine on an entity and seeds its initial state if the
// entity is not already in a known one. A machine must not be attached to
// more than one entity.
func Attach(w *ecs.World, e ecs.Entity, m *StateMachine) error {
	if err := ecs.Add(w, e, machineHandle, m); err != nil {
		return err
	}
	m.seedInitial(w, e)
	return nil
}

// Of returns the machine attached to an entity, if any.
func Of(w *ecs.World, e ecs.Entity) (*StateMachine, bool) {
	return ecs.Get(w, e, machineHandle)
}

// Detach removes an entity's machine. Its current state data stays attached.
func Detach(w *ecs.World, e ecs.Entity) bool {
	return ecs.Remove(w, e, machineHandle)
}

// TransitionSystem drives every attached StateMachine once per tick.
//
// Each tick works through fixed phases. Checkout moves every machine out of
// the shared table, leaving a placeholder, so machines can be mutated while
// the world is read elsewhere. Initialize re-runs trigger Init on dirty
// machines with exclusive world access. Evaluate is read-only and fans out
// across a worker pool, since each machine only touches its own table.
// Apply queues the winning swaps into the world's command queue in checkout
// order. Commit moves the machines back; the scheduler then drains the queue.
type TransitionSystem struct {
	pool pond.Pool
}

// TransitionSystemOption configures a TransitionSystem.
type TransitionSystemOption func(*transitionSystemConfig)

type transitionSystemConfig struct {
	workers int
}

// WithWorkers sets the evaluate-phase worker count. Zero or negative means
// one worker per CPU; one disables parallelism.
func WithWorkers(n int) TransitionSystemOption {
	return func(c *transitionSystemConfig) {
		c.workers = n
	}
}

// NewTransitionSystem creates the per-tick transition runner.
func NewTransitionSystem(opts ...TransitionSystemOption) *TransitionSystem {
	cfg := transitionSystemConfig{workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.NumCPU()
	}
	return &TransitionSystem{pool: pond.NewPool(cfg.workers)}
}

type checkedOut struct {
	entity  ecs.Entity
	machine *StateMachine
}

func (s *TransitionSystem) Update(w *ecs.World) {
	table := w.Table(machineHandle.ID(), machineHandle.Name())
	if table.Len() == 0 {
		return
	}

	// Checkout.
	entities := append([]ecs.Entity(nil), table.Entities()...)
	working := make([]checkedOut, 0, len(entities))
	for _, e := range entities {
		m, ok := ecs.Get(w, e, machineHandle)
		if !ok || m == placeholder {
			continue
		}
		table.Set(e, placeholder)
		working = append(working, checkedOut{entity: e, machine: m})
	}

	// Initialize. Needs exclusive world access, so it cannot overlap the
	// read-only evaluation below.
	for _, item := range working {
		item.machine.init(w)
	}

	// Evaluate.
	decisions := make([]*decision, len(working))
	if len(working) == 1 || s.pool == nil {
		for i, item := range working {
			decisions[i], _ = item.machine.evaluate(w, item.entity)
		}
	} else {
		group := s.pool.NewGroup()
		for i, item := range working {
			group.Submit(func() {
				decisions[i], _ = item.machine.evaluate(w, item.entity)
			})
		}
		_ = group.Wait()
	}

	// Apply, in checkout order so queued side effects are stable within a
	// tick.
	for i, item := range working {
		if decisions[i] != nil {
			item.machine.apply(w, item.entity, decisions[i])
		}
	}

	// Commit.
	for _, item := range working {
		if !w.IsAlive(item.entity) {
			continue
		}
		if cur, ok := ecs.Get(w, item.entity, machineHandle); !ok || cur != placeholder {
			// The machine slot changed while checked out; leave it alone.
			continue
		}
		table.Set(item.entity, item.machine)
	}
}

// Close releases the evaluate worker pool. Only needed when tearing down a
// world before process exit.
func (s *TransitionSystem) Close() {
	if s.pool != nil {
		s.pool.StopAndWait()
	}
}
