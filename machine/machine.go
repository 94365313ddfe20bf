package machine

import (
	"log/slog"

	"github.com/milk9111/machina/ecs"
)

// BuilderFunc computes the next state's value from the prior state's data and
// the trigger payload. Returning false declines the transition; evaluation
// then continues with later candidates.
type BuilderFunc func(prev any, payload any) (State, bool)

type transition struct {
	source     StateID
	sourceName string
	trigger    Trigger
	build      BuilderFunc
	target     StateID
	targetName string
}

// idDef adapts a concrete state's identity to the StateDef interface.
type idDef struct {
	id   StateID
	name string
}

func (d idDef) ID() StateID             { return d.id }
func (d idDef) Name() string            { return d.name }
func (d idDef) Matches(id StateID) bool { return id == d.id }

type hook struct {
	// For enter hooks first is the next state and second the outgoing one;
	// for exit hooks first is the outgoing state and second the next one.
	first    StateSet
	second   StateSet
	entityFn func(*ecs.EntityCommands)
	command  func(*ecs.World)
}

func (h hook) matches(first, second StateID) bool {
	return h.first.Matches(first) && h.second.Matches(second)
}

// StateMachine is a per-entity transition table. Attach one to an entity with
// Attach; the TransitionSystem then drives it every tick. A machine must not
// be shared between entities.
type StateMachine struct {
	states      map[StateID]string
	transitions []transition
	onEnter     []hook
	onExit      []hook

	// initial is inserted on the first tick if the entity is in no state yet.
	initial State
	seeded  bool

	// needsInit forces trigger Init before the next evaluation. Set on
	// registration and after every taken transition, since triggers may
	// carry per-activation memory.
	needsInit      bool
	logTransitions bool
}

// Default creates a machine with no transitions and no initial state. The
// caller is responsible for attaching a registered state to the entity before
// the first tick.
func Default() *StateMachine {
	return &StateMachine{
		states:    make(map[StateID]string),
		needsInit: true,
	}
}

// New creates a machine that seeds the given initial state on the first tick
// if the entity is not already in a known state.
func New(initial State) *StateMachine {
	m := Default()
	m.initial = initial
	m.registerState(initial.StateID(), initial.Name())
	return m
}

func (m *StateMachine) registerState(id StateID, name string) {
	if id == AnyState {
		return
	}
	if _, ok := m.states[id]; !ok {
		m.states[id] = name
	}
}

// WithState registers a state that appears in no transition, so the runner
// recognizes it when determining the current state.
func (m *StateMachine) WithState(def StateDef) *StateMachine {
	m.registerState(def.ID(), def.Name())
	return m
}

// Trans adds a transition from source to the given state, inserted as-is when
// the trigger fires. Transitions registered on the same source have priority
// in registration order; registering the same (source, trigger) twice is
// allowed and resolved by that order.
func (m *StateMachine) Trans(source StateDef, trigger Trigger, next State) *StateMachine {
	return m.TransBuilder(source, trigger, idDef{id: next.StateID(), name: next.Name()},
		func(any, any) (State, bool) { return next, true })
}

// TransBuilder adds a transition whose next-state value is computed by build.
// The declared target must be the only state the builder returns.
func (m *StateMachine) TransBuilder(source StateDef, trigger Trigger, target StateDef, build BuilderFunc) *StateMachine {
	m.registerState(source.ID(), source.Name())
	m.registerState(target.ID(), target.Name())
	m.transitions = append(m.transitions, transition{
		source:     source.ID(),
		sourceName: source.Name(),
		trigger:    trigger,
		build:      build,
		target:     target.ID(),
		targetName: target.Name(),
	})
	m.needsInit = true
	return m
}

// TransBuilder is the typed form of StateMachine.TransBuilder. The builder
// receives the prior state's data and the trigger payload; returning false
// declines the transition.
func TransBuilder[Prev, Payload, Next any](
	m *StateMachine,
	source Def[Prev],
	trigger Trigger,
	target Def[Next],
	build func(prev Prev, payload Payload) (Next, bool),
) *StateMachine {
	return m.TransBuilder(source, trigger, target,
		func(prev any, payload any) (State, bool) {
			p, _ := prev.(Prev)
			out, _ := payload.(Payload)
			next, ok := build(p, out)
			if !ok {
				return nil, false
			}
			return target.Is(next), true
		})
}

// OnEnter runs fn whenever the machine transitions into a state matching next
// from a state matching current. fn may only queue mutations on the entity.
func (m *StateMachine) OnEnter(next, current StateSet, fn func(*ecs.EntityCommands)) *StateMachine {
	m.onEnter = append(m.onEnter, hook{first: next, second: current, entityFn: fn})
	return m
}

// OnExit runs fn whenever the machine transitions out of a state matching
// current into a state matching next, before the old state's data is removed.
func (m *StateMachine) OnExit(current, next StateSet, fn func(*ecs.EntityCommands)) *StateMachine {
	m.onExit = append(m.onExit, hook{first: current, second: next, entityFn: fn})
	return m
}

// CommandOnEnter queues a world-level command whenever the machine
// transitions into a state matching next from a state matching current.
func (m *StateMachine) CommandOnEnter(next, current StateSet, cmd func(*ecs.World)) *StateMachine {
	m.onEnter = append(m.onEnter, hook{first: next, second: current, command: cmd})
	return m
}

// CommandOnExit queues a world-level command whenever the machine transitions
// out of a state matching current into a state matching next.
func (m *StateMachine) CommandOnExit(current, next StateSet, cmd func(*ecs.World)) *StateMachine {
	m.onExit = append(m.onExit, hook{first: current, second: next, command: cmd})
	return m
}

// SetTransLogging enables one info log line per taken transition.
func (m *StateMachine) SetTransLogging(log bool) *StateMachine {
	m.logTransitions = log
	return m
}

// StateName returns the registered name for a state known to this machine.
func (m *StateMachine) StateName(id StateID) string {
	if id == AnyState {
		return "AnyState"
	}
	if name, ok := m.states[id]; ok {
		return name
	}
	return "unknown"
}

// seedInitial attaches the declared initial state directly, without hooks or
// transition logging; it precedes the machine's first transition rather than
// being one. The runner falls back to seeding on the first tick for machines
// attached without going through Attach.
func (m *StateMachine) seedInitial(w *ecs.World, e ecs.Entity) {
	if m.initial == nil || m.seeded {
		return
	}
	for _, id := range w.ComponentIDs(e) {
		if _, known := m.states[id]; known {
			return
		}
	}
	m.initial.attach(w, e)
	m.seeded = true
}

func (m *StateMachine) init(w *ecs.World) {
	if !m.needsInit {
		return
	}
	for i := range m.transitions {
		m.transitions[i].trigger.Init(w)
	}
	m.needsInit = false
}

// decision is the outcome of evaluating one machine for one tick.
type decision struct {
	// seed is set when the machine inserts its initial state instead of
	// taking a transition.
	seed State

	current     StateID
	next        State
	triggerName string
	prev        any
}

// evaluate inspects the entity read-only and picks at most one transition.
// It never mutates the world; conflicts with other entities' evaluations are
// impossible because each machine only touches its own table.
func (m *StateMachine) evaluate(w *ecs.World, e ecs.Entity) (*decision, bool) {
	current, ok := m.currentState(w, e)
	if !ok {
		return nil, false
	}
	if current == AnyState {
		// No state attached yet; seed the declared initial state.
		return &decision{seed: m.initial}, true
	}

	prev, _ := w.GetComponent(e, current)

	// Specific-state transitions outrank wildcard ones so a catch-all never
	// shadows a more specific match; within each group registration order
	// decides.
	if d := m.evaluateGroup(w, e, current, prev, false); d != nil {
		return d, true
	}
	if d := m.evaluateGroup(w, e, current, prev, true); d != nil {
		return d, true
	}
	return nil, true
}

func (m *StateMachine) evaluateGroup(w *ecs.World, e ecs.Entity, current StateID, prev any, wildcard bool) *decision {
	for i := range m.transitions {
		t := &m.transitions[i]
		if wildcard != (t.source == AnyState) {
			continue
		}
		if !wildcard && t.source != current {
			continue
		}
		res := t.trigger.Check(e, w)
		if !res.OK() {
			continue
		}
		next, ok := t.build(prev, res.Payload())
		if !ok {
			// Trigger fired but the builder declined; keep looking.
			continue
		}
		return &decision{
			current:     current,
			next:        next,
			triggerName: t.trigger.Name(),
			prev:        prev,
		}
	}
	return nil
}

// currentState determines which known state the entity occupies. Zero or
// multiple attached states is a caller bug; it is reported and the entity is
// skipped for this tick. The AnyState return with ok=true means the machine
// still has an initial state to seed.
func (m *StateMachine) currentState(w *ecs.World, e ecs.Entity) (StateID, bool) {
	var attached []StateID
	for _, id := range w.ComponentIDs(e) {
		if _, known := m.states[id]; known {
			attached = append(attached, id)
		}
	}
	switch len(attached) {
	case 0:
		if m.initial != nil && !m.seeded {
			return AnyState, true
		}
		w.Logger().Error("entity is in no state", slog.String("entity", e.String()))
		return AnyState, false
	case 1:
		return attached[0], true
	default:
		names := make([]string, len(attached))
		for i, id := range attached {
			names[i] = m.StateName(id)
		}
		w.Logger().Error("entity is in multiple states",
			slog.String("entity", e.String()),
			slog.Any("states", names))
		return AnyState, false
	}
}

// apply queues the state swap decided by evaluate into the world's command
// queue: exit hooks, remove old data, insert new data, enter hooks, in that
// order. Nothing mutates the world until the queue is drained.
func (m *StateMachine) apply(w *ecs.World, e ecs.Entity, d *decision) {
	if d.seed != nil {
		m.seeded = true
		seed := d.seed
		w.Enqueue(func(w *ecs.World) {
			if w.IsAlive(e) {
				seed.attach(w, e)
			}
		})
		w.Logger().Debug("seeded initial state",
			slog.String("entity", e.String()),
			slog.String("state", seed.Name()))
		m.needsInit = true
		return
	}

	old := d.current
	next := d.next.StateID()

	for _, h := range m.onExit {
		if h.matches(old, next) {
			m.queueHook(w, e, h)
		}
	}

	nextState := d.next
	w.Enqueue(func(w *ecs.World) {
		if !w.IsAlive(e) {
			return
		}
		// Remove before insert so a self-transition never deletes the value
		// it just attached.
		w.RemoveComponent(e, old)
		nextState.attach(w, e)
	})

	for _, h := range m.onEnter {
		if h.matches(next, old) {
			m.queueHook(w, e, h)
		}
	}

	if m.logTransitions {
		w.Logger().Info("transition",
			slog.String("entity", e.String()),
			slog.String("trigger", d.triggerName),
			slog.String("from", m.StateName(old)),
			slog.String("to", m.StateName(next)))
	}

	m.needsInit = true
}

func (m *StateMachine) queueHook(w *ecs.World, e ecs.Entity, h hook) {
	if h.entityFn != nil {
		h.entityFn(w.Commands(e))
	}
	if h.command != nil {
		w.Enqueue(h.command)
	}
}
