// Package fsmspec builds machine.StateMachines from declarative YAML
// documents. States, triggers, and hook commands are referenced by name and
// resolved through an explicit Registry, so a spec file can only reach what
// the game registered for it.
package fsmspec

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/machine"
)

var (
	ErrNoInitial      = errors.New("fsmspec: spec has no initial state")
	ErrUnknownState   = errors.New("fsmspec: unknown state")
	ErrUnknownTrigger = errors.New("fsmspec: unknown trigger")
	ErrUnknownCommand = errors.New("fsmspec: unknown command")
)

// AnyStateName is the spec-file name for the wildcard transition source.
const AnyStateName = "any"

// Doc is the YAML shape of a state machine definition.
type Doc struct {
	Initial        string                      `yaml:"initial"`
	LogTransitions bool                        `yaml:"log_transitions"`
	States         map[string]StateSpec        `yaml:"states"`
	Transitions    map[string][]TransitionSpec `yaml:"transitions"`
}

// StateSpec lists the hook commands run when entering or leaving a state.
type StateSpec struct {
	OnEnter []string `yaml:"on_enter"`
	OnExit  []string `yaml:"on_exit"`
}

// TransitionSpec is one edge: when the named trigger fires, go to the named
// state. Edges listed first have priority.
type TransitionSpec struct {
	Trigger string `yaml:"trigger"`
	To      string `yaml:"to"`
}

// Parse decodes a spec document.
func Parse(data []byte) (Doc, error) {
	var doc Doc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Doc{}, fmt.Errorf("fsmspec: parse: %w", err)
	}
	return doc, nil
}

// Load reads and decodes a spec file.
func Load(path string) (Doc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Doc{}, fmt.Errorf("fsmspec: read %s: %w", path, err)
	}
	return Parse(data)
}

type registeredState struct {
	def  machine.StateDef
	make func() machine.State
}

// Registry maps spec-file names to concrete states, trigger factories, and
// command factories. It is an explicit object handed to Build, not ambient
// process state; one registry per game (or per spec family) is typical.
type Registry struct {
	states   map[string]registeredState
	triggers map[string]func() machine.Trigger
	commands map[string]func(*ecs.World)
}

func NewRegistry() *Registry {
	return &Registry{
		states:   make(map[string]registeredState),
		triggers: make(map[string]func() machine.Trigger),
		commands: make(map[string]func(*ecs.World)),
	}
}

// RegisterState registers a state under its spec-file name. The make
// function produces the value inserted when a transition targets this state.
func RegisterState[T any](r *Registry, name string, def machine.Def[T], make func() T) {
	r.states[name] = registeredState{
		def:  def,
		make: func() machine.State { return def.Is(make()) },
	}
}

// Trigger registers a trigger factory under its spec-file name. The factory
// runs once per edge referencing it, so triggers with per-activation memory
// are not shared between edges.
func (r *Registry) Trigger(name string, factory func() machine.Trigger) {
	r.triggers[name] = factory
}

// Command registers a world command usable in on_enter/on_exit lists.
func (r *Registry) Command(name string, cmd func(*ecs.World)) {
	r.commands[name] = cmd
}

// Build turns a parsed document into a state machine, failing fast on any
// name the registry does not know or a transition targeting an unlisted
// state.
func (r *Registry) Build(doc Doc) (*machine.StateMachine, error) {
	if doc.Initial == "" {
		return nil, ErrNoInitial
	}
	initial, ok := r.states[doc.Initial]
	if !ok {
		return nil, fmt.Errorf("%w: initial state %q", ErrUnknownState, doc.Initial)
	}

	m := machine.New(initial.make())

	for name := range doc.States {
		st, ok := r.states[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownState, name)
		}
		m.WithState(st.def)
	}

	// Walk sources in spec order where possible; yaml maps lose order, so
	// priority within a source comes from its edge list only.
	for source, edges := range doc.Transitions {
		sourceDef, err := r.sourceDef(source)
		if err != nil {
			return nil, err
		}
		for _, edge := range edges {
			factory, ok := r.triggers[edge.Trigger]
			if !ok {
				return nil, fmt.Errorf("%w: %q (transition %s -> %s)", ErrUnknownTrigger, edge.Trigger, source, edge.To)
			}
			target, ok := r.states[edge.To]
			if !ok {
				return nil, fmt.Errorf("%w: %q (transition from %s)", ErrUnknownState, edge.To, source)
			}
			next := target
			m.TransBuilder(sourceDef, factory(), target.def,
				func(any, any) (machine.State, bool) { return next.make(), true })
		}
	}

	for name, spec := range doc.States {
		def := r.states[name].def
		for _, cmdName := range spec.OnEnter {
			cmd, ok := r.commands[cmdName]
			if !ok {
				return nil, fmt.Errorf("%w: %q (on_enter of %s)", ErrUnknownCommand, cmdName, name)
			}
			m.CommandOnEnter(def, machine.Any, cmd)
		}
		for _, cmdName := range spec.OnExit {
			cmd, ok := r.commands[cmdName]
			if !ok {
				return nil, fmt.Errorf("%w: %q (on_exit of %s)", ErrUnknownCommand, cmdName, name)
			}
			m.CommandOnExit(def, machine.Any, cmd)
		}
	}

	m.SetTransLogging(doc.LogTransitions)
	return m, nil
}

func (r *Registry) sourceDef(name string) (machine.StateDef, error) {
	if name == AnyStateName {
		return machine.Any, nil
	}
	st, ok := r.states[name]
	if !ok {
		return nil, fmt.Errorf("%w: transition source %q", ErrUnknownState, name)
	}
	return st.def, nil
}
