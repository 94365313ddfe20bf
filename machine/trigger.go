package machine

import (
	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/ecs/component"
)

// Result is the outcome of a trigger check. A success carries a payload for
// the transition builder; a failure carries a payload for Not-wrapped
// builders. Either may be nil when there is nothing useful to pass.
type Result struct {
	ok      bool
	payload any
	failure any
}

// Success builds a firing result with the given builder payload.
func Success(payload any) Result {
	return Result{ok: true, payload: payload}
}

// Failure builds a non-firing result with the given failure payload.
func Failure(failure any) Result {
	return Result{ok: false, failure: failure}
}

// OK reports whether the trigger fired.
func (r Result) OK() bool {
	return r.ok
}

// Payload returns the success payload.
func (r Result) Payload() any {
	return r.payload
}

// FailurePayload returns the failure payload.
func (r Result) FailurePayload() any {
	return r.failure
}

// Trigger decides, once per tick, whether a transition should fire for an
// entity. Check must not mutate the world; it may run concurrently with
// checks for other entities. Init runs with exclusive world access whenever
// the owning machine's transitions are (re)activated, so triggers may keep
// per-activation memory there.
type Trigger interface {
	Init(w *ecs.World)
	Check(e ecs.Entity, w *ecs.World) Result
	Name() string
}

// TriggerFunc adapts a plain check function to the Trigger interface, with a
// no-op Init.
type TriggerFunc struct {
	Label string
	Fn    func(e ecs.Entity, w *ecs.World) Result
}

func (t TriggerFunc) Init(*ecs.World) {}

func (t TriggerFunc) Check(e ecs.Entity, w *ecs.World) Result {
	return t.Fn(e, w)
}

func (t TriggerFunc) Name() string {
	if t.Label != "" {
		return t.Label
	}
	return "TriggerFunc"
}

type alwaysTrigger struct{}

// Always returns a trigger that fires every tick with a nil payload.
func Always() Trigger {
	return alwaysTrigger{}
}

func (alwaysTrigger) Init(*ecs.World) {}

func (alwaysTrigger) Check(ecs.Entity, *ecs.World) Result {
	return Success(nil)
}

func (alwaysTrigger) Name() string {
	return "Always"
}

type notTrigger struct {
	inner Trigger
}

// Not inverts a trigger. The inner failure payload becomes the success
// payload and vice versa.
func Not(t Trigger) Trigger {
	return notTrigger{inner: t}
}

func (t notTrigger) Init(w *ecs.World) {
	t.inner.Init(w)
}

func (t notTrigger) Check(e ecs.Entity, w *ecs.World) Result {
	res := t.inner.Check(e, w)
	if res.OK() {
		return Failure(res.Payload())
	}
	return Success(res.FailurePayload())
}

func (t notTrigger) Name() string {
	return "Not(" + t.inner.Name() + ")"
}

// Both carries the payloads of two triggers that fired together.
type Both struct {
	Left  any
	Right any
}

// AndFailure reports which side of an And failed, with its failure payload.
type AndFailure struct {
	// RightFailed is false when the left trigger failed; the right trigger
	// was then never checked.
	RightFailed bool
	Failure     any
}

// OrFailure carries both failure payloads when neither side of an Or fired.
type OrFailure struct {
	Left  any
	Right any
}

type andTrigger struct {
	left, right Trigger
}

// And fires only when both triggers fire, checking left to right and
// short-circuiting on the first failure.
func And(left, right Trigger) Trigger {
	return andTrigger{left: left, right: right}
}

func (t andTrigger) Init(w *ecs.World) {
	t.left.Init(w)
	t.right.Init(w)
}

func (t andTrigger) Check(e ecs.Entity, w *ecs.World) Result {
	l := t.left.Check(e, w)
	if !l.OK() {
		return Failure(AndFailure{RightFailed: false, Failure: l.FailurePayload()})
	}
	r := t.right.Check(e, w)
	if !r.OK() {
		return Failure(AndFailure{RightFailed: true, Failure: r.FailurePayload()})
	}
	return Success(Both{Left: l.Payload(), Right: r.Payload()})
}

func (t andTrigger) Name() string {
	return "And(" + t.left.Name() + ", " + t.right.Name() + ")"
}

type orTrigger struct {
	left, right Trigger
}

// Or fires when either trigger fires, preferring the left payload and
// skipping the right check when the left fires.
func Or(left, right Trigger) Trigger {
	return orTrigger{left: left, right: right}
}

func (t orTrigger) Init(w *ecs.World) {
	t.left.Init(w)
	t.right.Init(w)
}

func (t orTrigger) Check(e ecs.Entity, w *ecs.World) Result {
	l := t.left.Check(e, w)
	if l.OK() {
		return l
	}
	r := t.right.Check(e, w)
	if r.OK() {
		return r
	}
	return Failure(OrFailure{Left: l.FailurePayload(), Right: r.FailurePayload()})
}

func (t orTrigger) Name() string {
	return "Or(" + t.left.Name() + ", " + t.right.Name() + ")"
}

// Done is a one-shot marker attached by game logic to signal that the current
// state has finished. All markers are cleared once per tick by
// DoneCleanupSystem, whether or not a transition consumed them.
type Done int

const (
	DoneSuccess Done = iota
	DoneFailure
)

func (d Done) String() string {
	if d == DoneSuccess {
		return "success"
	}
	return "failure"
}

var doneHandle = component.New[Done]("Done")

// MarkDone attaches a Done marker to the entity.
func MarkDone(w *ecs.World, e ecs.Entity, d Done) {
	_ = ecs.Add(w, e, doneHandle, d)
}

// IsDone reports whether the entity currently carries a Done marker.
func IsDone(w *ecs.World, e ecs.Entity) (Done, bool) {
	return ecs.Get(w, e, doneHandle)
}

type doneTrigger struct {
	want Done
}

// OnDone returns a trigger that fires while the entity carries a Done marker
// with the given variant.
func OnDone(want Done) Trigger {
	return doneTrigger{want: want}
}

func (t doneTrigger) Init(*ecs.World) {}

func (t doneTrigger) Check(e ecs.Entity, w *ecs.World) Result {
	d, ok := ecs.Get(w, e, doneHandle)
	if !ok || d != t.want {
		return Failure(nil)
	}
	return Success(d)
}

func (t doneTrigger) Name() string {
	return "Done(" + t.want.String() + ")"
}

// DoneCleanupSystem removes every Done marker in the world. Schedule it after
// the TransitionSystem so markers never linger into the next tick.
type DoneCleanupSystem struct{}

func (DoneCleanupSystem) Update(w *ecs.World) {
	table := w.Table(doneHandle.ID(), doneHandle.Name())
	for _, e := range append([]ecs.Entity(nil), table.Entities()...) {
		table.Remove(e)
	}
}
