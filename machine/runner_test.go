package machine_test

import (
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/machine"
)

// initCountingTrigger records Init calls, to pin down the re-activation
// contract: Init runs on registration and again after every taken transition.
type initCountingTrigger struct {
	ok    bool
	inits int
}

func (t *initCountingTrigger) Init(*ecs.World) { t.inits++ }

func (t *initCountingTrigger) Check(ecs.Entity, *ecs.World) machine.Result {
	if t.ok {
		return machine.Success(nil)
	}
	return machine.Failure(nil)
}

func (t *initCountingTrigger) Name() string { return "InitCounting" }

func TestTriggersReinitializedAfterTransition(t *testing.T) {
	f := newFixture(t)

	trig := &initCountingTrigger{ok: true}
	m := machine.Default().
		Trans(defOne, trig, defTwo.Is(stateTwo{})).
		Trans(defTwo, machine.Always(), defOne.Is(stateOne{}))
	e := f.spawn(t, m)
	require.NoError(t, ecs.Add(f.world, e, defOne.Handle(), stateOne{}))

	f.tick()
	require.Equal(t, 1, trig.inits)

	// Each taken transition dirties the table, so Init runs again on the
	// next tick.
	f.tick()
	require.Equal(t, 2, trig.inits)

	f.tick()
	require.Equal(t, 3, trig.inits)
}

func TestNoReinitWithoutTransition(t *testing.T) {
	f := newFixture(t)

	trig := &initCountingTrigger{ok: false}
	m := machine.Default().Trans(defOne, trig, defTwo.Is(stateTwo{}))
	e := f.spawn(t, m)
	require.NoError(t, ecs.Add(f.world, e, defOne.Handle(), stateOne{}))

	f.tick()
	f.tick()
	f.tick()

	require.Equal(t, 1, trig.inits, "a quiet machine should not reinitialize its triggers")
}

func TestParallelEvaluate(t *testing.T) {
	w := ecs.NewWorld()
	w.SetLogger(slogt.New(t))
	runner := machine.NewTransitionSystem(machine.WithWorkers(4))
	t.Cleanup(runner.Close)
	sched := ecs.NewScheduler(runner)

	const n = 200
	entities := make([]ecs.Entity, 0, n)
	for range n {
		m := machine.New(defOne.Is(stateOne{})).
			Trans(defOne, machine.Always(), defTwo.Is(stateTwo{}))
		e := w.CreateEntity()
		require.NoError(t, machine.Attach(w, e, m))
		entities = append(entities, e)
	}

	sched.Update(w)

	for _, e := range entities {
		require.True(t, ecs.Has(w, e, defTwo.Handle()))
		require.False(t, ecs.Has(w, e, defOne.Handle()))
	}
}

func TestEntityDestroyedByHook(t *testing.T) {
	f := newFixture(t)

	var target ecs.Entity
	m := machine.Default().
		Trans(defOne, machine.Always(), defTwo.Is(stateTwo{})).
		CommandOnEnter(defTwo, machine.Any, func(w *ecs.World) {
			w.DestroyEntity(target)
		})
	target = f.spawn(t, m)
	require.NoError(t, ecs.Add(f.world, target, defOne.Handle(), stateOne{}))

	f.tick()

	require.False(t, f.world.IsAlive(target))
	// A second tick over the emptied table must be a no-op.
	f.tick()
}

func TestDetachedMachineStops(t *testing.T) {
	f := newFixture(t)

	m := machine.Default().
		Trans(defOne, machine.Always(), defTwo.Is(stateTwo{})).
		Trans(defTwo, machine.Always(), defThree.Is(stateThree{}))
	e := f.spawn(t, m)
	require.NoError(t, ecs.Add(f.world, e, defOne.Handle(), stateOne{}))

	f.tick()
	require.True(t, ecs.Has(f.world, e, defTwo.Handle()))

	require.True(t, machine.Detach(f.world, e))
	f.tick()

	// State data survives; it just stops moving.
	require.True(t, ecs.Has(f.world, e, defTwo.Handle()))
	require.False(t, ecs.Has(f.world, e, defThree.Handle()))
}
