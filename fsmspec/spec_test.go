package fsmspec_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/fsmspec"
	"github.com/milk9111/machina/machine"
)

type idle struct{}
type alert struct{}
type attack struct{}

var (
	defIdle   = machine.NewState[idle]("Idle")
	defAlert  = machine.NewState[alert]("Alert")
	defAttack = machine.NewState[attack]("Attack")
)

const guardSpec = `
initial: idle
log_transitions: true
states:
  idle: {}
  alert:
    on_enter: [raise_alarm]
    on_exit: [clear_alarm]
  attack: {}
transitions:
  idle:
    - trigger: player_seen
      to: alert
  alert:
    - trigger: player_close
      to: attack
    - trigger: player_lost
      to: idle
`

func testRegistry(fire map[string]*bool) *fsmspec.Registry {
	r := fsmspec.NewRegistry()
	fsmspec.RegisterState(r, "idle", defIdle, func() idle { return idle{} })
	fsmspec.RegisterState(r, "alert", defAlert, func() alert { return alert{} })
	fsmspec.RegisterState(r, "attack", defAttack, func() attack { return attack{} })
	for _, name := range []string{"player_seen", "player_close", "player_lost"} {
		flag := fire[name]
		r.Trigger(name, func() machine.Trigger {
			return machine.TriggerFunc{
				Label: name,
				Fn: func(ecs.Entity, *ecs.World) machine.Result {
					if flag != nil && *flag {
						return machine.Success(nil)
					}
					return machine.Failure(nil)
				},
			}
		})
	}
	r.Command("raise_alarm", func(*ecs.World) {})
	r.Command("clear_alarm", func(*ecs.World) {})
	return r
}

func TestParse(t *testing.T) {
	doc, err := fsmspec.Parse([]byte(guardSpec))
	require.NoError(t, err)
	require.Equal(t, "idle", doc.Initial)
	require.True(t, doc.LogTransitions)
	require.Len(t, doc.States, 3)
	require.Len(t, doc.Transitions["alert"], 2)
	require.Equal(t, []string{"raise_alarm"}, doc.States["alert"].OnEnter)
}

func TestBuildAndRun(t *testing.T) {
	seen := false
	playerClose := false
	r := testRegistry(map[string]*bool{"player_seen": &seen, "player_close": &playerClose})

	doc, err := fsmspec.Parse([]byte(guardSpec))
	require.NoError(t, err)
	m, err := r.Build(doc)
	require.NoError(t, err)

	w := ecs.NewWorld()
	w.SetLogger(slogt.New(t))
	runner := machine.NewTransitionSystem(machine.WithWorkers(1))
	t.Cleanup(runner.Close)
	sched := ecs.NewScheduler(runner)

	e := w.CreateEntity()
	require.NoError(t, machine.Attach(w, e, m))
	require.True(t, ecs.Has(w, e, defIdle.Handle()))

	sched.Update(w)
	require.True(t, ecs.Has(w, e, defIdle.Handle()), "no trigger fired yet")

	seen = true
	sched.Update(w)
	require.True(t, ecs.Has(w, e, defAlert.Handle()))

	playerClose = true
	sched.Update(w)
	require.True(t, ecs.Has(w, e, defAttack.Handle()))
}

func TestBuildErrors(t *testing.T) {
	r := testRegistry(nil)

	cases := []struct {
		name    string
		mutate  func(*fsmspec.Doc)
		wantErr error
	}{
		{
			"missing_initial",
			func(d *fsmspec.Doc) { d.Initial = "" },
			fsmspec.ErrNoInitial,
		},
		{
			"unknown_initial",
			func(d *fsmspec.Doc) { d.Initial = "ghost" },
			fsmspec.ErrUnknownState,
		},
		{
			"unknown_state",
			func(d *fsmspec.Doc) { d.States["ghost"] = fsmspec.StateSpec{} },
			fsmspec.ErrUnknownState,
		},
		{
			"unknown_trigger",
			func(d *fsmspec.Doc) {
				d.Transitions["idle"] = []fsmspec.TransitionSpec{{Trigger: "ghost", To: "alert"}}
			},
			fsmspec.ErrUnknownTrigger,
		},
		{
			"unknown_target",
			func(d *fsmspec.Doc) {
				d.Transitions["idle"] = []fsmspec.TransitionSpec{{Trigger: "player_seen", To: "ghost"}}
			},
			fsmspec.ErrUnknownState,
		},
		{
			"unknown_command",
			func(d *fsmspec.Doc) {
				d.States["idle"] = fsmspec.StateSpec{OnEnter: []string{"ghost"}}
			},
			fsmspec.ErrUnknownCommand,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			doc, err := fsmspec.Parse([]byte(guardSpec))
			require.NoError(t, err)
			c.mutate(&doc)
			_, err = r.Build(doc)
			require.ErrorIs(t, err, c.wantErr)
		})
	}
}

func TestWildcardSource(t *testing.T) {
	src := `
initial: idle
states:
  idle: {}
  alert: {}
transitions:
  any:
    - trigger: player_seen
      to: alert
`
	seen := true
	r := testRegistry(map[string]*bool{"player_seen": &seen})

	doc, err := fsmspec.Parse([]byte(src))
	require.NoError(t, err)
	m, err := r.Build(doc)
	require.NoError(t, err)

	w := ecs.NewWorld()
	w.SetLogger(slogt.New(t))
	runner := machine.NewTransitionSystem(machine.WithWorkers(1))
	t.Cleanup(runner.Close)

	e := w.CreateEntity()
	require.NoError(t, machine.Attach(w, e, m))

	ecs.NewScheduler(runner).Update(w)
	require.True(t, ecs.Has(w, e, defAlert.Handle()))
}

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	w, err := fsmspec.NewWatcher(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	path := filepath.Join(dir, "guard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(guardSpec), 0o644))

	select {
	case got := <-w.Events:
		require.Equal(t, path, got)
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for watcher event")
	}

	// Non-spec files are filtered out.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "note.txt"), []byte("x"), 0o644))
	select {
	case got := <-w.Events:
		t.Fatalf("unexpected event for %s", got)
	case <-time.After(200 * time.Millisecond):
	}
}
