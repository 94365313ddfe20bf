package trigger

import (
	"testing"

	"github.com/neilotoole/slogt"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/ecs/component"
)

func TestScriptTrigger(t *testing.T) {
	w := ecs.NewWorld()
	w.SetLogger(slogt.New(t))
	e := w.CreateEntity()

	cases := []struct {
		name        string
		src         string
		wantOK      bool
		wantPayload any
	}{
		{"true_literal", `ok := true`, true, nil},
		{"false_literal", `ok := false`, false, nil},
		{"entity_bound", `ok := entity > 0`, true, nil},
		{"payload", `ok := true; out := 7`, true, int64(7)},
		{"math_module", `math := import("math"); ok := math.abs(-1) == 1`, true, nil},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			trig := Script(c.src, nil, nil)
			trig.Init(w)
			res := trig.Check(e, w)
			if res.OK() != c.wantOK {
				t.Fatalf("expected ok=%v, got %v", c.wantOK, res.OK())
			}
			if c.wantPayload != nil && res.Payload() != c.wantPayload {
				t.Fatalf("expected payload %v, got %v", c.wantPayload, res.Payload())
			}
		})
	}
}

func TestScriptTriggerBinder(t *testing.T) {
	health := component.New[int64]("Health")

	w := ecs.NewWorld()
	w.SetLogger(slogt.New(t))
	e := w.CreateEntity()
	if err := ecs.Add(w, e, health, int64(3)); err != nil {
		t.Fatal(err)
	}

	trig := Script(`ok := health < 5`, []string{"health"},
		func(e ecs.Entity, w *ecs.World) map[string]any {
			hp, _ := ecs.Get(w, e, health)
			return map[string]any{"health": hp}
		})
	trig.Init(w)

	if !trig.Check(e, w).OK() {
		t.Fatalf("expected low health to fire")
	}

	if err := ecs.Add(w, e, health, int64(9)); err != nil {
		t.Fatal(err)
	}
	if trig.Check(e, w).OK() {
		t.Fatalf("expected high health not to fire")
	}
}

func TestScriptTriggerCompileErrorPanics(t *testing.T) {
	w := ecs.NewWorld()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on compile error")
		}
	}()
	Script(`ok := `, nil, nil).Init(w)
}
