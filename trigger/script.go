package trigger

import (
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/machine"
)

// scriptTrigger evaluates a tengo script per entity. The script sees the
// variables `entity` (int) plus whatever the binder provides, and must assign
// a boolean to `ok`; an optional `out` becomes the trigger payload.
type scriptTrigger struct {
	src      string
	vars     []string
	bind     func(e ecs.Entity, w *ecs.World) map[string]any
	compiled *tengo.Compiled
}

// Script builds a trigger from tengo source. vars declares the names the
// binder will set per check; bind may be nil when none are needed. A script
// that fails to compile is a caller bug and panics on Init. The bound world
// view is read-only; binders must not mutate it.
func Script(src string, vars []string, bind func(e ecs.Entity, w *ecs.World) map[string]any) machine.Trigger {
	return &scriptTrigger{src: src, vars: vars, bind: bind}
}

func (t *scriptTrigger) Init(*ecs.World) {
	if t.compiled != nil {
		return
	}
	script := tengo.NewScript([]byte(t.src))
	script.SetImports(stdlib.GetModuleMap("math", "text", "fmt"))
	if err := script.Add("entity", int64(0)); err != nil {
		panic(fmt.Sprintf("machina: script trigger: %v", err))
	}
	for _, name := range t.vars {
		if err := script.Add(name, nil); err != nil {
			panic(fmt.Sprintf("machina: script trigger var %q: %v", name, err))
		}
	}
	compiled, err := script.Compile()
	if err != nil {
		panic(fmt.Sprintf("machina: script trigger compile: %v", err))
	}
	t.compiled = compiled
}

func (t *scriptTrigger) Check(e ecs.Entity, w *ecs.World) machine.Result {
	run := t.compiled.Clone()
	_ = run.Set("entity", int64(e))
	if t.bind != nil {
		for name, value := range t.bind(e, w) {
			_ = run.Set(name, value)
		}
	}
	if err := run.Run(); err != nil {
		w.Logger().Error("script trigger failed",
			"entity", e.String(), "err", err)
		return machine.Failure(err)
	}
	if !run.Get("ok").Bool() {
		return machine.Failure(run.Get("out").Value())
	}
	return machine.Success(run.Get("out").Value())
}

func (t *scriptTrigger) Name() string {
	return "Script"
}
