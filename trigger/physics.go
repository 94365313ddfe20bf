package trigger

import (
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/ecs/component"
	"github.com/milk9111/machina/machine"
)

// Physics triggers read a chipmunk body component. A machine using one on an
// entity without the body component is a caller bug, reported by panic rather
// than treated as a transient condition.

func mustBody(w *ecs.World, e ecs.Entity, h component.Handle[*cp.Body], trigger string) *cp.Body {
	body, ok := ecs.Get(w, e, h)
	if !ok || body == nil {
		panic(fmt.Sprintf("machina: %s trigger on entity %s without %s component", trigger, e, h.Name()))
	}
	return body
}

type groundedTrigger struct {
	body component.Handle[*cp.Body]
	up   cp.Vector
}

// Grounded fires while the entity's body touches something beneath it. The
// up vector orients the test; use {0, -1} for screen coordinates where +Y
// points down. The payload is the contact normal.
func Grounded(body component.Handle[*cp.Body], up cp.Vector) machine.Trigger {
	return groundedTrigger{body: body, up: up}
}

func (t groundedTrigger) Init(*ecs.World) {}

func (t groundedTrigger) Check(e ecs.Entity, w *ecs.World) machine.Result {
	body := mustBody(w, e, t.body, "Grounded")
	grounded := false
	var normal cp.Vector
	body.EachArbiter(func(arb *cp.Arbiter) {
		n := arb.Normal()
		if a, _ := arb.Bodies(); a != body {
			n = n.Neg()
		}
		if n.Dot(t.up) > 0.7 {
			grounded = true
			normal = n
		}
	})
	if !grounded {
		return machine.Failure(nil)
	}
	return machine.Success(normal)
}

func (t groundedTrigger) Name() string {
	return "Grounded"
}

type speedAboveTrigger struct {
	body      component.Handle[*cp.Body]
	threshold float64
}

// SpeedAbove fires while the body's speed exceeds the threshold. The payload
// is the current speed; the failure payload is too.
func SpeedAbove(body component.Handle[*cp.Body], threshold float64) machine.Trigger {
	return speedAboveTrigger{body: body, threshold: threshold}
}

func (t speedAboveTrigger) Init(*ecs.World) {}

func (t speedAboveTrigger) Check(e ecs.Entity, w *ecs.World) machine.Result {
	speed := mustBody(w, e, t.body, "SpeedAbove").Velocity().Length()
	if speed <= t.threshold {
		return machine.Failure(speed)
	}
	return machine.Success(speed)
}

func (t speedAboveTrigger) Name() string {
	return fmt.Sprintf("SpeedAbove(%.2f)", t.threshold)
}

type fallingTrigger struct {
	body component.Handle[*cp.Body]
	up   cp.Vector
}

// Falling fires while the body moves against the up vector. The payload is
// the falling speed.
func Falling(body component.Handle[*cp.Body], up cp.Vector) machine.Trigger {
	return fallingTrigger{body: body, up: up}
}

func (t fallingTrigger) Init(*ecs.World) {}

func (t fallingTrigger) Check(e ecs.Entity, w *ecs.World) machine.Result {
	v := mustBody(w, e, t.body, "Falling").Velocity()
	down := -v.Dot(t.up)
	if down <= 0 {
		return machine.Failure(down)
	}
	return machine.Success(down)
}

func (t fallingTrigger) Name() string {
	return "Falling"
}
