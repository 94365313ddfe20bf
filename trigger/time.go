package trigger

import (
	"fmt"
	"time"

	"github.com/milk9111/machina/ecs"
	"github.com/milk9111/machina/machine"
)

// timeIn carries per-activation memory: Init stamps the moment the owning
// transition set was (re)activated, which the runner does after every taken
// transition, so the clock restarts whenever the entity changes state.
type timeIn struct {
	duration time.Duration
	start    time.Time
	now      func() time.Time
}

// TimeIn fires once the entity has spent the given duration in its current
// state. The payload is the elapsed time.
func TimeIn(d time.Duration) machine.Trigger {
	return &timeIn{duration: d, now: time.Now}
}

func (t *timeIn) Init(*ecs.World) {
	t.start = t.now()
}

func (t *timeIn) Check(ecs.Entity, *ecs.World) machine.Result {
	elapsed := t.now().Sub(t.start)
	if elapsed < t.duration {
		return machine.Failure(t.duration - elapsed)
	}
	return machine.Success(elapsed)
}

func (t *timeIn) Name() string {
	return fmt.Sprintf("TimeIn(%s)", t.duration)
}

// ticksIn counts ticks instead of wall time, for fixed-step games.
type ticksIn struct {
	ticks int
	seen  int
}

// TicksIn fires once the entity has spent the given number of ticks in its
// current state. The payload is the tick count.
func TicksIn(ticks int) machine.Trigger {
	return &ticksIn{ticks: ticks}
}

func (t *ticksIn) Init(*ecs.World) {
	t.seen = 0
}

func (t *ticksIn) Check(ecs.Entity, *ecs.World) machine.Result {
	t.seen++
	if t.seen < t.ticks {
		return machine.Failure(t.ticks - t.seen)
	}
	return machine.Success(t.seen)
}

func (t *ticksIn) Name() string {
	return fmt.Sprintf("TicksIn(%d)", t.ticks)
}
