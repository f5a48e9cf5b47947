package encoder

import "time"

// accelStep is one rung of the acceleration ladder: ticks arriving faster
// than Within get their magnitude scaled by Multiplier.
type accelStep struct {
	Within     time.Duration
	Multiplier int
}

// accelTable is ordered fastest-first; the first matching rung wins.
var accelTable = []accelStep{
	{100 * time.Millisecond, 10},
	{120 * time.Millisecond, 5},
	{150 * time.Millisecond, 4},
	{200 * time.Millisecond, 3},
	{300 * time.Millisecond, 2},
}

// Accelerator scales rotation ticks by rotation speed. It belongs to the
// tick consumer, not the decoder: the decoder reports raw detents and the
// consumer decides how far one detent moves the volume.
//
// Not internally locked; owned by the single control goroutine.
type Accelerator struct {
	lastAt  time.Time
	lastDir int
}

// Scale returns the signed step count for a tick of the given direction at
// the given time. Two consecutive ticks in the same direction are
// accelerated by the first ladder rung their spacing fits; a direction
// change or a slow tick passes through with magnitude 1.
func (a *Accelerator) Scale(at time.Time, direction int) int {
	steps := direction
	if a.lastDir*direction > 0 {
		elapsed := at.Sub(a.lastAt)
		for _, s := range accelTable {
			if elapsed < s.Within {
				steps = direction * s.Multiplier
				break
			}
		}
	}
	a.lastAt = at
	a.lastDir = direction
	return steps
}
