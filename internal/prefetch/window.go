package prefetch

import "math"

// Window is the prefetch range around the visible ordinals, expressed in
// item counts. Ahead extends in the direction of travel.
type Window struct {
	Behind int
	Ahead  int
}

// WindowPolicy computes the prefetch window from scroll velocity. The
// exact widening shape is a tunable, not a contract; implementations only
// promise that faster scrolling never shrinks the ahead window.
type WindowPolicy interface {
	Window(velocity float64) Window
}

// AdaptiveWindow widens the ahead window linearly with velocity above a
// threshold, capped at three times the base, and collapses the behind
// window to a quarter while moving fast. Content behind a fast scroll is
// unlikely to be revisited.
type AdaptiveWindow struct {
	BaseAhead         int
	BaseBehind        int
	VelocityThreshold float64
}

// Window implements WindowPolicy.
func (w AdaptiveWindow) Window(velocity float64) Window {
	v := math.Abs(velocity)
	if w.VelocityThreshold <= 0 || v <= w.VelocityThreshold {
		return Window{Behind: w.BaseBehind, Ahead: w.BaseAhead}
	}

	scale := v / w.VelocityThreshold
	if scale > 3 {
		scale = 3
	}
	behind := w.BaseBehind / 4
	if behind < 1 {
		behind = 1
	}
	return Window{
		Behind: behind,
		Ahead:  int(math.Round(float64(w.BaseAhead) * scale)),
	}
}

// FixedWindow ignores velocity; useful for tests and stills browsing.
type FixedWindow struct {
	Behind int
	Ahead  int
}

// Window implements WindowPolicy.
func (w FixedWindow) Window(velocity float64) Window {
	return Window{Behind: w.Behind, Ahead: w.Ahead}
}
