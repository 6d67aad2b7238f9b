package prefetch

import "testing"

func TestAdaptiveWindowAtRest(t *testing.T) {
	w := AdaptiveWindow{BaseAhead: 12, BaseBehind: 6, VelocityThreshold: 4}

	for _, v := range []float64{0, 1, 4, -4} {
		win := w.Window(v)
		if win.Ahead != 12 || win.Behind != 6 {
			t.Errorf("velocity %v: got %+v, want base window", v, win)
		}
	}
}

func TestAdaptiveWindowWidensWithVelocity(t *testing.T) {
	w := AdaptiveWindow{BaseAhead: 12, BaseBehind: 6, VelocityThreshold: 4}

	fast := w.Window(8) // 2x threshold
	if fast.Ahead != 24 {
		t.Errorf("expected ahead 24 at 2x threshold, got %d", fast.Ahead)
	}
	if fast.Behind != 1 {
		t.Errorf("expected behind collapsed to 1, got %d", fast.Behind)
	}

	// Direction does not matter to the policy; orientation is the
	// scheduler's job.
	if up := w.Window(-8); up != fast {
		t.Errorf("negative velocity should widen identically: %+v vs %+v", up, fast)
	}
}

func TestAdaptiveWindowCaps(t *testing.T) {
	w := AdaptiveWindow{BaseAhead: 10, BaseBehind: 8, VelocityThreshold: 1}

	extreme := w.Window(1000)
	if extreme.Ahead != 30 {
		t.Errorf("expected ahead capped at 3x base, got %d", extreme.Ahead)
	}
	if extreme.Behind != 2 {
		t.Errorf("expected behind 2, got %d", extreme.Behind)
	}
}

func TestFixedWindowIgnoresVelocity(t *testing.T) {
	w := FixedWindow{Behind: 3, Ahead: 5}
	if win := w.Window(100); win.Behind != 3 || win.Ahead != 5 {
		t.Errorf("got %+v", win)
	}
}
