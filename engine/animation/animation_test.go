package animation

import (
	"math"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-4
}

func TestEasingEndpoints(t *testing.T) {
	for name, e := range easingNames {
		if !near(e(0), 0) || !near(e(1), 1) {
			t.Errorf("%s: e(0)=%v e(1)=%v, want 0 and 1", name, e(0), e(1))
		}
	}
}

func TestEasingByName(t *testing.T) {
	if _, ok := EasingByName(" Cubic-Out "); !ok {
		t.Error("expected cubic-out to resolve")
	}
	e, ok := EasingByName("bogus")
	if ok {
		t.Error("expected unknown easing to report !ok")
	}
	if e(0.3) != 0.3 {
		t.Error("unknown easing should fall back to Linear")
	}
}

func TestTweenPushesEveryStep(t *testing.T) {
	var pushes [][]float32
	tw := NewTween([]float32{0, 10}, []float32{1, 20}, 1, 0, Linear, func(v []float32) {
		pushes = append(pushes, v)
	})

	for i := 0; i < 4; i++ {
		if tw.Advance(0.25) != (i == 3) {
			t.Fatalf("step %d: unexpected finished state", i)
		}
	}
	if len(pushes) != 4 {
		t.Fatalf("got %d pushes, want 4", len(pushes))
	}
	if !near(pushes[1][0], 0.5) || !near(pushes[1][1], 15) {
		t.Errorf("midpoint push = %v, want [0.5 15]", pushes[1])
	}
	if pushes[3][0] != 1 || pushes[3][1] != 20 {
		t.Errorf("final push = %v, want exact target", pushes[3])
	}
	if !tw.Done() {
		t.Error("tween should report Done")
	}
}

func TestTweenDelay(t *testing.T) {
	pushed := 0
	tw := NewTween([]float32{0}, []float32{1}, 0.5, 0.5, Linear, func([]float32) { pushed++ })
	tw.Advance(0.25)
	if pushed != 0 {
		t.Fatal("no value should be pushed during the delay")
	}
	tw.Advance(0.5)
	if pushed != 1 {
		t.Fatalf("pushed = %d, want 1", pushed)
	}
	if !near(tw.Values()[0], 0.5) {
		t.Errorf("value after delay = %v, want 0.5", tw.Values()[0])
	}
}

func TestTweenZeroDurationJumps(t *testing.T) {
	tw := NewTween([]float32{0}, []float32{3}, 0, 0, nil, nil)
	if !tw.Advance(0) {
		t.Fatal("zero-duration tween should finish on the first advance")
	}
	if tw.Values()[0] != 3 {
		t.Errorf("value = %v, want 3", tw.Values()[0])
	}
}

func TestTweenCancelStopsPushes(t *testing.T) {
	pushed := 0
	completed := false
	tw := NewTween([]float32{0}, []float32{1}, 1, 0, Linear, func([]float32) { pushed++ }).
		OnComplete(func() { completed = true })
	tw.Advance(0.1)
	tw.Cancel()
	if !tw.Advance(1) {
		t.Error("cancelled tween should report finished")
	}
	if pushed != 1 {
		t.Errorf("pushed = %d, want 1", pushed)
	}
	if completed || !tw.Cancelled() {
		t.Error("cancelled tween must not complete")
	}
}

func TestTimelineLastWriteWins(t *testing.T) {
	tl := NewTimeline()
	var value float32
	first := tl.Play("tile-0", NewTween([]float32{0}, []float32{1}, 1, 0, Linear, func(v []float32) { value = v[0] }))
	tl.Update(0.5)
	second := tl.Play("tile-0", NewTween([]float32{value}, []float32{0}, 1, 0, Linear, func(v []float32) { value = v[0] }))

	if !first.Cancelled() {
		t.Error("the first tween should be cancelled by the second Play")
	}
	if tl.Len() != 1 {
		t.Fatalf("Len = %d, want 1", tl.Len())
	}
	tl.Update(1)
	if value != 0 || !second.Done() {
		t.Errorf("value = %v, want 0 from the second tween", value)
	}
	if tl.Len() != 0 {
		t.Errorf("finished tweens should be removed, Len = %d", tl.Len())
	}
}

func TestTimelineCallbackCanReplay(t *testing.T) {
	tl := NewTimeline()
	tw := NewTween([]float32{0}, []float32{1}, 0, 0, Linear, nil)
	tw.OnComplete(func() {
		tl.Play("k", NewTween([]float32{1}, []float32{0}, 1, 0, Linear, nil))
	})
	tl.Play("k", tw)
	tl.Update(0.1)
	if !tl.Running("k") {
		t.Error("tween started from a completion callback should survive the update")
	}
}

func TestTimelineClear(t *testing.T) {
	tl := NewTimeline()
	a := tl.Play("a", NewTween([]float32{0}, []float32{1}, 1, 0, Linear, nil))
	tl.Play("b", NewTween([]float32{0}, []float32{1}, 1, 0, Linear, nil))
	tl.Clear()
	if tl.Len() != 0 || !a.Cancelled() {
		t.Error("Clear should cancel and drop every tween")
	}
	tl.Cancel("missing")
}
