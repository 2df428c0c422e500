package disposal

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
)

type fakeResource struct {
	id       uint64
	releases int
}

func (f *fakeResource) ID() uint64     { return f.id }
func (f *fakeResource) Label() string  { return "fake" }
func (f *fakeResource) Released() bool { return f.releases > 0 }
func (f *fakeResource) Release()       { f.releases++ }

type fakeCache struct {
	entries map[string]int
}

func (c *fakeCache) Clear()  { c.entries = map[string]int{} }
func (c *fakeCache) Len() int { return len(c.entries) }

func populated(t *testing.T) (Manager, []*fakeResource, *fakeCache, *int, *bool, *bool) {
	t.Helper()
	m := NewManager()
	var res []*fakeResource
	for i, k := range resource.Kinds {
		for j := 0; j < 3; j++ {
			r := &fakeResource{id: uint64(i*10 + j)}
			res = append(res, r)
			m.Track(k, r)
		}
	}
	cache := &fakeCache{entries: map[string]int{"a": 1, "b": 2}}
	m.AddClearable("texture cache", cache)

	detached := 0
	m.AddDetacher(func() { detached++ })
	m.AddDetacher(func() { detached++ })

	cancelled, closed := false, false
	m.SetCancel(func() { cancelled = true })
	m.SetSurfaceCloser(func() { closed = true })
	return m, res, cache, &detached, &cancelled, &closed
}

func TestDisposeReleasesEverything(t *testing.T) {
	m, res, cache, detached, cancelled, closed := populated(t)
	if m.ValidateDisposal().OK() {
		t.Fatal("a live manager must not validate")
	}

	m.Dispose()
	for _, r := range res {
		if r.releases != 1 {
			t.Fatalf("resource %d released %d times", r.id, r.releases)
		}
	}
	if cache.Len() != 0 || *detached != 2 || !*cancelled || !*closed {
		t.Errorf("cache=%d detached=%d cancelled=%v closed=%v", cache.Len(), *detached, *cancelled, *closed)
	}
	if report := m.ValidateDisposal(); !report.OK() {
		t.Errorf("report = %s", report)
	}
}

func TestDisposeIsIdempotent(t *testing.T) {
	m, res, _, detached, _, _ := populated(t)
	m.Dispose()
	m.Dispose()
	for _, r := range res {
		if r.releases != 1 {
			t.Fatalf("resource %d released %d times", r.id, r.releases)
		}
	}
	if *detached != 2 {
		t.Errorf("listeners detached %d times", *detached)
	}
	if !m.ValidateDisposal().OK() || !m.Disposed() {
		t.Error("second Dispose must keep the manager valid")
	}
}

func TestDisposeEmptyManager(t *testing.T) {
	m := NewManager()
	m.Dispose()
	if r := m.ValidateDisposal(); !r.OK() {
		t.Errorf("report = %s", r)
	}
}

func TestTrackAfterDisposeReleases(t *testing.T) {
	m := NewManager()
	m.Dispose()

	late := &fakeResource{id: 99}
	m.Track(resource.KindTexture, late)
	if late.releases != 1 {
		t.Error("a resource tracked after disposal must be released at once")
	}
	detached := false
	m.AddDetacher(func() { detached = true })
	if !detached {
		t.Error("a listener attached after disposal must be detached at once")
	}
	if !m.ValidateDisposal().OK() {
		t.Error("late arrivals must not break validation")
	}
}

func TestAlreadyReleasedResourceIsHarmless(t *testing.T) {
	m := NewManager()
	r := &fakeResource{id: 1}
	m.Track(resource.KindGeometry, r)
	r.Release()
	if m.Count(resource.KindGeometry) != 0 {
		t.Error("released resources should not count as live")
	}
	m.Dispose()
	if !m.ValidateDisposal().OK() {
		t.Error("validation failed")
	}
}

func TestPartialCleanupKeepsRenderTargets(t *testing.T) {
	m, res, cache, detached, cancelled, closed := populated(t)
	m.PartialCleanup()

	for _, k := range []resource.Kind{resource.KindGeometry, resource.KindMaterial, resource.KindTexture} {
		if n := m.Count(k); n != 0 {
			t.Errorf("%s left: %d", k, n)
		}
	}
	if m.Count(resource.KindRenderTarget) != 3 {
		t.Errorf("render targets = %d, want 3", m.Count(resource.KindRenderTarget))
	}
	if cache.Len() != 0 {
		t.Error("caches must be cleared")
	}
	if *detached != 0 || *cancelled || *closed || m.Disposed() {
		t.Error("partial cleanup must keep listeners, the loop and the surface")
	}

	report := m.ValidateDisposal()
	if report.OK() || report.Leftovers[resource.KindRenderTarget] != 3 {
		t.Errorf("report = %+v", report)
	}

	m.Dispose()
	for _, r := range res {
		if r.releases != 1 {
			t.Fatalf("resource %d released %d times", r.id, r.releases)
		}
	}
}

func TestSetCancelAfterDisposeCancelsAtOnce(t *testing.T) {
	m := NewManager()
	m.Dispose()

	cancelled := 0
	m.SetCancel(func() { cancelled++ })
	if cancelled != 1 {
		t.Fatalf("cancel called %d times, want 1", cancelled)
	}
	if r := m.ValidateDisposal(); r.LoopRunning || !r.OK() {
		t.Errorf("report = %s", r)
	}
	m.SetCancel(nil)
}

func TestReportString(t *testing.T) {
	r := Report{Disposed: true, Leftovers: map[resource.Kind]int{resource.KindTexture: 2}, Clearables: []string{"tiles"}}
	if got := r.String(); got != "disposal leaked: 2 texture; uncleared tiles" {
		t.Errorf("String = %q", got)
	}
	if (Report{Disposed: true}).String() != "disposal ok" {
		t.Error("clean report should read ok")
	}
}

func TestClearableFuncs(t *testing.T) {
	n := 3
	c := ClearableFuncs{ClearFunc: func() { n = 0 }, LenFunc: func() int { return n }}
	if c.Len() != 3 {
		t.Fatal("Len should delegate")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear should delegate")
	}
	if (ClearableFuncs{}).Len() != 0 {
		t.Error("nil funcs should be empty")
	}
}
