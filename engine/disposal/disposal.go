// Package disposal tears a tile wall down deterministically: it cancels the frame loop, detaches
// input listeners, releases every tracked GPU resource, clears caches and closes the surface.
package disposal

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
)

// Report is the outcome of ValidateDisposal.
type Report struct {
	// Disposed reports whether Dispose has run.
	Disposed bool
	// Leftovers counts tracked resources per kind that are still alive.
	Leftovers map[resource.Kind]int
	// Listeners is the number of input listeners still attached.
	Listeners int
	// Clearables lists the caches that still hold entries.
	Clearables []string
	// LoopRunning reports whether the frame loop was never cancelled.
	LoopRunning bool
}

// OK reports whether nothing is left behind.
func (r Report) OK() bool {
	if !r.Disposed || r.Listeners != 0 || len(r.Clearables) != 0 || r.LoopRunning {
		return false
	}
	for _, n := range r.Leftovers {
		if n != 0 {
			return false
		}
	}
	return true
}

func (r Report) String() string {
	if r.OK() {
		return "disposal ok"
	}
	var parts []string
	if !r.Disposed {
		parts = append(parts, "not disposed")
	}
	for _, k := range resource.Kinds {
		if n := r.Leftovers[k]; n != 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, k))
		}
	}
	if r.Listeners != 0 {
		parts = append(parts, fmt.Sprintf("%d listeners", r.Listeners))
	}
	if len(r.Clearables) != 0 {
		parts = append(parts, "uncleared "+strings.Join(r.Clearables, ", "))
	}
	if r.LoopRunning {
		parts = append(parts, "frame loop running")
	}
	return "disposal leaked: " + strings.Join(parts, "; ")
}

// Clearable is a cache or map that can be emptied.
type Clearable interface {
	// Clear empties the collection.
	Clear()

	// Len returns the number of held entries.
	Len() int
}

// ClearableFuncs adapts a pair of functions into a Clearable.
type ClearableFuncs struct {
	ClearFunc func()
	LenFunc   func() int
}

func (c ClearableFuncs) Clear() {
	if c.ClearFunc != nil {
		c.ClearFunc()
	}
}

func (c ClearableFuncs) Len() int {
	if c.LenFunc == nil {
		return 0
	}
	return c.LenFunc()
}

type clearable struct {
	name string
	c    Clearable
}

type manager struct {
	mu *sync.Mutex

	resources  map[resource.Kind][]resource.Releasable
	detachers  []func()
	clearables []clearable
	cancel     func()
	surface    func()

	disposed bool
}

// Manager tracks everything a tile wall allocates and releases it in one idempotent call.
type Manager interface {
	// Track registers a GPU resource. Tracking after Dispose releases the resource immediately,
	// so late results never leak.
	//
	// Parameters:
	//   - kind: the resource kind
	//   - r: the resource
	Track(kind resource.Kind, r resource.Releasable)

	// AddDetacher registers a function that removes an input listener.
	AddDetacher(detach func())

	// AddClearable registers a named cache or map cleared on disposal.
	AddClearable(name string, c Clearable)

	// SetCancel registers the function that stops the frame loop. It replaces a previous one.
	// After Dispose the function is called at once instead.
	SetCancel(cancel func())

	// SetSurfaceCloser registers the function that destroys the rendering surface.
	SetSurfaceCloser(closer func())

	// Count returns the number of live tracked resources of kind.
	Count(kind resource.Kind) int

	// Dispose cancels the frame loop, detaches listeners, releases every tracked resource
	// (geometry, materials, textures, render targets), clears every cache and closes the
	// surface. Calling it again is a no-op.
	Dispose()

	// Disposed reports whether Dispose has run.
	Disposed() bool

	// PartialCleanup releases geometry, materials and textures and clears the caches. Render
	// targets, listeners, the frame loop and the surface are kept for a fast reinitialization.
	PartialCleanup()

	// ValidateDisposal checks that every tracked collection is empty.
	ValidateDisposal() Report
}

var _ Manager = &manager{}

// NewManager creates an empty Manager.
//
// Returns:
//   - Manager: the manager
func NewManager() Manager {
	return &manager{
		mu:        &sync.Mutex{},
		resources: make(map[resource.Kind][]resource.Releasable),
	}
}

func (m *manager) Track(kind resource.Kind, r resource.Releasable) {
	if r == nil {
		return
	}
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		r.Release()
		return
	}
	m.resources[kind] = append(m.resources[kind], r)
	m.mu.Unlock()
}

func (m *manager) AddDetacher(detach func()) {
	if detach == nil {
		return
	}
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		detach()
		return
	}
	m.detachers = append(m.detachers, detach)
	m.mu.Unlock()
}

func (m *manager) AddClearable(name string, c Clearable) {
	if c == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearables = append(m.clearables, clearable{name: name, c: c})
}

func (m *manager) SetCancel(cancel func()) {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		return
	}
	m.cancel = cancel
	m.mu.Unlock()
}

func (m *manager) SetSurfaceCloser(closer func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surface = closer
}

func (m *manager) Count(kind resource.Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.resources[kind] {
		if !r.Released() {
			n++
		}
	}
	return n
}

func (m *manager) Disposed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.disposed
}

// releaseKinds releases and forgets every resource of the given kinds in Kinds order.
func (m *manager) releaseKinds(keep func(resource.Kind) bool) int {
	m.mu.Lock()
	var batch []resource.Releasable
	for _, k := range resource.Kinds {
		if keep(k) {
			continue
		}
		batch = append(batch, m.resources[k]...)
		delete(m.resources, k)
	}
	m.mu.Unlock()

	for _, r := range batch {
		r.Release()
	}
	return len(batch)
}

func (m *manager) clearAll() {
	m.mu.Lock()
	cs := append([]clearable(nil), m.clearables...)
	m.mu.Unlock()
	for _, c := range cs {
		c.c.Clear()
	}
}

func (m *manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	cancel := m.cancel
	m.cancel = nil
	detachers := m.detachers
	m.detachers = nil
	surface := m.surface
	m.surface = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, detach := range detachers {
		detach()
	}
	n := m.releaseKinds(func(resource.Kind) bool { return false })
	m.clearAll()
	if surface != nil {
		surface()
	}
	log.Printf("[Disposal] released %d resources, detached %d listeners", n, len(detachers))
}

func (m *manager) PartialCleanup() {
	n := m.releaseKinds(func(k resource.Kind) bool { return k == resource.KindRenderTarget })
	m.clearAll()
	log.Printf("[Disposal] partial cleanup released %d resources", n)
}

func (m *manager) ValidateDisposal() Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := Report{
		Disposed:    m.disposed,
		Leftovers:   make(map[resource.Kind]int),
		Listeners:   len(m.detachers),
		LoopRunning: m.cancel != nil,
	}
	for _, k := range resource.Kinds {
		for _, res := range m.resources[k] {
			if !res.Released() {
				r.Leftovers[k]++
			}
		}
	}
	for _, c := range m.clearables {
		if c.c.Len() != 0 {
			r.Clearables = append(r.Clearables, c.name)
		}
	}
	return r
}
