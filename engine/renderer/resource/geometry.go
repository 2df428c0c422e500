package resource

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/bind_group_provider"
)

type geometry struct {
	mu *sync.Mutex

	id          uint64
	label       string
	vertexCount int
	byteSize    uint64
	provider    bind_group_provider.BindGroupProvider

	released  bool
	onRelease func()
}

// Geometry is an indexed mesh: a vertex buffer and a uint32 index buffer held on a provider.
type Geometry interface {
	Releasable

	// VertexCount returns the number of vertices uploaded.
	VertexCount() int

	// IndexCount returns the number of indices drawn.
	IndexCount() int

	// Triangles returns IndexCount / 3.
	Triangles() int

	// ByteSize returns the uploaded vertex plus index bytes.
	ByteSize() uint64

	// Provider returns the provider holding the vertex and index buffers.
	Provider() bind_group_provider.BindGroupProvider
}

var _ Geometry = &geometry{}

// NewGeometry wraps a mesh provider into a Geometry handle.
//
// Parameters:
//   - label: debug label
//   - vertexCount: number of vertices uploaded
//   - byteSize: vertex plus index bytes
//   - provider: the provider holding the buffers and index count
//   - onRelease: called once after the buffers are released (may be nil)
//
// Returns:
//   - Geometry: the handle
func NewGeometry(label string, vertexCount int, byteSize uint64, provider bind_group_provider.BindGroupProvider, onRelease func()) Geometry {
	return &geometry{
		mu:          &sync.Mutex{},
		id:          NextID(),
		label:       label,
		vertexCount: vertexCount,
		byteSize:    byteSize,
		provider:    provider,
		onRelease:   onRelease,
	}
}

func (g *geometry) ID() uint64       { return g.id }
func (g *geometry) Label() string    { return g.label }
func (g *geometry) VertexCount() int { return g.vertexCount }
func (g *geometry) ByteSize() uint64 { return g.byteSize }

func (g *geometry) IndexCount() int {
	return g.provider.IndexCount()
}

func (g *geometry) Triangles() int {
	return g.provider.IndexCount() / 3
}

func (g *geometry) Provider() bind_group_provider.BindGroupProvider {
	return g.provider
}

func (g *geometry) Released() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.released
}

func (g *geometry) Release() {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	g.provider.Release()
	hook := g.onRelease
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
}
