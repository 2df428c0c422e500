// Package resource holds the GPU resource handles the renderer hands out: textures,
// geometries and render targets. Each handle owns its backend objects, releases them at
// most once and reports back to the renderer through a release hook so live counts stay exact.
package resource

import (
	"fmt"
	"sync/atomic"
)

// Kind classifies a tracked GPU resource.
type Kind int

const (
	KindGeometry Kind = iota
	KindMaterial
	KindTexture
	KindRenderTarget
)

// Kinds lists every Kind in release order: geometry before materials before textures,
// render targets last.
var Kinds = []Kind{KindGeometry, KindMaterial, KindTexture, KindRenderTarget}

func (k Kind) String() string {
	switch k {
	case KindGeometry:
		return "geometry"
	case KindMaterial:
		return "material"
	case KindTexture:
		return "texture"
	case KindRenderTarget:
		return "render-target"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Releasable is anything with a GPU lifetime that can be freed exactly once.
type Releasable interface {
	// ID returns a process-unique identifier.
	ID() uint64

	// Label returns the debug label.
	Label() string

	// Release frees the GPU objects. Calling it again is a no-op.
	Release()

	// Released reports whether Release has been called.
	Released() bool
}

var idCounter atomic.Uint64

// NextID returns a fresh process-unique resource identifier.
func NextID() uint64 {
	return idCounter.Add(1)
}
