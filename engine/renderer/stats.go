package renderer

import "fmt"

// Stats is a snapshot of renderer counters. Per-frame fields describe the last completed frame;
// live fields count resources not yet released; created fields are cumulative.
type Stats struct {
	Frames uint64

	// last completed frame
	DrawCalls       int
	Triangles       int
	Passes          int
	OffscreenPasses int

	// live resources
	Textures      int
	Geometries    int
	Materials     int
	RenderTargets int
	TextureBytes  uint64

	// cumulative
	TexturesCreated   int
	GeometriesCreated int
	BindGroupsCreated int
}

// String renders the counters used as context in GPU error logs and profiler lines.
func (s Stats) String() string {
	return fmt.Sprintf("draws=%d tris=%d passes=%d textures=%d geometries=%d materials=%d targets=%d vram=%.1fMB",
		s.DrawCalls, s.Triangles, s.Passes, s.Textures, s.Geometries, s.Materials, s.RenderTargets,
		float64(s.TextureBytes)/1024/1024)
}
