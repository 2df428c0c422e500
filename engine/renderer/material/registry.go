package material

import (
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/shader"
)

// Registry maps each Role to the single pipeline that draws it. Built once per renderer; every
// per-tile material only contributes uniforms and a texture.
type Registry interface {
	// Pipeline returns the pipeline for a role, or nil for an unknown role.
	Pipeline(role Role) pipeline.Pipeline

	// Pipelines returns every pipeline in role order.
	Pipelines() []pipeline.Pipeline
}

type registry struct {
	pipelines map[Role]pipeline.Pipeline
}

var _ Registry = &registry{}

// NewRegistry builds the foreground, background and post-process pipelines from the built-in shaders.
// Tile pipelines blend with source-over alpha; the post-process pass overwrites the target.
//
// Returns:
//   - Registry: the registry
func NewRegistry() Registry {
	tileVertex := shader.TileVertexShader()
	return &registry{
		pipelines: map[Role]pipeline.Pipeline{
			RoleForeground: pipeline.NewPipeline(RoleForeground.PipelineKey(),
				pipeline.WithVertexShader(tileVertex),
				pipeline.WithFragmentShader(shader.ForegroundFragmentShader()),
				pipeline.WithBlendEnabled(true),
			),
			RoleBackground: pipeline.NewPipeline(RoleBackground.PipelineKey(),
				pipeline.WithVertexShader(tileVertex),
				pipeline.WithFragmentShader(shader.BackgroundFragmentShader()),
				pipeline.WithBlendEnabled(true),
			),
			RolePostProcess: pipeline.NewPipeline(RolePostProcess.PipelineKey(),
				pipeline.WithVertexShader(shader.FullscreenVertexShader()),
				pipeline.WithFragmentShader(shader.PostProcessFragmentShader()),
			),
		},
	}
}

func (r *registry) Pipeline(role Role) pipeline.Pipeline {
	return r.pipelines[role]
}

func (r *registry) Pipelines() []pipeline.Pipeline {
	out := make([]pipeline.Pipeline, 0, len(Roles))
	for _, role := range Roles {
		if p, ok := r.pipelines[role]; ok {
			out = append(out, p)
		}
	}
	return out
}
