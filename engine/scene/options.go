package scene

import (
	"github.com/Carmen-Shannon/oxy-tiles/engine/animation"
	"github.com/Carmen-Shannon/oxy-tiles/engine/postprocess"
)

// Options is the flat configuration of a tile wall. Every field has a default in DefaultOptions;
// the demo overlays a YAML file on top of it.
type Options struct {
	// tiles per group
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`

	TileWidth  float32 `yaml:"tile_width"`
	TileHeight float32 `yaml:"tile_height"`
	Gap        float32 `yaml:"gap"`

	CameraDistance float32 `yaml:"camera_distance"`
	FovDegrees     float32 `yaml:"fov_degrees"`

	// TextureSize is the canvas edge of a card texture in pixels.
	TextureSize int  `yaml:"texture_size"`
	Mipmaps     bool `yaml:"mipmaps"`
	Workers     int  `yaml:"workers"`

	PostProcessing   bool    `yaml:"post_processing"`
	Distortion       float32 `yaml:"distortion"`
	VignetteOffset   float32 `yaml:"vignette_offset"`
	VignetteDarkness float32 `yaml:"vignette_darkness"`

	BackgroundOpacity float32 `yaml:"background_opacity"`
	HoverOpacity      float32 `yaml:"hover_opacity"`
	BlurRadius        float32 `yaml:"blur_radius"`
	HoverFade         float32 `yaml:"hover_fade"`
	HoverEasing       string  `yaml:"hover_easing"`

	DragThreshold float32 `yaml:"drag_threshold"`
	Resistance    float32 `yaml:"resistance"`
	MinVelocity   float32 `yaml:"min_velocity"`
	MaxVelocity   float32 `yaml:"max_velocity"`
	WheelSpeed    float32 `yaml:"wheel_speed"`

	// BackgroundColor is the clear color, RGBA in [0, 1].
	BackgroundColor [4]float64 `yaml:"background_color"`
}

// DefaultOptions returns the resting configuration of the wall.
func DefaultOptions() Options {
	post := postprocess.DefaultParams()
	return Options{
		Columns:           3,
		Rows:              3,
		TileWidth:         1,
		TileHeight:        1.25,
		Gap:               0.12,
		CameraDistance:    3,
		FovDegrees:        45,
		TextureSize:       512,
		Mipmaps:           true,
		Workers:           4,
		PostProcessing:    true,
		Distortion:        post.Distortion,
		VignetteOffset:    post.VignetteOffset,
		VignetteDarkness:  post.VignetteDarkness,
		BackgroundOpacity: 0.02,
		HoverOpacity:      1,
		BlurRadius:        4,
		HoverFade:         0.3,
		HoverEasing:       "quad-out",
		DragThreshold:     5,
		Resistance:        0.92,
		MinVelocity:       0.05,
		MaxVelocity:       60,
		WheelSpeed:        0.02,
		BackgroundColor:   [4]float64{0.02, 0.02, 0.02, 1},
	}
}

// PostParams returns the post-process parameters held by o.
func (o Options) PostParams() postprocess.Params {
	return postprocess.Params{
		Distortion:       o.Distortion,
		VignetteOffset:   o.VignetteOffset,
		VignetteDarkness: o.VignetteDarkness,
	}
}

func (o Options) hoverEasing() animation.Easing {
	e, _ := animation.EasingByName(o.HoverEasing)
	return e
}
