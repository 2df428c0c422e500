// Command tilewall opens a window showing the infinite tile wall for a set of cards.
//
// Usage:
//
//	tilewall [-config wall.yaml] [-cards cards.yaml | -sqlite cards.db] [-no-post] [-profile]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine"
	"github.com/Carmen-Shannon/oxy-tiles/engine/animation"
	"github.com/Carmen-Shannon/oxy-tiles/engine/camera"
	"github.com/Carmen-Shannon/oxy-tiles/engine/postprocess"
	"github.com/Carmen-Shannon/oxy-tiles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer"
	"github.com/Carmen-Shannon/oxy-tiles/engine/scene"
	"github.com/Carmen-Shannon/oxy-tiles/engine/window"
	"github.com/Carmen-Shannon/oxy-tiles/internal/cardsource"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/gg"
	"gopkg.in/yaml.v3"
)

func main() {
	configPath := flag.String("config", "", "YAML file overriding the default wall options")
	cardsPath := flag.String("cards", "", "YAML file with the cards to show")
	sqlitePath := flag.String("sqlite", "", "SQLite database with a cards table")
	seed := flag.Bool("seed", false, "write the sample cards into -sqlite before starting")
	width := flag.Int("width", 1280, "window width")
	height := flag.Int("height", 720, "window height")
	noPost := flag.Bool("no-post", false, "render straight to the screen without post-processing")
	verbose := flag.Bool("verbose", false, "log raster diagnostics")
	profile := flag.Bool("profile", false, "log frame rate and renderer statistics every second")
	flag.Parse()

	if err := run(options{
		configPath: *configPath,
		cardsPath:  *cardsPath,
		sqlitePath: *sqlitePath,
		seed:       *seed,
		width:      *width,
		height:     *height,
		noPost:     *noPost,
		verbose:    *verbose,
		profile:    *profile,
	}); err != nil {
		log.Fatalf("tilewall: %v", err)
	}
}

type options struct {
	configPath string
	cardsPath  string
	sqlitePath string
	seed       bool
	width      int
	height     int
	noPost     bool
	verbose    bool
	profile    bool
}

func run(o options) error {
	ctx := context.Background()
	if o.verbose {
		gg.SetLogger(slog.Default())
	}

	wallOpts, err := loadOptions(o.configPath)
	if err != nil {
		return err
	}
	if o.noPost {
		wallOpts.PostProcessing = false
	}

	cards, err := loadCards(ctx, o)
	if err != nil {
		return err
	}
	log.Printf("[Wall] %d cards", len(cards))

	// ── Window ──────────────────────────────────────────────────────────
	win, err := window.NewWindow(
		window.WithTitle("oxy-tiles"),
		window.WithSize(o.width, o.height),
	)
	if err != nil {
		return err
	}

	// ── Renderer ────────────────────────────────────────────────────────
	reporter := profiler.NewErrorReporter(0, nil)
	r, err := renderer.NewRenderer(
		renderer.BackendTypeWGPU,
		win,
		renderer.WithClearColor(wallOpts.BackgroundColor),
		renderer.WithErrorReporter(reporter),
	)
	if err != nil {
		_ = win.Close()
		return err
	}

	// ── Camera + Scene ──────────────────────────────────────────────────
	cam := camera.NewCamera(
		camera.WithAspect(float32(win.Width()) / float32(win.Height())),
	)
	wall := scene.NewScene(r, cam, cards,
		scene.WithOptions(wallOpts),
		scene.WithInputSource(win),
		scene.WithErrorReporter(reporter),
		scene.WithSurfaceCloser(func() {
			if err := win.Close(); err != nil {
				log.Printf("[Wall] close window: %v", err)
			}
		}),
		scene.WithActivation(func(card common.CardRecord) {
			log.Printf("navigate: /work/%s", card.Slug())
		}),
	)
	if err := wall.Initialize(ctx); err != nil {
		wall.Dispose()
		return err
	}

	win.SetResizeCallback(func(w, h int) {
		if err := wall.Resize(w, h); err != nil {
			log.Printf("[Wall] resize: %v", err)
		}
	})
	win.SetKeyDownCallback(keyBindings(ctx, wall))

	// ── Engine ──────────────────────────────────────────────────────────
	eng := engine.NewEngine(
		engine.WithWindow(win),
		engine.WithTickRate(60),
		engine.WithProfiling(o.profile),
		engine.WithErrorReporter(reporter),
		engine.WithStatsSource(func() string { return r.Stats().String() }),
	)
	wall.Start(eng)
	eng.Run()

	wall.Dispose()
	report := wall.ValidateDisposal()
	log.Printf("[Wall] disposal: %s", report)
	if !report.OK() {
		return errors.New("resources left after disposal")
	}
	return nil
}

// keyBindings returns the key handler of the demo.
func keyBindings(ctx context.Context, wall scene.Scene) func(uint32) {
	emphasis := false
	return func(key uint32) {
		w, h := wall.Grid().Spacing()
		var err error
		switch key {
		case common.KeyLeft:
			err = wall.ScrollBy(-w, 0)
		case common.KeyRight:
			err = wall.ScrollBy(w, 0)
		case common.KeyUp:
			err = wall.ScrollBy(0, h)
		case common.KeyDown:
			err = wall.ScrollBy(0, -h)
		case common.KeySpace:
			err = wall.SetVelocity(mgl32.Vec2{})
		case common.KeyP:
			post := wall.PostProcess()
			if post == nil {
				return
			}
			target := postprocess.DefaultParams()
			if !emphasis {
				target.Distortion *= 3
				target.VignetteOffset = 0.2
			}
			emphasis = !emphasis
			post.Animate(target, 0.6, 0, animation.EaseInOutCubic)
		case common.KeyR:
			err = wall.Reinitialize(ctx)
		}
		if err != nil {
			log.Printf("[Wall] key %d: %v", key, err)
		}
	}
}

// loadOptions overlays the YAML file at path, if any, on the default options.
func loadOptions(path string) (scene.Options, error) {
	opts := scene.DefaultOptions()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("decode config %s: %w", path, err)
	}
	return opts, nil
}

// loadCards picks the card source from the flags, falling back to the built-in sample.
func loadCards(ctx context.Context, o options) ([]common.CardRecord, error) {
	switch {
	case o.sqlitePath != "":
		if o.seed {
			if err := cardsource.Seed(ctx, o.sqlitePath, cardsource.Sample()); err != nil {
				return nil, err
			}
		}
		return cardsource.SQLiteSource{Path: o.sqlitePath}.Cards(ctx)
	case o.cardsPath != "":
		return cardsource.YAMLSource{Path: o.cardsPath}.Cards(ctx)
	default:
		return cardsource.Sample(), nil
	}
}
