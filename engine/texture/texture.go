// Package texture generates the two raster textures drawn for every card: the content-bearing
// foreground and the darkened hover-reveal background. Rasters are drawn on the CPU with gg,
// mipmapped, uploaded through the renderer and cached per card identity.
package texture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-tiles/common"
	"github.com/Carmen-Shannon/oxy-tiles/engine/renderer/resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/gg/text"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/text/language"
)

var (
	// ErrRasterUnavailable is returned when the offscreen raster surface cannot be created.
	// No texture can be produced for the card.
	ErrRasterUnavailable = errors.New("texture: raster surface unavailable")

	// ErrClosed is returned when a generation finishes after the generator was closed or its
	// cache cleared. The textures it produced have already been released.
	ErrClosed = errors.New("texture: generator closed")
)

// DefaultEdge is the default canvas edge in pixels.
const DefaultEdge = 2048

// Pair is the foreground and background texture of one card.
type Pair struct {
	Foreground resource.Texture
	Background resource.Texture
}

// Released reports whether either texture of the pair has been released.
func (p Pair) Released() bool {
	return p.Foreground == nil || p.Background == nil || p.Foreground.Released() || p.Background.Released()
}

// Release releases both textures.
func (p Pair) Release() {
	if p.Foreground != nil {
		p.Foreground.Release()
	}
	if p.Background != nil {
		p.Background.Release()
	}
}

// ByteSize returns the GPU memory held by both textures, mip chains included.
func (p Pair) ByteSize() uint64 {
	var n uint64
	if p.Foreground != nil {
		n += p.Foreground.ByteSize()
	}
	if p.Background != nil {
		n += p.Background.ByteSize()
	}
	return n
}

// Uploader is the part of the renderer the generator needs.
type Uploader interface {
	CreateTexture(label string, data common.TextureStagingData, sampler common.SamplerStagingData) (resource.Texture, error)
	MaxAnisotropy() uint16
}

type generator struct {
	mu *sync.Mutex

	uploader Uploader
	loader   ImageLoader
	cache    *Cache
	fonts    *fonts
	lang     language.Tag

	edge    int
	mipmaps bool
	workers int
	pool    worker.DynamicWorkerPool

	placeholder resource.Texture
	closed      bool
}

// Generator produces cached texture pairs for card records.
type Generator interface {
	// Generate returns the pair for card, generating and uploading it on a cache miss.
	// Image load failures fall back to placeholder rendering and never fail the call.
	//
	// Parameters:
	//   - ctx: cancels the image fetch
	//   - card: the card record
	//
	// Returns:
	//   - Pair: the cached pair
	//   - error: ErrRasterUnavailable, an upload error, or ErrClosed
	Generate(ctx context.Context, card common.CardRecord) (Pair, error)

	// GenerateAll generates the pairs of every card in parallel, one worker task per distinct
	// cache key, and returns once all of them are uploaded. Result i belongs to cards[i].
	//
	// Parameters:
	//   - ctx: cancels the image fetches
	//   - cards: the card records
	//
	// Returns:
	//   - []Pair: one pair per card
	//   - error: the first generation error
	GenerateAll(ctx context.Context, cards []common.CardRecord) ([]Pair, error)

	// Foreground returns the cached foreground texture of card.
	Foreground(ctx context.Context, card common.CardRecord) (resource.Texture, error)

	// Background returns the cached background texture of card.
	Background(ctx context.Context, card common.CardRecord) (resource.Texture, error)

	// Rasterize draws both layers of card on the CPU without uploading or caching them.
	//
	// Returns:
	//   - foreground, background: the rasters
	//   - error: ErrRasterUnavailable if the surface could not be created
	Rasterize(ctx context.Context, card common.CardRecord) (foreground, background image.Image, err error)

	// Placeholder returns a 1x1 dark texture used for slots without a generated pair.
	Placeholder() (resource.Texture, error)

	// CacheLen returns the number of cached pairs.
	CacheLen() int

	// ClearCache releases every cached texture and the placeholder. Generations still in
	// flight discard their results.
	ClearCache()

	// Close clears the cache and rejects further generation with ErrClosed. Idempotent.
	Close()
}

var _ Generator = &generator{}

// NewGenerator creates a Generator uploading through the given renderer.
//
// Parameters:
//   - uploader: the renderer (must not be nil)
//   - options: functional options
//
// Returns:
//   - Generator: the generator
func NewGenerator(uploader Uploader, options ...GeneratorBuilderOption) Generator {
	if uploader == nil {
		panic("texture: NewGenerator requires an uploader")
	}
	g := &generator{
		mu:       &sync.Mutex{},
		uploader: uploader,
		loader:   NewURLLoader(10 * time.Second),
		cache:    NewCache(),
		lang:     language.English,
		edge:     DefaultEdge,
		mipmaps:  true,
		workers:  4,
	}
	for _, opt := range options {
		opt(g)
	}

	regular, err := text.NewFontSource(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("texture: load regular font: %v", err))
	}
	bold, err := text.NewFontSource(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("texture: load bold font: %v", err))
	}
	g.fonts = &fonts{regular: regular, bold: bold}
	g.pool = worker.NewDynamicWorkerPool(g.workers, 256, 1*time.Second)
	return g
}

func (g *generator) isClosed() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.closed
}

// loadImage resolves the card image, returning nil on any failure.
func (g *generator) loadImage(ctx context.Context, card common.CardRecord) image.Image {
	if card.Image == "" {
		return nil
	}
	img, err := g.loader.Load(ctx, card.Image)
	if err != nil {
		log.Printf("[Texture] image for %q unavailable, using placeholder: %v", card.Title, err)
		return nil
	}
	return img
}

func (g *generator) Rasterize(ctx context.Context, card common.CardRecord) (image.Image, image.Image, error) {
	img := g.loadImage(ctx, card)
	fg, err := rasterizeForeground(g.edge, card, img, g.fonts, g.lang)
	if err != nil {
		return nil, nil, err
	}
	bg, err := rasterizeBackground(g.edge, img)
	if err != nil {
		return nil, nil, err
	}
	return fg, bg, nil
}

func (g *generator) sampler() common.SamplerStagingData {
	return common.SamplerStagingData{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		MaxAnisotropy: max(g.uploader.MaxAnisotropy(), 1),
	}
}

// upload sends both rasters to the GPU. The first texture is released if the second fails.
func (g *generator) upload(card common.CardRecord, fg, bg image.Image) (Pair, error) {
	sampler := g.sampler()
	front, err := g.uploader.CreateTexture(card.Title+" foreground", stagingData(fg, g.mipmaps), sampler)
	if err != nil {
		return Pair{}, fmt.Errorf("texture: upload foreground of %q: %w", card.Title, err)
	}
	back, err := g.uploader.CreateTexture(card.Title+" background", stagingData(bg, g.mipmaps), sampler)
	if err != nil {
		front.Release()
		return Pair{}, fmt.Errorf("texture: upload background of %q: %w", card.Title, err)
	}
	return Pair{Foreground: front, Background: back}, nil
}

func (g *generator) Generate(ctx context.Context, card common.CardRecord) (Pair, error) {
	pairs, err := g.GenerateAll(ctx, []common.CardRecord{card})
	if err != nil {
		return Pair{}, err
	}
	return pairs[0], nil
}

func (g *generator) GenerateAll(ctx context.Context, cards []common.CardRecord) ([]Pair, error) {
	if g.isClosed() {
		return nil, ErrClosed
	}
	epoch := g.cache.Epoch()
	out := make([]Pair, len(cards))

	type job struct {
		card    common.CardRecord
		fg, bg  image.Image
		err     error
		indices []int
	}
	jobs := make(map[string]*job)
	var order []string
	for i, card := range cards {
		key := CacheKey(card)
		if p, ok := g.cache.Get(key); ok {
			out[i] = p
			continue
		}
		if j, ok := jobs[key]; ok {
			j.indices = append(j.indices, i)
			continue
		}
		jobs[key] = &job{card: card, indices: []int{i}}
		order = append(order, key)
	}

	// Rasterize every missing card in parallel and join before uploading.
	var wg sync.WaitGroup
	for id, key := range order {
		j := jobs[key]
		wg.Add(1)
		g.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				defer func() {
					if r := recover(); r != nil {
						j.err = fmt.Errorf("%w: %v", ErrRasterUnavailable, r)
					}
				}()
				j.fg, j.bg, j.err = g.Rasterize(ctx, j.card)
				return nil, nil
			},
		})
	}
	wg.Wait()

	var firstErr error
	for _, key := range order {
		j := jobs[key]
		if j.err != nil {
			firstErr = errors.Join(firstErr, fmt.Errorf("texture: %q: %w", j.card.Title, j.err))
			continue
		}
		p, err := g.upload(j.card, j.fg, j.bg)
		if err != nil {
			firstErr = errors.Join(firstErr, err)
			continue
		}
		cached, ok := g.cache.Put(key, p, epoch)
		if !ok {
			return nil, ErrClosed
		}
		for _, i := range j.indices {
			out[i] = cached
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (g *generator) Foreground(ctx context.Context, card common.CardRecord) (resource.Texture, error) {
	p, err := g.Generate(ctx, card)
	if err != nil {
		return nil, err
	}
	return p.Foreground, nil
}

func (g *generator) Background(ctx context.Context, card common.CardRecord) (resource.Texture, error) {
	p, err := g.Generate(ctx, card)
	if err != nil {
		return nil, err
	}
	return p.Background, nil
}

func (g *generator) Placeholder() (resource.Texture, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil, ErrClosed
	}
	if g.placeholder != nil && !g.placeholder.Released() {
		return g.placeholder, nil
	}
	c := CardColor
	tex, err := g.uploader.CreateTexture("placeholder", common.TextureStagingData{
		Pixels: []byte{c.R, c.G, c.B, c.A},
		Width:  1,
		Height: 1,
	}, g.sampler())
	if err != nil {
		return nil, fmt.Errorf("texture: placeholder: %w", err)
	}
	g.placeholder = tex
	return tex, nil
}

func (g *generator) CacheLen() int {
	return g.cache.Len()
}

func (g *generator) ClearCache() {
	g.cache.Clear()
	g.mu.Lock()
	placeholder := g.placeholder
	g.placeholder = nil
	g.mu.Unlock()
	if placeholder != nil {
		placeholder.Release()
	}
}

func (g *generator) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.mu.Unlock()
	g.ClearCache()
	g.fonts.close()
}
