package engine

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-tiles/engine/profiler"
	"github.com/Carmen-Shannon/oxy-tiles/engine/window"
)

// engine implements the Engine interface.
// Coordinates the tick, render, and window threads.
type engine struct {
	mu *sync.Mutex

	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running   bool
	startOnce sync.Once
	wg        sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool
	reporter         *profiler.ErrorReporter

	engineTickRate time.Duration

	clients []*client
	nextID  int

	renderFrameLimit time.Duration // minimum frame duration; 0 = uncapped
}

// client is one Schedule registration. Callbacks run under mu so cancel can wait for a call in
// flight; once cancelled is set no further call is made.
type client struct {
	mu        *sync.Mutex
	id        int
	tick      func(dt float32) error
	frame     func(dt float32) error
	cancelled bool
}

// Engine drives the tick loop and the render loop of the wall and owns the window message loop.
// Work is registered with Schedule; every registered client gets its tick callback at the tick
// rate and its frame callback once per render frame.
type Engine interface {
	// Window returns the underlying window, nil for a headless engine.
	Window() window.Window

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetTickRate sets the engine tick rate in ticks per second.
	//
	// Parameters:
	//   - fps: target ticks per second (defaults to 60 if <= 0)
	SetTickRate(fps float64)

	// SetRenderFrameLimit sets an optional render frame rate cap in frames per second.
	// Pass 0 to uncap the render loop (default).
	//
	// Parameters:
	//   - fps: maximum render frames per second (0 = uncapped)
	SetRenderFrameLimit(fps float64)

	// Schedule registers a tick and a frame callback. Either may be nil. A returned error is
	// reported and the client stays scheduled; a panic is recovered and reported the same way.
	//
	// Parameters:
	//   - tick: called on the tick goroutine with the tick delta in seconds
	//   - frame: called on the render goroutine with the frame delta in seconds
	//
	// Returns:
	//   - func(): cancels the registration. When it returns no callback is running and none
	//     will run again. Calling it again is a no-op. Must not be called from the callbacks.
	Schedule(tick, frame func(dt float32) error) (cancel func())

	// Clients returns the number of scheduled registrations.
	Clients() int

	// Start launches the tick and render goroutines. Subsequent calls are no-ops.
	Start()

	// Run starts the engine and runs the window message loop until the window closes, then quits
	// and waits for the goroutines. Without a window it blocks until Quit.
	Run()

	// Quit signals all engine goroutines to stop.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()

	// Wait blocks until the engine goroutines have exited.
	Wait()
}

var _ Engine = &engine{}

// NewEngine creates a new Engine instance with the provided options.
//
// Parameters:
//   - options: functional options for engine configuration (window, profiling, tick rate, etc.)
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		mu:               &sync.Mutex{},
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		engineTickRate:   time.Second / 60,
	}

	for _, opt := range options {
		opt(e)
	}
	if e.reporter == nil {
		e.reporter = profiler.NewErrorReporter(0, nil)
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Schedule(tick, frame func(dt float32) error) func() {
	e.mu.Lock()
	e.nextID++
	c := &client{mu: &sync.Mutex{}, id: e.nextID, tick: tick, frame: frame}
	e.clients = append(e.clients, c)
	e.mu.Unlock()

	return func() {
		c.mu.Lock()
		c.cancelled = true
		c.mu.Unlock()

		e.mu.Lock()
		defer e.mu.Unlock()
		for i, other := range e.clients {
			if other == c {
				e.clients = append(e.clients[:i], e.clients[i+1:]...)
				break
			}
		}
	}
}

func (e *engine) Clients() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.clients)
}

// snapshot returns the current clients so callbacks run without holding e.mu.
func (e *engine) snapshot() []*client {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*client, len(e.clients))
	copy(out, e.clients)
	return out
}

// call runs fn for c unless c was cancelled, reporting errors and recovered panics under source.
func (e *engine) call(c *client, source string, fn func(*client) func(float32) error, dt float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelled {
		return
	}
	cb := fn(c)
	if cb == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			e.reporter.Report(source, fmt.Errorf("client %d panicked: %v", c.id, r))
		}
	}()
	if err := cb(dt); err != nil {
		e.reporter.Report(source, fmt.Errorf("client %d: %w", c.id, err))
	}
}

func tickOf(c *client) func(float32) error  { return c.tick }
func frameOf(c *client) func(float32) error { return c.frame }

func (e *engine) Start() {
	e.startOnce.Do(func() {
		e.mu.Lock()
		e.running = true
		e.mu.Unlock()
		e.handle()
	})
}

func (e *engine) Run() {
	e.Start()
	if e.window != nil {
		e.window.ProcessMessages()
	} else {
		<-e.quitChannel
	}
	e.Quit()
	e.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

func (e *engine) Wait() {
	e.wg.Wait()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
		close(e.quitChannel)
	})
}

// handle launches the engine, render, and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.wg.Add(3)
	go e.handleEngine()
	go e.handleRender()
	go e.handleQuit()
}

// handleEngine runs the fixed-rate tick loop in its own goroutine.
// Listens for dynamic rate changes via tickRateChannel. Exits when the quit channel is closed.
func (e *engine) handleEngine() {
	defer e.wg.Done()

	e.mu.Lock()
	rate := e.engineTickRate
	e.mu.Unlock()
	ticker := time.NewTicker(rate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			for _, c := range e.snapshot() {
				e.call(c, "Tick", tickOf, dt)
			}
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.mu.Lock()
			e.engineTickRate = newRate
			e.mu.Unlock()
		}
	}
}

// handleRender runs the uncapped (or frame-limited) render loop in its own goroutine.
// Client panics are recovered per call; anything escaping that signals quit.
func (e *engine) handleRender() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("render goroutine recovered from panic: %v", r)
			e.signalQuit()
		}
	}()

	lastRender := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		default:
			now := time.Now()
			dt := float32(now.Sub(lastRender).Seconds())
			lastRender = now

			for _, c := range e.snapshot() {
				e.call(c, "Frame", frameOf, dt)
			}

			e.mu.Lock()
			profiling := e.profilingEnabled
			limit := e.renderFrameLimit
			e.mu.Unlock()
			if profiling && e.profiler != nil {
				e.profiler.Tick()
			}

			if limit > 0 {
				elapsed := time.Since(lastRender)
				if remaining := limit - elapsed; remaining > 0 {
					time.Sleep(remaining)
				}
			} else {
				// yield so an idle wall does not pin a core
				time.Sleep(time.Millisecond)
			}
		}
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.profilingEnabled = false
}

// SetTickRate sets the engine tick rate in ticks per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetTickRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Duration(float64(time.Second) / fps)

	e.mu.Lock()
	running := e.running
	if !running {
		e.engineTickRate = newRate
	}
	e.mu.Unlock()
	if !running {
		return
	}

	// Non-blocking send; a pending value is replaced.
	select {
	case e.tickRateChannel <- newRate:
	default:
		select {
		case <-e.tickRateChannel:
		default:
		}
		e.tickRateChannel <- newRate
	}
}

// SetRenderFrameLimit sets an optional render frame rate cap.
// Pass 0 to uncap the render loop.
func (e *engine) SetRenderFrameLimit(fps float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if fps <= 0 {
		e.renderFrameLimit = 0
		return
	}
	e.renderFrameLimit = time.Duration(float64(time.Second) / fps)
}
