package profiler

import (
	"log"
	"sync"
	"time"
)

// ErrorReporter logs GPU and render errors without flooding the output.
// Identical messages are logged once per window; repeats inside the window are counted
// and summarised the next time the message is allowed through. Reporting never changes
// control flow, it is purely an observability signal.
type ErrorReporter struct {
	mu *sync.Mutex

	window  time.Duration
	maxKeys int
	seen    map[string]*errorEntry

	// context supplies renderer statistics appended to every logged line.
	context func() string
	logf    func(format string, args ...any)
	now     func() time.Time
}

type errorEntry struct {
	lastLogged time.Time
	suppressed int
	total      int
}

// NewErrorReporter creates an ErrorReporter.
//
// Parameters:
//   - window: minimum time between two log lines for the same message (<= 0 defaults to 5s)
//   - context: optional function returning renderer statistics (draw calls, triangles, textures, geometries)
//
// Returns:
//   - *ErrorReporter: the reporter
func NewErrorReporter(window time.Duration, context func() string) *ErrorReporter {
	if window <= 0 {
		window = 5 * time.Second
	}
	return &ErrorReporter{
		mu:      &sync.Mutex{},
		window:  window,
		maxKeys: 256,
		seen:    make(map[string]*errorEntry),
		context: context,
		logf:    log.Printf,
		now:     time.Now,
	}
}

// SetContext replaces the statistics source appended to logged lines.
func (r *ErrorReporter) SetContext(context func() string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.context = context
}

// Report records err under the given source label and logs it unless the same message
// was already logged inside the current window.
//
// Parameters:
//   - source: the component or operation that produced the error (e.g. "BeginFrame")
//   - err: the error (nil is ignored)
//
// Returns:
//   - bool: true if a line was written to the log
func (r *ErrorReporter) Report(source string, err error) bool {
	if err == nil {
		return false
	}
	key := source + ": " + err.Error()
	now := r.now()

	r.mu.Lock()
	e, ok := r.seen[key]
	if !ok {
		if len(r.seen) >= r.maxKeys {
			r.evictOldest()
		}
		e = &errorEntry{}
		r.seen[key] = e
	}
	e.total++
	if ok && now.Sub(e.lastLogged) < r.window {
		e.suppressed++
		r.mu.Unlock()
		return false
	}
	suppressed := e.suppressed
	e.suppressed = 0
	e.lastLogged = now
	total := e.total
	context := r.context
	r.mu.Unlock()

	stats := ""
	if context != nil {
		stats = " | " + context()
	}
	if suppressed > 0 {
		r.logf("[GPU] %s (repeated %d times, %d total)%s", key, suppressed, total, stats)
	} else {
		r.logf("[GPU] %s%s", key, stats)
	}
	return true
}

// Count returns how many times the given source/error pair has been reported.
func (r *ErrorReporter) Count(source string, err error) int {
	if err == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.seen[source+": "+err.Error()]; ok {
		return e.total
	}
	return 0
}

// evictOldest drops the entry logged longest ago. Caller holds the lock.
func (r *ErrorReporter) evictOldest() {
	var oldestKey string
	var oldest time.Time
	first := true
	for k, e := range r.seen {
		if first || e.lastLogged.Before(oldest) {
			oldestKey, oldest, first = k, e.lastLogged, false
		}
	}
	delete(r.seen, oldestKey)
}
