package apperrors

import (
	"net/http"
	"sync"
)

type TrackedError struct {
	Level Level
	Text  string
	Ctx   map[string]interface{}
}

// MemoryTracker keeps tracked errors in memory. Used by tests and by the
// migrate command to print a summary after the run.
type MemoryTracker struct {
	mu      sync.Mutex
	tracked []TrackedError
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{}
}

func (t *MemoryTracker) Track(level Level, errorText string, ctx map[string]interface{}) {
	cp := map[string]interface{}{}
	for k, v := range ctx {
		cp[k] = v
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.tracked = append(t.tracked, TrackedError{Level: level, Text: errorText, Ctx: cp})
}

func (t *MemoryTracker) WithHTTPRequest(r *http.Request) Tracker {
	return t
}

func (t *MemoryTracker) Tracked() []TrackedError {
	t.mu.Lock()
	defer t.mu.Unlock()

	ret := make([]TrackedError, len(t.tracked))
	copy(ret, t.tracked)
	return ret
}

// Tee sends every tracked error to all given trackers.
func Tee(trackers ...Tracker) Tracker {
	return teeTracker(trackers)
}

type teeTracker []Tracker

func (tt teeTracker) Track(level Level, errorText string, ctx map[string]interface{}) {
	for _, t := range tt {
		t.Track(level, errorText, ctx)
	}
}

func (tt teeTracker) WithHTTPRequest(r *http.Request) Tracker {
	ret := make(teeTracker, 0, len(tt))
	for _, t := range tt {
		ret = append(ret, t.WithHTTPRequest(r))
	}
	return ret
}

func (tt teeTracker) Flush() {
	for _, t := range tt {
		Flush(t)
	}
}
