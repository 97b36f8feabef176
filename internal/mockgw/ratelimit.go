package mockgw

import (
	"sync"
	"time"
)

// fixedWindow admits at most limit events per window. A limit of 0 admits everything.
type fixedWindow struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	start  time.Time
	count  int
	now    func() time.Time
}

func newFixedWindow(limit int, window time.Duration) *fixedWindow {
	return &fixedWindow{limit: limit, window: window, now: time.Now}
}

func (f *fixedWindow) Allow() bool {
	if f.limit == 0 {
		return true
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if now.Sub(f.start) >= f.window {
		f.start = now
		f.count = 0
	}
	if f.count >= f.limit {
		return false
	}
	f.count++
	return true
}
