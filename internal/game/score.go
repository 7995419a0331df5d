package game

import "sync"

// ScoreCounter is the single source of truth for points earned this
// session. The engine owns updates; other components (profile display,
// status bar) read or subscribe through this narrow interface instead of
// sharing a mutable variable.
type ScoreCounter struct {
	mu    sync.Mutex
	total int
	subs  []func(total int)
}

// NewScoreCounter creates a counter at zero.
func NewScoreCounter() *ScoreCounter {
	return &ScoreCounter{}
}

// Add accumulates points and notifies subscribers.
func (c *ScoreCounter) Add(points int) {
	if points == 0 {
		return
	}
	c.mu.Lock()
	c.total += points
	total := c.total
	subs := append([]func(int){}, c.subs...)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(total)
	}
}

// Set replaces the total, e.g. when syncing from the leaderboard after
// sign-in. Subscribers are notified.
func (c *ScoreCounter) Set(total int) {
	c.mu.Lock()
	c.total = total
	subs := append([]func(int){}, c.subs...)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(total)
	}
}

// Total returns the current session total.
func (c *ScoreCounter) Total() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.total
}

// Subscribe registers a callback invoked on every change with the new
// total. Callbacks run on the mutating goroutine and must not call back
// into the counter.
func (c *ScoreCounter) Subscribe(fn func(total int)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}
