// Package ratelimit provides per-sender admission control for inbound events.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"

	"github.com/smallbiznis/ordena/internal/clock"
)

const (
	defaultWindow = 60 * time.Second
	defaultLimit  = 30
	shardCount    = 16
)

// Limiter admits at most Limit events per sender per rolling window. Denial
// is advisory backpressure: callers drop the event silently, with no state
// mutation and no outbound message.
type Limiter struct {
	window time.Duration
	limit  int
	clock  clock.Clock
	shards [shardCount]*shard
}

type shard struct {
	mu        sync.Mutex
	senders   map[string]*counter
	lastSweep time.Time
}

type counter struct {
	count       int
	windowStart time.Time
}

// New builds a limiter with the production window of 30 events per 60 seconds.
func New(clk clock.Clock) *Limiter {
	return NewWithLimits(clk, defaultWindow, defaultLimit)
}

func NewWithLimits(clk clock.Clock, window time.Duration, limit int) *Limiter {
	l := &Limiter{window: window, limit: limit, clock: clk}
	for i := range l.shards {
		l.shards[i] = &shard{senders: make(map[string]*counter)}
	}
	return l
}

// Allow records one event for the sender and reports whether it is admitted.
func (l *Limiter) Allow(sender string) bool {
	now := l.clock.Now()
	sh := l.shards[shardFor(sender)]

	sh.mu.Lock()
	defer sh.mu.Unlock()

	sh.sweep(now, l.window)

	entry, ok := sh.senders[sender]
	if !ok || now.Sub(entry.windowStart) > l.window {
		sh.senders[sender] = &counter{count: 1, windowStart: now}
		return true
	}

	entry.count++
	return entry.count <= l.limit
}

// sweep drops counters idle for more than two window-widths. Runs inline,
// at most once per window per shard, while the shard lock is held.
func (sh *shard) sweep(now time.Time, window time.Duration) {
	if now.Sub(sh.lastSweep) < window {
		return
	}
	sh.lastSweep = now
	for sender, entry := range sh.senders {
		if now.Sub(entry.windowStart) > 2*window {
			delete(sh.senders, sender)
		}
	}
}

// Tracked returns the number of senders currently held, for tests.
func (l *Limiter) Tracked() int {
	total := 0
	for _, sh := range l.shards {
		sh.mu.Lock()
		total += len(sh.senders)
		sh.mu.Unlock()
	}
	return total
}

func shardFor(sender string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sender))
	return int(h.Sum32() % shardCount)
}
