/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package health reports liveness for each worker loop by staleness of
// its last recorded poll cycle, rather than a synchronous ping: a
// readiness-driven worker has no request/response cycle of its own to
// probe, so liveness is "did it sweep recently".
package health

import (
	"sync"
	"time"
)

// State is the liveness verdict for one worker.
type State uint8

const (
	StateUnknown State = iota
	StateHealthy
	StateStale
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateStale:
		return "stale"
	default:
		return "unknown"
	}
}

// Tracker records the last poll-cycle timestamp for a fixed set of
// workers and classifies each as healthy or stale against a threshold.
type Tracker struct {
	threshold time.Duration

	mu   sync.Mutex
	seen map[int]time.Time
	now  func() time.Time
}

// NewTracker builds a Tracker that considers a worker stale once its
// last recorded beat is older than threshold.
func NewTracker(threshold time.Duration) *Tracker {
	return &Tracker{
		threshold: threshold,
		seen:      make(map[int]time.Time),
		now:       time.Now,
	}
}

// Beat records that worker id completed a poll cycle at the current
// time. Safe for concurrent use by every worker goroutine.
func (t *Tracker) Beat(worker int) {
	t.mu.Lock()
	t.seen[worker] = t.now()
	t.mu.Unlock()
}

// State reports the liveness of worker id: StateUnknown if it has never
// beaten, StateHealthy if its last beat is within threshold, StateStale
// otherwise.
func (t *Tracker) State(worker int) State {
	t.mu.Lock()
	last, ok := t.seen[worker]
	t.mu.Unlock()

	if !ok {
		return StateUnknown
	}
	if t.now().Sub(last) > t.threshold {
		return StateStale
	}
	return StateHealthy
}

// Healthy reports whether every worker that has ever beaten is
// currently within the staleness threshold. A worker that never beat is
// excluded: callers should seed Beat for each worker at startup if an
// unstarted worker should count as unhealthy.
func (t *Tracker) Healthy(workers []int) bool {
	for _, w := range workers {
		if t.State(w) == StateStale {
			return false
		}
	}
	return true
}
