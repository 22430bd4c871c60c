// internal/sim/state/timeline.go
package state

import "sync"

// DefaultTimelineRuns is how many runs a Timeline keeps before evicting the
// oldest.
const DefaultTimelineRuns = 16

// Sample is the packet's TTL and hop count observed after one tick.
type Sample struct {
	Tick  int            `json:"tick"`
	TTL   int            `json:"ttl"`
	Hops  int            `json:"hops"`
	State AnimationState `json:"state"`
}

// RunSummary is the bookkeeping kept for one sent packet.
type RunSummary struct {
	RunID     string `json:"run_id"`
	Seq       uint64 `json:"seq"`
	SrcIP     string `json:"src_ip"`
	DstIP     string `json:"dst_ip"`
	Waypoints int    `json:"waypoints"`
	FinalTTL  int    `json:"final_ttl"`
	Hops      int    `json:"hops"`
	Ticks     int    `json:"ticks"`
	Delivered bool   `json:"delivered"`
}

// Timeline is a concurrency-safe, bounded store of per-tick samples for the
// most recent runs.
type Timeline struct {
	mu        sync.RWMutex
	limit     int
	order     []string
	samples   map[string][]Sample
	summaries map[string]*RunSummary
}

// NewTimeline creates a Timeline keeping at most limit runs. A non-positive
// limit selects DefaultTimelineRuns.
func NewTimeline(limit int) *Timeline {
	if limit <= 0 {
		limit = DefaultTimelineRuns
	}
	return &Timeline{
		limit:     limit,
		samples:   make(map[string][]Sample),
		summaries: make(map[string]*RunSummary),
	}
}

// Start begins tracking a run. The initial sample is recorded at tick 0.
func (t *Timeline) Start(summary RunSummary, initial Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.summaries[summary.RunID]; !exists {
		t.order = append(t.order, summary.RunID)
	}
	s := summary
	t.summaries[summary.RunID] = &s
	t.samples[summary.RunID] = []Sample{initial}

	for len(t.order) > t.limit {
		oldest := t.order[0]
		t.order = t.order[1:]
		delete(t.summaries, oldest)
		delete(t.samples, oldest)
	}
}

// Record appends a sample to a tracked run. Unknown runs are ignored.
func (t *Timeline) Record(runID string, s Sample) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.summaries[runID]; !ok {
		return
	}
	t.samples[runID] = append(t.samples[runID], s)
}

// Finish marks a tracked run as delivered.
func (t *Timeline) Finish(runID string, ttl, hops, ticks int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.summaries[runID]
	if !ok {
		return
	}
	s.FinalTTL = ttl
	s.Hops = hops
	s.Ticks = ticks
	s.Delivered = true
}

// Samples returns a copy of the samples recorded for runID.
func (t *Timeline) Samples(runID string) []Sample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Sample(nil), t.samples[runID]...)
}

// Summary returns the bookkeeping for runID.
func (t *Timeline) Summary(runID string) (RunSummary, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s, ok := t.summaries[runID]
	if !ok {
		return RunSummary{}, false
	}
	return *s, true
}

// Summaries lists tracked runs, oldest first.
func (t *Timeline) Summaries() []RunSummary {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]RunSummary, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.summaries[id])
	}
	return out
}
