package tracker

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Config tunes the deduplication heuristic.
type Config struct {
	TrackedClass string        // only this class is counted
	MinScore     float64       // detections below this are ignored entirely
	Cooldown     time.Duration // how long an identity stays live after it is created
}

// DefaultConfig counts people seen with at least 50% confidence, forgetting
// each one after five seconds.
func DefaultConfig() Config {
	return Config{
		TrackedClass: "person",
		MinScore:     0.5,
		Cooldown:     5 * time.Second,
	}
}

// Validate rejects settings that would break counting: a non-positive
// cooldown re-counts every subject on every frame.
func (c Config) Validate() error {
	if c.Cooldown <= 0 {
		return errors.Errorf("cooldown must be positive, got %s", c.Cooldown)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return errors.Errorf("min score must be within [0, 1], got %g", c.MinScore)
	}
	return nil
}

// Result describes one processed frame.
type Result struct {
	Annotations []Annotation
	ClassCounts map[string]int // surviving detections per class in this frame
	NewSubjects int            // identities created by this frame
	Total       int64          // running count after this frame
}

// Tracker turns per-frame detections into a count of distinct passing subjects.
//
// Identities are keyed by quantized box origin and live for Cooldown from
// creation; re-observing a live identity does not extend it. Two subjects
// whose origins round to the same key within the window are counted once, and
// a subject that moves is counted again; there is no motion model.
type Tracker struct {
	cfg    Config
	clock  clock.Clock
	filter Filter

	mu    sync.Mutex
	live  map[SpatialKey]time.Time // key -> expiresAt
	total int64
}

// New returns a Tracker. A nil clk uses the wall clock.
func New(cfg Config, clk clock.Clock) *Tracker {
	if clk == nil {
		clk = clock.New()
	}
	return &Tracker{
		cfg:    cfg,
		clock:  clk,
		filter: NewScoreFilter(cfg.MinScore),
		live:   map[SpatialKey]time.Time{},
	}
}

// Observe processes one frame's detections at the current clock time.
func (t *Tracker) Observe(detections []Detection) Result {
	return t.ObserveAt(t.clock.Now(), detections)
}

// ObserveAt processes one frame's detections as of now, for frames that carry
// their own capture time.
//
// Expired identities are dropped first, so expiry and creation for the same
// key are ordered within the frame rather than racing.
func (t *Tracker) ObserveAt(now time.Time, detections []Detection) Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.expireLocked(now)

	kept := t.filter(detections)
	res := Result{
		Annotations: make([]Annotation, 0, len(kept)),
		ClassCounts: map[string]int{},
	}

	for _, d := range kept {
		res.ClassCounts[d.Class]++

		tracked := d.Class == t.cfg.TrackedClass
		if tracked {
			key := KeyOf(d.Box)
			if _, ok := t.live[key]; !ok {
				t.live[key] = now.Add(t.cfg.Cooldown)
				t.total++
				res.NewSubjects++
			}
		}
		res.Annotations = append(res.Annotations, annotate(d, tracked))
	}

	res.Total = t.total
	return res
}

// Count returns the running total.
func (t *Tracker) Count() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// Live returns how many identities have not yet expired.
func (t *Tracker) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.expireLocked(t.clock.Now())
	return len(t.live)
}

// Forget drops every live identity without touching the count.
func (t *Tracker) Forget() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.live = map[SpatialKey]time.Time{}
}

func (t *Tracker) expireLocked(now time.Time) {
	for key, expiresAt := range t.live {
		if !now.Before(expiresAt) {
			delete(t.live, key)
		}
	}
}
