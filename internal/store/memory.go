package store

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	// DefaultRetention is how long a record may go untouched before a sweep removes it.
	DefaultRetention = 24 * time.Hour
	// DefaultSweepInterval is how often the background sweeper runs.
	DefaultSweepInterval = time.Hour
)

// ErrClosed is returned by mutating operations after Close.
var ErrClosed = errors.New("store closed")

// Options configures a MemoryStore. Zero values select the defaults.
type Options struct {
	Clock         clock.Clock
	Logger        *zap.Logger
	Retention     time.Duration
	SweepInterval time.Duration
}

// Stats is a point-in-time view of store housekeeping.
type Stats struct {
	Records int   `json:"records"`
	Sweeps  int64 `json:"sweeps"`
	Swept   int64 `json:"swept"`
}

// record holds the negotiation state for one rendezvous key.
// removed is set under mu when a sweep drops the record from the index, so a
// writer that raced the sweep can tell its pointer is stale and retry.
type record struct {
	mu          sync.Mutex
	offer       []byte
	answer      []byte
	hints       [][]byte
	lastTouched time.Time
	removed     bool
}

// MemoryStore is the process-wide negotiation record store.
//
// The index lock is only held to look up or insert a record; every read and
// write of negotiation state happens under that record's own lock, so
// operations on different keys never wait on each other.
type MemoryStore struct {
	clock clock.Clock

	mu      sync.RWMutex
	records map[string]*record

	sweeper *Sweeper
	sweeps  *atomic.Int64
	swept   *atomic.Int64
	closed  *atomic.Bool
}

// NewMemoryStore creates an empty store and starts its expiry sweeper.
func NewMemoryStore(opts Options) (*MemoryStore, error) {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = DefaultSweepInterval
	}

	s := &MemoryStore{
		clock:   opts.Clock,
		records: map[string]*record{},
		sweeps:  atomic.NewInt64(0),
		swept:   atomic.NewInt64(0),
		closed:  atomic.NewBool(false),
	}

	sweeper, err := startSweeper(s, opts.SweepInterval, opts.Retention, opts.Logger.Named("sweeper"))
	if err != nil {
		return nil, err
	}
	s.sweeper = sweeper
	return s, nil
}

// Ping is used by the readiness endpoint.
func (s *MemoryStore) Ping(ctx context.Context) error {
	if s.closed.Load() {
		return ErrClosed
	}
	return ctx.Err()
}

// Close stops the sweeper. Reads keep working; writes fail with ErrClosed.
func (s *MemoryStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.sweeper.Stop()
}

// Touch ensures a record exists for key and stamps its lastTouched.
func (s *MemoryStore) Touch(key string) error {
	return s.mutate(key, func(*record) {})
}

// SetOffer overwrites the offer for key. Last write wins.
func (s *MemoryStore) SetOffer(key string, payload []byte) error {
	p := bytes.Clone(payload)
	return s.mutate(key, func(r *record) { r.offer = p })
}

// SetAnswer overwrites the answer for key. Last write wins.
func (s *MemoryStore) SetAnswer(key string, payload []byte) error {
	p := bytes.Clone(payload)
	return s.mutate(key, func(r *record) { r.answer = p })
}

// AppendHint appends a connectivity hint. The list is unbounded within the
// retention window.
func (s *MemoryStore) AppendHint(key string, payload []byte) error {
	p := bytes.Clone(payload)
	return s.mutate(key, func(r *record) { r.hints = append(r.hints, p) })
}

// Reset discards offer, answer and hints but keeps the record.
func (s *MemoryStore) Reset(key string) error {
	return s.mutate(key, func(r *record) {
		r.offer = nil
		r.answer = nil
		r.hints = nil
	})
}

// Offer returns the current offer and whether one is present.
func (s *MemoryStore) Offer(key string) ([]byte, bool) {
	var out []byte
	s.read(key, func(r *record) { out = bytes.Clone(r.offer) })
	return out, out != nil
}

// Answer returns the current answer and whether one is present.
func (s *MemoryStore) Answer(key string) ([]byte, bool) {
	var out []byte
	s.read(key, func(r *record) { out = bytes.Clone(r.answer) })
	return out, out != nil
}

// Hints returns a snapshot of the hint list in insertion order. It never
// returns nil and never consumes the list.
func (s *MemoryStore) Hints(key string) [][]byte {
	out := [][]byte{}
	s.read(key, func(r *record) {
		out = make([][]byte, len(r.hints))
		for i, h := range r.hints {
			out[i] = bytes.Clone(h)
		}
	})
	return out
}

// LastTouched reports when key was last mutated.
func (s *MemoryStore) LastTouched(key string) (time.Time, bool) {
	var (
		ts time.Time
		ok bool
	)
	s.read(key, func(r *record) { ts, ok = r.lastTouched, true })
	return ts, ok
}

// Sweep removes every record whose lastTouched is more than retention before now.
// It returns how many records were removed.
func (s *MemoryStore) Sweep(now time.Time, retention time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, r := range s.records {
		r.mu.Lock()
		if now.Sub(r.lastTouched) > retention {
			r.removed = true
			delete(s.records, key)
			removed++
		}
		r.mu.Unlock()
	}

	s.sweeps.Inc()
	s.swept.Add(int64(removed))
	return removed
}

// Stats reports the live record count and sweep totals.
func (s *MemoryStore) Stats() Stats {
	s.mu.RLock()
	n := len(s.records)
	s.mu.RUnlock()

	return Stats{
		Records: n,
		Sweeps:  s.sweeps.Load(),
		Swept:   s.swept.Load(),
	}
}

func (s *MemoryStore) mutate(key string, fn func(r *record)) error {
	if s.closed.Load() {
		return ErrClosed
	}
	for {
		r := s.getOrCreate(key)

		r.mu.Lock()
		if r.removed {
			r.mu.Unlock()
			continue
		}
		fn(r)
		r.lastTouched = s.clock.Now()
		r.mu.Unlock()
		return nil
	}
}

func (s *MemoryStore) read(key string, fn func(r *record)) {
	s.mu.RLock()
	r, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.removed {
		fn(r)
	}
}

func (s *MemoryStore) getOrCreate(key string) *record {
	s.mu.RLock()
	r, ok := s.records[key]
	s.mu.RUnlock()
	if ok {
		return r
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok = s.records[key]; ok {
		return r
	}
	r = &record{lastTouched: s.clock.Now()}
	s.records[key] = r
	return r
}
