package tracker

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func person(x, y, score float64) Detection {
	return Detection{Class: "person", Score: score, Box: Box{X: x, Y: y, Width: 40, Height: 120}}
}

func TestCooldownWindow(t *testing.T) {
	mock := clock.NewMock()
	tr := New(DefaultConfig(), mock)

	res := tr.Observe([]Detection{person(10, 10, 0.9)})
	assert.Equal(t, 1, res.NewSubjects)
	assert.Equal(t, int64(1), res.Total)

	mock.Add(2 * time.Second)
	res = tr.Observe([]Detection{person(10, 10, 0.9)})
	assert.Equal(t, 0, res.NewSubjects)
	assert.Equal(t, int64(1), res.Total)

	// 6s after the first sighting; the identity expired at 5s.
	mock.Add(4 * time.Second)
	res = tr.Observe([]Detection{person(10, 10, 0.9)})
	assert.Equal(t, 1, res.NewSubjects)
	assert.Equal(t, int64(2), res.Total)
}

func TestReobservationDoesNotExtendIdentity(t *testing.T) {
	mock := clock.NewMock()
	tr := New(DefaultConfig(), mock)

	tr.Observe([]Detection{person(10, 10, 0.9)})
	mock.Add(4 * time.Second)
	tr.Observe([]Detection{person(10, 10, 0.9)})
	mock.Add(time.Second)
	res := tr.Observe([]Detection{person(10, 10, 0.9)})

	assert.Equal(t, int64(2), res.Total)
}

func TestDistinctKeysInOneFrame(t *testing.T) {
	tr := New(DefaultConfig(), clock.NewMock())

	res := tr.Observe([]Detection{person(10, 10, 0.8), person(500, 500, 0.8)})
	assert.Equal(t, 2, res.NewSubjects)
	assert.Equal(t, int64(2), tr.Count())
	assert.Equal(t, 2, tr.Live())
}

func TestNearbyOriginsCollide(t *testing.T) {
	tr := New(DefaultConfig(), clock.NewMock())

	// 10.4 and 9.6 both round to 10: known limitation of the heuristic.
	res := tr.Observe([]Detection{person(10.4, 20, 0.8), person(9.6, 20.2, 0.8)})
	assert.Equal(t, 1, res.NewSubjects)
	assert.Len(t, res.Annotations, 2)
}

func TestLowConfidenceIsInvisible(t *testing.T) {
	tr := New(DefaultConfig(), clock.NewMock())

	res := tr.Observe([]Detection{
		person(10, 10, 0.49),
		{Class: "car", Score: 0.2, Box: Box{X: 100, Y: 100, Width: 50, Height: 30}},
	})
	assert.Equal(t, 0, res.NewSubjects)
	assert.Empty(t, res.Annotations)
	assert.Empty(t, res.ClassCounts)
	assert.Equal(t, int64(0), tr.Count())

	// The threshold itself is accepted.
	res = tr.Observe([]Detection{person(10, 10, 0.5)})
	assert.Equal(t, 1, res.NewSubjects)
}

func TestUntrackedClassesAreAnnotatedButNotCounted(t *testing.T) {
	tr := New(DefaultConfig(), clock.NewMock())

	res := tr.Observe([]Detection{
		{Class: "car", Score: 0.934, Box: Box{X: 100, Y: 4, Width: 50, Height: 30}},
		person(30, 40, 0.71),
		person(300, 40, 0.66),
	})

	assert.Equal(t, int64(2), res.Total)
	assert.Equal(t, map[string]int{"car": 1, "person": 2}, res.ClassCounts)
	require.Len(t, res.Annotations, 3)

	car := res.Annotations[0]
	assert.False(t, car.Tracked)
	assert.Equal(t, "car: 93%", car.Label)
	assert.Equal(t, 100.0, car.LabelX)
	assert.Equal(t, 10.0, car.LabelY) // box too close to the top edge

	p := res.Annotations[1]
	assert.True(t, p.Tracked)
	assert.Equal(t, "person: 71%", p.Label)
	assert.Equal(t, 35.0, p.LabelY)
}

func TestForgetKeepsCount(t *testing.T) {
	mock := clock.NewMock()
	tr := New(DefaultConfig(), mock)
	tr.Observe([]Detection{person(10, 10, 0.9)})

	tr.Forget()
	assert.Equal(t, 0, tr.Live())
	assert.Equal(t, int64(1), tr.Count())

	res := tr.Observe([]Detection{person(10, 10, 0.9)})
	assert.Equal(t, int64(2), res.Total)
}

func TestCustomConfig(t *testing.T) {
	mock := clock.NewMock()
	tr := New(Config{TrackedClass: "car", MinScore: 0.3, Cooldown: time.Second}, mock)

	tr.Observe([]Detection{{Class: "car", Score: 0.35, Box: Box{X: 1, Y: 1}}, person(5, 5, 0.9)})
	mock.Add(time.Second)
	res := tr.Observe([]Detection{{Class: "car", Score: 0.35, Box: Box{X: 1, Y: 1}}})

	assert.Equal(t, int64(2), res.Total)
}

func TestKeyOf(t *testing.T) {
	assert.Equal(t, SpatialKey{X: 11, Y: 10}, KeyOf(Box{X: 10.5, Y: 10.49}))
	assert.Equal(t, SpatialKey{X: 0, Y: -1}, KeyOf(Box{X: -0.5, Y: -0.51}))
	assert.Equal(t, "11-10", KeyOf(Box{X: 10.5, Y: 10.49}).String())
}

func TestObserveAtUsesFrameTime(t *testing.T) {
	tr := New(DefaultConfig(), clock.NewMock())
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	tr.ObserveAt(start, []Detection{person(10, 10, 0.9)})
	tr.ObserveAt(start.Add(4*time.Second), []Detection{person(10, 10, 0.9)})
	res := tr.ObserveAt(start.Add(5*time.Second), []Detection{person(10, 10, 0.9)})

	assert.Equal(t, int64(2), res.Total)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	for name, mutate := range map[string]func(*Config){
		"zero cooldown":     func(c *Config) { c.Cooldown = 0 },
		"negative cooldown": func(c *Config) { c.Cooldown = -time.Second },
		"negative score":    func(c *Config) { c.MinScore = -0.1 },
		"score above one":   func(c *Config) { c.MinScore = 1.5 },
	} {
		cfg := DefaultConfig()
		mutate(&cfg)
		assert.Error(t, cfg.Validate(), name)
	}
}
