package tracker

import (
	"fmt"
	"math"
)

// Box is an axis-aligned bounding box: origin at the top-left corner.
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection is one object reported by the inference capability for a frame.
type Detection struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
	Box   Box     `json:"bbox"`
}

// SpatialKey is a detection's box origin quantized to whole units. It stands
// in for subject identity: two detections with the same key are treated as the
// same subject while its identity is live.
type SpatialKey struct {
	X, Y int
}

// String formats the key as "x-y".
func (k SpatialKey) String() string {
	return fmt.Sprintf("%d-%d", k.X, k.Y)
}

// KeyOf quantizes a box origin.
func KeyOf(b Box) SpatialKey {
	return SpatialKey{X: roundHalfUp(b.X), Y: roundHalfUp(b.Y)}
}

// Filter narrows a frame's detections.
type Filter func([]Detection) []Detection

// NewScoreFilter drops detections scoring below min.
func NewScoreFilter(min float64) Filter {
	return func(in []Detection) []Detection {
		out := make([]Detection, 0, len(in))
		for _, d := range in {
			if d.Score >= min {
				out = append(out, d)
			}
		}
		return out
	}
}

// Annotation is a draw command for one surviving detection: a box outline and
// a "class: NN%" label anchored just above it.
type Annotation struct {
	Box     Box
	Class   string
	Score   float64
	Label   string
	LabelX  float64
	LabelY  float64
	Tracked bool // detection belongs to the counted class
}

func annotate(d Detection, tracked bool) Annotation {
	labelY := 10.0
	if d.Box.Y > 10 {
		labelY = d.Box.Y - 5
	}
	return Annotation{
		Box:     d.Box,
		Class:   d.Class,
		Score:   d.Score,
		Label:   fmt.Sprintf("%s: %d%%", d.Class, roundHalfUp(d.Score*100)),
		LabelX:  d.Box.X,
		LabelY:  labelY,
		Tracked: tracked,
	}
}

// roundHalfUp rounds .5 towards positive infinity.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}
