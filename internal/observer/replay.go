package observer

import (
	"bufio"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/draw"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/PratikDhanave/passcount/internal/tracker"
)

// RecordedFrame is one line of a replay file:
//
//	{"ts":"2024-05-01T10:00:00Z","width":640,"height":480,"detections":[{"class":"person","score":0.9,"bbox":{"x":10,"y":10,"width":40,"height":120}}]}
//
// A non-empty "error" replays an inference failure for that frame.
type RecordedFrame struct {
	Timestamp  time.Time           `json:"ts"`
	Width      int                 `json:"width"`
	Height     int                 `json:"height"`
	Detections []tracker.Detection `json:"detections"`
	Error      string              `json:"error,omitempty"`
}

// Replay plays back recorded per-frame detections. It is both the Source and
// the Detector for an Observer: Next hands out frames, Detect returns what was
// recorded for them.
type Replay struct {
	scanner *bufio.Scanner
	canvas  bool

	mu      sync.Mutex
	seq     int64
	pending map[int64]RecordedFrame
}

// NewReplay reads JSON lines from r. When canvas is true each frame with a
// size gets a blank image so overlays have something to draw on.
func NewReplay(r io.Reader, canvas bool) *Replay {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return &Replay{
		scanner: scanner,
		canvas:  canvas,
		pending: map[int64]RecordedFrame{},
	}
}

// Next implements Source.
func (r *Replay) Next(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for r.scanner.Scan() {
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		var rec RecordedFrame
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return Frame{}, errors.Wrapf(err, "replay frame %d", r.seq+1)
		}

		r.seq++
		seq := r.seq
		r.pending[seq] = rec

		frame := Frame{
			Seq:        seq,
			Width:      rec.Width,
			Height:     rec.Height,
			CapturedAt: rec.Timestamp,
		}
		if r.canvas && canvasFits(rec.Width, rec.Height) {
			img := image.NewRGBA(image.Rect(0, 0, rec.Width, rec.Height))
			draw.Draw(img, img.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)
			frame.Image = img
		}
		return frame, nil
	}

	if err := r.scanner.Err(); err != nil {
		return Frame{}, errors.Wrap(err, "read replay")
	}
	return Frame{}, io.EOF
}

// MaxCanvasPixels bounds the blank canvas a replayed frame may ask for.
// Larger frames are replayed without an image.
const MaxCanvasPixels = 64 << 20

func canvasFits(width, height int) bool {
	if width <= 0 || height <= 0 || width > MaxCanvasPixels || height > MaxCanvasPixels {
		return false
	}
	return int64(width)*int64(height) <= MaxCanvasPixels
}

// Detect implements Detector.
func (r *Replay) Detect(_ context.Context, f Frame) ([]tracker.Detection, error) {
	r.mu.Lock()
	rec, ok := r.pending[f.Seq]
	delete(r.pending, f.Seq)
	r.mu.Unlock()

	if !ok {
		return nil, errors.Errorf("no recorded detections for frame %d", f.Seq)
	}
	if rec.Error != "" {
		return nil, errors.New(rec.Error)
	}
	return rec.Detections, nil
}
