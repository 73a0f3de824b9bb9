package observer

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/PratikDhanave/passcount/internal/tracker"
)

// ErrRunning is returned by Start or Run when a loop is already running.
var ErrRunning = errors.New("observer already running")

// Frame is one captured video frame.
type Frame struct {
	Seq        int64
	Width      int
	Height     int
	Image      image.Image // nil when only detections are available
	CapturedAt time.Time
}

// Source yields frames in capture order. It returns io.EOF when the stream ends.
type Source interface {
	Next(ctx context.Context) (Frame, error)
}

// Detector runs inference on a frame.
type Detector interface {
	Detect(ctx context.Context, f Frame) ([]tracker.Detection, error)
}

// Sink receives each processed frame and each per-frame failure.
type Sink interface {
	Publish(ctx context.Context, f Frame, res tracker.Result) error
	Fail(ctx context.Context, f Frame, err error)
}

// Stats counts loop activity.
type Stats struct {
	Frames   int64 `json:"frames"`
	Failures int64 `json:"failures"`
	Total    int64 `json:"total"`
}

// Observer feeds frames through a detector into a tracker, one frame at a
// time and in arrival order. A slow frame delays the next one; frames are
// never processed concurrently.
type Observer struct {
	source   Source
	detector Detector
	sink     Sink
	tracker  *tracker.Tracker
	logger   *zap.Logger

	frames   *atomic.Int64
	failures *atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
}

// New wires an Observer. sink may be nil.
func New(source Source, detector Detector, sink Sink, tr *tracker.Tracker, logger *zap.Logger) *Observer {
	if sink == nil {
		sink = nopSink{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Observer{
		source:   source,
		detector: detector,
		sink:     sink,
		tracker:  tr,
		logger:   logger,
		frames:   atomic.NewInt64(0),
		failures: atomic.NewInt64(0),
	}
}

// Run processes frames until ctx is cancelled or the source is exhausted.
// Cancellation and io.EOF are clean exits. A detector error only costs that
// frame; a source error ends the loop. Only one loop runs at a time.
func (o *Observer) Run(ctx context.Context) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrRunning
	}
	o.running = true
	o.mu.Unlock()

	err := o.run(ctx)

	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	return err
}

func (o *Observer) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := o.source.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "read frame")
		}

		detections, err := o.detector.Detect(ctx, frame)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			o.failures.Inc()
			o.logger.Warn("detection failed", zap.Int64("seq", frame.Seq), zap.Error(err))
			o.sink.Fail(ctx, frame, err)
			continue
		}

		var res tracker.Result
		if frame.CapturedAt.IsZero() {
			res = o.tracker.Observe(detections)
		} else {
			res = o.tracker.ObserveAt(frame.CapturedAt, detections)
		}
		o.frames.Inc()
		if res.NewSubjects > 0 {
			o.logger.Info("new subjects",
				zap.Int64("seq", frame.Seq),
				zap.Int("new", res.NewSubjects),
				zap.Int64("total", res.Total))
		}

		if err := o.sink.Publish(ctx, frame, res); err != nil {
			o.failures.Inc()
			o.logger.Warn("publish failed", zap.Int64("seq", frame.Seq), zap.Error(err))
			o.sink.Fail(ctx, frame, err)
		}
	}
}

// Start runs the loop in the background.
func (o *Observer) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running || o.done != nil {
		return ErrRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	o.running = true
	o.cancel = cancel
	o.done = done
	o.err = nil

	go func() {
		defer close(done)
		err := o.run(ctx)
		o.mu.Lock()
		o.running = false
		o.err = err
		o.mu.Unlock()
	}()
	return nil
}

// Stop cancels the loop, waits for the in-flight frame to finish and drops the
// tracker's live identities. Nothing scheduled by the loop runs after Stop
// returns. It returns the loop's error, if any.
func (o *Observer) Stop() error {
	o.mu.Lock()
	cancel, done := o.cancel, o.done
	o.mu.Unlock()
	if done == nil {
		return nil
	}

	cancel()
	<-done
	o.tracker.Forget()

	o.mu.Lock()
	defer o.mu.Unlock()
	err := o.err
	o.cancel, o.done, o.err = nil, nil, nil
	return err
}

// Done is closed when a loop started with Start exits. It is nil if the loop
// is not running.
func (o *Observer) Done() <-chan struct{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.done
}

// Stats reports frames processed, failures and the running total.
func (o *Observer) Stats() Stats {
	return Stats{
		Frames:   o.frames.Load(),
		Failures: o.failures.Load(),
		Total:    o.tracker.Count(),
	}
}

type nopSink struct{}

func (nopSink) Publish(context.Context, Frame, tracker.Result) error { return nil }
func (nopSink) Fail(context.Context, Frame, error)                   {}
