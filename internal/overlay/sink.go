package overlay

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/PratikDhanave/passcount/internal/observer"
	"github.com/PratikDhanave/passcount/internal/tracker"
)

// PNGSink writes each annotated frame to Dir as frame_000001.png and so on.
// Frames without an image are skipped.
type PNGSink struct {
	dir      string
	renderer *Renderer
	logger   *zap.Logger
}

// NewPNGSink creates dir if needed.
func NewPNGSink(dir string, renderer *Renderer, logger *zap.Logger) (*PNGSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create overlay dir")
	}
	if renderer == nil {
		renderer = NewRenderer()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PNGSink{dir: dir, renderer: renderer, logger: logger}, nil
}

// Publish implements observer.Sink.
func (s *PNGSink) Publish(_ context.Context, f observer.Frame, res tracker.Result) error {
	if f.Image == nil {
		return nil
	}
	path := filepath.Join(s.dir, fmt.Sprintf("frame_%06d.png", f.Seq))
	if err := gg.SavePNG(path, s.renderer.Draw(f.Image, res.Annotations)); err != nil {
		return errors.Wrapf(err, "write overlay for frame %d", f.Seq)
	}
	return nil
}

// Fail implements observer.Sink.
func (s *PNGSink) Fail(_ context.Context, f observer.Frame, err error) {
	s.logger.Warn("frame skipped", zap.Int64("seq", f.Seq), zap.Error(err))
}
