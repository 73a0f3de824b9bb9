package cli

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/PratikDhanave/passcount/internal/observer"
	"github.com/PratikDhanave/passcount/internal/overlay"
	"github.com/PratikDhanave/passcount/internal/tracker"
)

func newObserveCmd(v *viper.Viper) *cobra.Command {
	defaults := tracker.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "observe",
		Short: "Count distinct passing subjects in recorded per-frame detections",
		Long: "observe replays a JSON-lines detection log through the pass-through counter, " +
			"optionally writing annotated overlay frames, and prints a JSON summary when the log ends or on interrupt.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			bindLocal(v, cmd)

			logger, err := newLogger(v)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			cfg := tracker.Config{
				TrackedClass: v.GetString("class"),
				MinScore:     v.GetFloat64("min-score"),
				Cooldown:     v.GetDuration("cooldown"),
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			in, closeIn, err := openInput(cmd, v.GetString("input"))
			if err != nil {
				return err
			}
			defer closeIn()

			var sink observer.Sink = logSink{logger: logger}
			overlayDir := v.GetString("overlay-dir")
			if overlayDir != "" {
				png, err := overlay.NewPNGSink(overlayDir, overlay.NewRenderer(), logger.Named("overlay"))
				if err != nil {
					return err
				}
				sink = png
			}

			tr := tracker.New(cfg, nil)
			replay := observer.NewReplay(in, overlayDir != "")
			obs := observer.New(replay, replay, sink, tr, logger.Named("observer"))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := obs.Start(ctx); err != nil {
				return err
			}
			<-obs.Done()
			runErr := obs.Stop()

			enc := json.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(obs.Stats()); err != nil {
				return errors.Wrap(err, "write summary")
			}
			return runErr
		},
	}

	cmd.Flags().String("input", "-", "JSON-lines detection log, or - for stdin")
	cmd.Flags().String("class", defaults.TrackedClass, "class label to count")
	cmd.Flags().Float64("min-score", defaults.MinScore, "ignore detections scoring below this")
	cmd.Flags().Duration("cooldown", defaults.Cooldown, "how long a counted position stays counted")
	cmd.Flags().String("overlay-dir", "", "write annotated PNG frames here")
	return cmd
}

func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open input")
	}
	return f, func() { _ = f.Close() }, nil
}

// logSink reports per-frame results through the logger when no overlay is written.
type logSink struct {
	logger *zap.Logger
}

func (s logSink) Publish(_ context.Context, f observer.Frame, res tracker.Result) error {
	s.logger.Debug("frame",
		zap.Int64("seq", f.Seq),
		zap.Any("classes", res.ClassCounts),
		zap.Int64("total", res.Total))
	return nil
}

func (s logSink) Fail(_ context.Context, f observer.Frame, err error) {
	s.logger.Warn("frame skipped", zap.Int64("seq", f.Seq), zap.Error(err))
}
