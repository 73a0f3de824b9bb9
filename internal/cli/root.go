package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/PratikDhanave/passcount/internal/logging"
)

// Execute runs the passcount CLI.
func Execute() error {
	return NewRootCmd().Execute()
}

// NewRootCmd builds the command tree. Every flag can also be set through a
// PASSCOUNT_ environment variable, e.g. PASSCOUNT_SERVER.
func NewRootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("PASSCOUNT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	rootCmd := &cobra.Command{
		Use:           "passcount",
		Short:         "Rendezvous signaling and pass-through people counting",
		Long:          "passcount acts as a rendezvous agent against the signaling service and replays recorded detections through the pass-through counter.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().String("log-level", "warn", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "console", "log format: console or json")
	_ = v.BindPFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newSignalCmd(v),
		newObserveCmd(v),
	)
	return rootCmd
}

// bindLocal makes a command's own flags visible through v.
func bindLocal(v *viper.Viper, cmd *cobra.Command) {
	_ = v.BindPFlags(cmd.Flags())
}

func newLogger(v *viper.Viper) (*zap.Logger, error) {
	return logging.New(logging.Options{
		Level:  v.GetString("log-level"),
		Format: v.GetString("log-format"),
	})
}
