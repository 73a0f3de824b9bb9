package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PratikDhanave/passcount/internal/client"
)

const defaultRequestTimeout = 10 * time.Second

func newSignalCmd(v *viper.Viper) *cobra.Command {
	signalCmd := &cobra.Command{
		Use:   "signal",
		Short: "Act as a rendezvous agent against the signaling service",
	}
	signalCmd.PersistentFlags().String("server", "http://localhost:8080", "signaling service base URL")
	signalCmd.PersistentFlags().Duration("poll-interval", client.DefaultPollInterval, "retry interval for wait-* commands")
	signalCmd.PersistentFlags().Duration("timeout", 0, "give up after this long (0 waits forever for wait-*, 10s otherwise)")

	signalCmd.AddCommand(
		newPublishCmd(v, "offer", "Publish an offer", (*client.Client).PublishOffer),
		newPublishCmd(v, "answer", "Publish an answer", (*client.Client).PublishAnswer),
		newPublishCmd(v, "candidate", "Append a connectivity candidate", (*client.Client).PublishCandidate),
		newResetCmd(v),
		newFetchCmd(v, "get-offer", "Print the offer, or null", (*client.Client).Offer),
		newFetchCmd(v, "get-answer", "Print the answer, or null", (*client.Client).Answer),
		newGetCandidatesCmd(v),
		newFetchCmd(v, "wait-offer", "Poll until an offer is published, then print it", (*client.Client).AwaitOffer),
		newFetchCmd(v, "wait-answer", "Poll until an answer is published, then print it", (*client.Client).AwaitAnswer),
		newNewKeyCmd(),
	)
	return signalCmd
}

type publishFunc func(*client.Client, context.Context, string, json.RawMessage) error

type fetchFunc func(*client.Client, context.Context, string) (json.RawMessage, error)

func newPublishCmd(v *viper.Viper, use, short string, publish publishFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " KEY [PAYLOAD|-]",
		Short: short,
		Long:  short + ". The payload is a JSON value given as an argument, or read from stdin when omitted or '-'.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := readPayload(cmd, args[1:])
			if err != nil {
				return err
			}
			c, ctx, cancel := signalClient(v, cmd, false)
			defer cancel()

			if err := publish(c, ctx, args[0], payload); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newResetCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "reset KEY",
		Short: "Discard the offer, answer and candidates stored under KEY",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := signalClient(v, cmd, false)
			defer cancel()

			if err := c.Reset(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func newFetchCmd(v *viper.Viper, use, short string, fetch fetchFunc) *cobra.Command {
	waits := strings.HasPrefix(use, "wait-")
	return &cobra.Command{
		Use:   use + " KEY",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := signalClient(v, cmd, waits)
			defer cancel()

			payload, err := fetch(c, ctx, args[0])
			if err != nil {
				return err
			}
			if payload == nil {
				payload = json.RawMessage("null")
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(payload))
			return nil
		},
	}
}

func newGetCandidatesCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "get-candidates KEY",
		Short: "Print every candidate published under KEY, one per line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, ctx, cancel := signalClient(v, cmd, false)
			defer cancel()

			candidates, err := c.Candidates(ctx, args[0])
			if err != nil {
				return err
			}
			for _, cand := range candidates {
				fmt.Fprintln(cmd.OutOrStdout(), string(cand))
			}
			return nil
		},
	}
}

func newNewKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "new-key",
		Short: "Print a fresh random rendezvous key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), uuid.New().String())
			return nil
		},
	}
}

func signalClient(v *viper.Viper, cmd *cobra.Command, waits bool) (*client.Client, context.Context, context.CancelFunc) {
	bindLocal(v, cmd)

	c := client.New(v.GetString("server"), client.WithPollInterval(v.GetDuration("poll-interval")))

	timeout := v.GetDuration("timeout")
	if timeout <= 0 && !waits {
		timeout = defaultRequestTimeout
	}
	if timeout <= 0 {
		ctx, cancel := context.WithCancel(cmd.Context())
		return c, ctx, cancel
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	return c, ctx, cancel
}

func readPayload(cmd *cobra.Command, args []string) (json.RawMessage, error) {
	var raw []byte
	if len(args) == 0 || args[0] == "-" {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, errors.Wrap(err, "read payload from stdin")
		}
		raw = b
	} else {
		raw = []byte(args[0])
	}

	raw = []byte(strings.TrimSpace(string(raw)))
	if !json.Valid(raw) {
		return nil, errors.New("payload must be a JSON value")
	}
	return raw, nil
}
