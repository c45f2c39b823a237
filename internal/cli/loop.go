package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tansive/sessionactions/internal/action"
	"github.com/tansive/sessionactions/internal/config"
	"github.com/tansive/sessionactions/internal/runtime/actionloop"
)

// actionloopResultFd is where the actionloop protocol expects results.
const actionloopResultFd = 3

func newLoopCmd() *cobra.Command {
	var resultFd int
	cmd := &cobra.Command{
		Use:   "loop [action]",
		Short: "Run an action under the OpenWhisk actionloop protocol",
		Long: `Read one JSON activation per line from stdin and write one JSON result
per line to file descriptor 3. The action defaults to default_action from the
configuration.

Examples:
  sessionactions loop startSession
  sessionactions loop --result-fd 1 stopSession < activations.jsonl`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			initLogging()

			name := config.Config().DefaultAction
			if len(args) == 1 {
				name = args[0]
			}
			if name == "" {
				return fmt.Errorf("no action given and no default_action configured")
			}
			a, err := action.DefaultRegistry().Lookup(name)
			if err != nil {
				return err
			}

			out := os.NewFile(uintptr(resultFd), "actionloop-result")
			if out == nil {
				return fmt.Errorf("invalid result file descriptor %d", resultFd)
			}
			defer out.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return actionloop.Run(ctx, a, cmd.InOrStdin(), out, actionloop.WithAck(actionloop.AckRequested()))
		},
	}
	cmd.Flags().IntVar(&resultFd, "result-fd", actionloopResultFd, "File descriptor results are written to")
	return cmd
}
