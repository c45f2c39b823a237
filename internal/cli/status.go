package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/tansive/sessionactions/internal/config"
	"github.com/tansive/sessionactions/internal/server"
	"github.com/tansive/sessionactions/pkg/api"
)

// StatusResponse is the machine-readable output of the status command.
type StatusResponse struct {
	Endpoint      string   `json:"endpoint"`
	Ready         bool     `json:"ready"`
	ServerVersion string   `json:"serverVersion,omitempty"`
	ApiVersion    string   `json:"apiVersion,omitempty"`
	Actions       []string `json:"actions,omitempty"`
	Compatible    bool     `json:"compatible"`
}

type statusOptions struct {
	endpoint string
	wait     time.Duration
	interval time.Duration
}

func newStatusCmd() *cobra.Command {
	opts := &statusOptions{}
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check whether an action proxy is ready",
		Long: `Poll the /ready endpoint of an action proxy until it answers or --wait
elapses, then print its version and the actions it serves.

Examples:
  sessionactions status
  sessionactions status --endpoint http://localhost:9090 --wait 30s -j`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return getStatus(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "URL of the action proxy (default http://localhost:<server_port>)")
	cmd.Flags().DurationVar(&opts.wait, "wait", 0, "How long to wait for the proxy to become ready")
	cmd.Flags().DurationVar(&opts.interval, "interval", 500*time.Millisecond, "Delay between readiness checks")
	return cmd
}

func getStatus(cmd *cobra.Command, opts *statusOptions) error {
	if err := loadConfig(); err != nil {
		return err
	}
	endpoint := opts.endpoint
	if endpoint == "" {
		endpoint = "http://localhost:" + config.Config().ServerPort
	}

	client, err := api.NewClient(endpoint, api.WithMaxRetries(1))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	status := StatusResponse{Endpoint: endpoint}

	if err := waitReady(ctx, client, opts.wait, opts.interval); err != nil {
		if jsonOutput {
			printJSON(cmd.OutOrStdout(), status)
		} else {
			errorLabel.Fprintf(cmd.ErrOrStderr(), "Error: action proxy at %s is not ready: %v\n", endpoint, err)
		}
		return ErrAlreadyHandled
	}
	status.Ready = true

	info, err := client.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}
	status.ServerVersion = info.ServerVersion
	status.ApiVersion = info.ApiVersion
	status.Actions = info.Actions
	status.Compatible = server.IsVersionCompatible(info.ServerVersion)

	if jsonOutput {
		printJSON(cmd.OutOrStdout(), status)
		return nil
	}

	out := cmd.OutOrStdout()
	okLabel.Fprintf(out, "Ready: %s\n", endpoint)
	fmt.Fprintf(out, "Server Version: %s\n", status.ServerVersion)
	fmt.Fprintf(out, "API Version: %s\n", status.ApiVersion)
	fmt.Fprintf(out, "Actions: %s\n", strings.Join(status.Actions, ", "))
	if !status.Compatible {
		warnLabel.Fprintf(out, "Warning: server version %s is not compatible with client version %s\n", status.ServerVersion, server.Version)
	}
	return nil
}

// waitReady polls until the proxy is ready. A zero wait checks once.
func waitReady(ctx context.Context, client *api.Client, wait, interval time.Duration) error {
	if wait <= 0 {
		return client.Ready(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	return retry.Do(
		func() error { return client.Ready(ctx) },
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
}
