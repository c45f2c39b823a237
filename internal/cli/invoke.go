package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"sigs.k8s.io/yaml"

	"github.com/tansive/sessionactions/internal/action"
	"github.com/tansive/sessionactions/pkg/api"
)

type invokeOptions struct {
	params   []string
	file     string
	output   string
	endpoint string
	timeout  time.Duration
}

func newInvokeCmd() *cobra.Command {
	opts := &invokeOptions{}
	cmd := &cobra.Command{
		Use:   "invoke ACTION [flags]",
		Short: "Invoke an action and print its result",
		Long: `Invoke startSession or stopSession with the given parameters. The action
runs in-process unless --endpoint names a running action proxy.

An action that produces no result prints an empty object.

Examples:
  sessionactions invoke startSession -p strategy=greedy
  sessionactions invoke stopSession -p sessionId=42 -o yaml
  sessionactions invoke startSession -f params.yaml --endpoint http://localhost:8080`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd, args[0], opts)
		},
	}
	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "Parameter as key=value; may be repeated")
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "JSON or YAML file holding the parameter object")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "json", "Output format: json or yaml")
	cmd.Flags().StringVar(&opts.endpoint, "endpoint", "", "URL of a running action proxy")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 30*time.Second, "Request timeout when using --endpoint")
	return cmd
}

func runInvoke(cmd *cobra.Command, name string, opts *invokeOptions) error {
	if opts.output != "json" && opts.output != "yaml" {
		return fmt.Errorf("unsupported output format %q", opts.output)
	}
	params, err := buildParams(opts.file, opts.params)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var result []byte
	if opts.endpoint != "" {
		result, err = invokeRemote(ctx, opts, name, params)
	} else {
		result, err = invokeLocal(ctx, name, params)
	}
	if err != nil {
		return reportInvokeError(cmd, err)
	}
	return printResult(cmd.OutOrStdout(), result, opts.output)
}

func invokeLocal(ctx context.Context, name string, rawParams []byte) ([]byte, error) {
	params, perr := action.ParseParams(rawParams)
	if perr != nil {
		return nil, perr
	}
	d, err := action.DefaultRegistry().Invoke(ctx, name, params)
	if err != nil {
		return nil, err
	}
	return action.EncodeResult(d, nil), nil
}

func invokeRemote(ctx context.Context, opts *invokeOptions, name string, params []byte) ([]byte, error) {
	client, err := api.NewClient(opts.endpoint, api.WithTimeout(opts.timeout))
	if err != nil {
		return nil, err
	}
	return client.Invoke(ctx, name, params)
}

// reportInvokeError prints a rejected invocation. Declared action errors are
// printed in their wire form.
func reportInvokeError(cmd *cobra.Command, err error) error {
	msg := err.Error()
	var rspErr *api.ResponseError
	if errors.As(err, &rspErr) && rspErr.Message != "" {
		msg = rspErr.Message
	} else if r := action.NewErrorResult(err); r.Error != "" {
		msg = r.Error
	}
	if jsonOutput {
		printJSON(cmd.OutOrStdout(), action.ErrorResult{Error: msg})
	} else {
		errorLabel.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", msg)
	}
	return ErrAlreadyHandled
}

func printResult(w io.Writer, result []byte, format string) error {
	if !gjson.ValidBytes(result) {
		return fmt.Errorf("invalid result: %s", string(result))
	}
	if format == "yaml" {
		out, err := yaml.JSONToYAML(result)
		if err != nil {
			return fmt.Errorf("failed to format result: %w", err)
		}
		_, err = w.Write(out)
		return err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, result, "", "  "); err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}
