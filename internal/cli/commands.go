// Package cli implements the sessionactions command line: serving the actions
// over the proxy protocol or the action loop, and invoking them locally or
// against a running proxy.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tansive/sessionactions/internal/config"
	"github.com/tansive/sessionactions/internal/server"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
)

var ErrAlreadyHandled = errors.New("already handled")

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)
var warnLabel = color.New(color.FgYellow)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessionactions [command] [flags]",
		Short: "Session actions - start and stop session command descriptors",
		Long: `sessionactions builds the startSession and stopSession command descriptors
consumed by the session orchestrator. The actions can be served as an OpenWhisk
action proxy, run under the actionloop protocol, or invoked directly.

Examples:
  # Serve the actions over HTTP
  sessionactions serve --config sessionactions.conf

  # Invoke an action locally
  sessionactions invoke startSession -p strategy=greedy

  # Invoke an action on a running proxy
  sessionactions invoke stopSession -p sessionId=42 --endpoint http://localhost:8080`,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file")
	cmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newLoopCmd())
	cmd.AddCommand(newInvokeCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, ErrAlreadyHandled) {
			os.Exit(1)
		}
		if jsonOutput {
			printJSON(os.Stdout, map[string]string{
				"error": err.Error(),
			})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// loadConfig loads the file named by --config, or the defaults when none is given.
func loadConfig() error {
	if err := config.LoadConfig(configFile); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("config file %s not found", configFile)
		}
		return err
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sessionactions",
		Run: func(cmd *cobra.Command, args []string) {
			if jsonOutput {
				printJSON(cmd.OutOrStdout(), map[string]string{
					"version":    server.Version,
					"apiVersion": server.ApiVersion,
				})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "sessionactions %s (api %s)\n", server.Version, server.ApiVersion)
			}
		},
	}
}

// printJSON prints data as indented JSON.
func printJSON(w io.Writer, data any) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(w, string(jsonData))
}
