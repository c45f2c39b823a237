package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tansive/sessionactions/internal/action"
	"github.com/tansive/sessionactions/internal/common/logtrace"
	"github.com/tansive/sessionactions/internal/config"
	"github.com/tansive/sessionactions/internal/server"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the actions as an OpenWhisk action proxy",
		Long: `Serve the actions over HTTP using the OpenWhisk action proxy protocol
(POST /init, POST /run). Actions can also be invoked directly with
POST /actions/{name}.

Examples:
  sessionactions serve --config sessionactions.conf
  sessionactions serve --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfig(); err != nil {
				return err
			}
			if port != "" {
				if err := config.ValidatePort(port); err != nil {
					return fmt.Errorf("invalid --port: %w", err)
				}
				config.Config().ServerPort = port
			}
			initLogging()
			return runServer(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "Port to listen on, overriding the configuration")
	return cmd
}

func initLogging() {
	cfg := config.Config()
	logtrace.InitLogger(cfg.Log.Level, cfg.Log.Format)
	if cfg.Log.Trace {
		logtrace.SetTraceEnabled(true)
	}
}

func runServer(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	slog := log.With().Str("state", "init").Logger()

	serverErrors, shutdownServer, err := createServer(ctx)
	if err != nil {
		return fmt.Errorf("creating action proxy: %w", err)
	}

	// Channel to listen for an interrupt or terminate signal from the OS.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info().Str("signal", sig.String()).Msg("shutdown signal received")
		shutdownServer()
	case <-ctx.Done():
		shutdownServer()
	}

	slog.Info().Msg("server stopped")
	return nil
}

func createServer(ctx context.Context) (chan error, func(), error) {
	slog := log.With().Str("state", "init").Logger()
	s, err := server.CreateNewServer(action.DefaultRegistry())
	if err != nil {
		return nil, nil, fmt.Errorf("creating server: %w", err)
	}
	s.MountHandlers()

	srv := &http.Server{
		Addr:              ":" + config.Config().ServerPort,
		Handler:           s.Router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)

	go func() {
		slog.Info().Str("port", config.Config().ServerPort).Msg("action proxy started")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := func() {
		// Give outstanding requests 5 seconds to complete and initiate the shutdown.
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error().Err(err).Msg("could not stop server gracefully")
			if err := srv.Close(); err != nil {
				slog.Error().Err(err).Msg("could not stop server")
			}
		}
	}

	return serverErrors, shutdown, nil
}
