package cmd

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/echolens/echolens/internal/observability"
	"github.com/echolens/echolens/internal/server"
	"github.com/echolens/echolens/internal/store"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the report HTTP server",
	Long:  "Serve saved reports over a read-only HTTP API.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		host := cfg.Server.Host
		port := cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		serverLogger := observability.NewServerLogger(cfg.Server.LogLevel)
		defer serverLogger.Sync() // nolint:errcheck // stderr sync failures are benign

		st, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() // nolint:errcheck // best-effort cleanup

		srv := server.New(host, port, st, serverLogger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		serverLogger.Info("shutting down report server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			serverLogger.Warn("shutdown incomplete", zap.Error(err))
			return err
		}
		return <-errCh
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "interface to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 8601, "port to listen on")
	rootCmd.AddCommand(serveCmd)
}
