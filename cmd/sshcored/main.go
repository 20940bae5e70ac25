// Command sshcored runs the SSH session coordinator: it exposes the signal
// bus over a WebSocket, dispatches exec/stream/write/key requests, and
// relays SSH connect/auth traffic to whichever host the caller names.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/websoft9/sshcore/internal/config"
	"github.com/websoft9/sshcore/internal/dispatcher"
	"github.com/websoft9/sshcore/internal/sshkey"
	"github.com/websoft9/sshcore/internal/transport/wsbus"
)

func main() {
	root := &cobra.Command{
		Use:   "sshcored",
		Short: "SSH session coordinator for the mobile client backend",
	}
	root.AddCommand(serveCmd(), genKeyCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the WebSocket transport and request dispatcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	setupLogger(cfg)
	log.Info().Str("env", cfg.Env).Str("addr", cfg.WSBindAddr).Msg("starting sshcored")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux := http.NewServeMux()
	mux.HandleFunc(cfg.WSPath, wsbus.Handler(log.Logger, func(b *wsbus.Bus) {
		connCtx, connCancel := context.WithCancel(ctx)
		defer connCancel()
		d := dispatcher.NewWithAuthTimeout(connCtx, b, log.Logger, cfg.ConnRatePerSec, cfg.ConnBurst, cfg.AuthPromptTimeout)
		go b.Run(connCtx)
		d.Run(connCtx)
	}))

	httpSrv := &http.Server{Addr: cfg.WSBindAddr, Handler: mux}

	go func() {
		log.Info().Str("addr", cfg.WSBindAddr).Str("path", cfg.WSPath).Msg("websocket transport listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("websocket transport error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("exited")
	return nil
}

func genKeyCmd() *cobra.Command {
	var comment string
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate an ed25519 key pair and print the PEM and authorized_keys line",
		RunE: func(cmd *cobra.Command, args []string) error {
			pemStr, err := sshkey.Generate(comment)
			if err != nil {
				return fmt.Errorf("generate key: %w", err)
			}
			line, err := sshkey.DeriveAuthorizedKey(pemStr, nil, comment)
			if err != nil {
				return fmt.Errorf("derive authorized_keys line: %w", err)
			}
			fmt.Println(pemStr)
			fmt.Println(line)
			return nil
		},
	}
	cmd.Flags().StringVar(&comment, "comment", "", "comment appended to the authorized_keys line")
	return cmd
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Env == "development" && cfg.LogFormat == "pretty" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

