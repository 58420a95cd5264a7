package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dkeye/apod/internal/adapters/assets"
	router "github.com/dkeye/apod/internal/adapters/http"
	"github.com/dkeye/apod/internal/adapters/lan"
	"github.com/dkeye/apod/internal/adapters/picker"
	"github.com/dkeye/apod/internal/app"
	"github.com/dkeye/apod/internal/app/orch"
	"github.com/dkeye/apod/internal/app/segment"
	"github.com/dkeye/apod/internal/config"
	"github.com/dkeye/apod/internal/observability"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "apod",
		Short:         "LAN leader/follower relay and recording sink",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd.Flags())
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.Int("port", 8080, "listen port")
	f.String("save-dir", "", "directory for uploaded segments")
	f.String("config-env", "", "config file suffix, overrides CONFIG_ENV")
	f.String("tls-cert", "", "TLS certificate file")
	f.String("tls-key", "", "TLS private key file")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	return cmd
}

func run(parent context.Context, cfg *config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	closer, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer closer.Close()

	fs := afero.NewOsFs()
	if err := fs.MkdirAll(cfg.SaveDir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", cfg.SaveDir).Msg("cannot create save dir")
	}

	o := &orch.Orchestrator{
		Registry: app.NewRegistry(cfg.SaveDir, app.PolicyByName(cfg.BackpressurePolicy)),
		Segments: segment.NewWriter(fs, cfg.Upload.WriteAttempts, cfg.Upload.RetryDelay),
		Picker:   picker.New(cfg.Picker.Command),
		LANAddr:  lan.LocalIP(cfg.LAN.ProbeAddr),
	}
	store := assets.New(cfg.StaticPath)

	r := router.SetupRouter(ctx, cfg, o, store)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	scheme := "http"
	if cfg.TLS.Enabled() {
		pair, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return fmt.Errorf("load tls key pair: %w", err)
		}
		srv.TLSConfig = &tls.Config{Certificates: []tls.Certificate{pair}}
		scheme = "https"
	} else {
		log.Warn().Msg("TLS disabled, browsers will refuse camera access outside localhost")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("lan_ip", o.LANAddr).Str("save_dir", cfg.SaveDir).Msg("A-Pod server started")
		log.Info().Msgf("leader page: %s://127.0.0.1:%d/leader.html", scheme, cfg.Port)
		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			log.Error().Err(err).Msg("server error")
			return err
		}
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
