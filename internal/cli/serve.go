package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/CageChen/dotwalk/internal/handler"
	"github.com/CageChen/dotwalk/internal/watcher"
)

// newServeCmd creates the 'serve' command.
func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		Long: `Serve the configured folders over HTTP.

Example:
  dotwalk serve --path ~/projects/site --port 9000
  dotwalk serve --show-dot --log-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(ctx context.Context) error {
	cfg, log := a.cfg, a.log

	log.Info().Str("config", cfg.GetConfigFilePath()).Bool("showDot", cfg.ShowDot).Msg("dotwalk starting")
	for _, f := range cfg.Folders {
		log.Info().Str("alias", f.Alias).Str("path", f.Path).Str("ref", f.GitRef).Msg("serving folder")
	}

	wsHandler := handler.NewWSHandler(cfg.ShowDot, log)

	// Setup file watcher if enabled
	if cfg.Watch {
		w, err := watcher.New(cfg, log)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create file watcher")
		} else {
			w.OnChange(wsHandler.OnFileChange)
			if err := w.Start(); err != nil {
				log.Warn().Err(err).Msg("failed to start file watcher")
			}
			defer func() { _ = w.Stop() }()
			log.Info().Msg("file watcher enabled")
		}
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler.NewRouter(cfg, wsHandler, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", fmt.Sprintf("http://localhost:%d", cfg.Port)).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
