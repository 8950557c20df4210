package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/meow-stack/stagefan/internal/api"
	"github.com/meow-stack/stagefan/internal/metrics"
	"github.com/meow-stack/stagefan/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recorded runs and metrics over HTTP",
	Long: `Start a read-only HTTP API:

  GET /healthz
  GET /runs?status=&pipeline=&limit=
  GET /runs/{id}
  GET /runs/{id}/summary
  GET /metrics`,
	RunE: runServe,
}

var serveListen string

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "listen address (default: metrics.listen from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	p, err := loadProject()
	if err != nil {
		return err
	}
	defer p.Close()

	st, err := store.Open(p.cfg, p.dir)
	if err != nil {
		return fmt.Errorf("opening run store: %w", err)
	}
	defer st.Close()

	addr := serveListen
	if addr == "" {
		addr = p.cfg.Metrics.Listen
	}

	m := metrics.New(nil)
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(st, m.Handler(), p.logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		p.logger.Info("serving", "addr", addr, "store", p.cfg.Store.Backend)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		p.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
