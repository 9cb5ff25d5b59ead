package commands

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
	"github.com/spf13/viper"

	"github.com/prevostgo/prevostgo/internal/config"
	"github.com/prevostgo/prevostgo/internal/logger"
	"github.com/prevostgo/prevostgo/internal/scheduler"
	"github.com/prevostgo/prevostgo/internal/server"
	"github.com/prevostgo/prevostgo/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the scrape trigger API and the periodic re-scrape job",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	defaults := config.Default()

	flags := serveCmd.Flags()
	flags.String("addr", defaults.HTTPAddr, "HTTP listen address")
	flags.Duration("interval", defaults.ScrapeInterval, "re-scrape interval (0 disables the cron job)")

	_ = viper.BindPFlag("http_addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("scrape_interval", flags.Lookup("interval"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("serve requires a database: set --database-url or DATABASE_URL")
	}

	st, cleanup, err := openStore(cfg, false)
	if err != nil {
		return err
	}
	defer cleanup()

	runner, err := buildRunner(cfg, st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ScrapeInterval > 0 {
		sched := scheduler.New(runner, cfg.ScrapeInterval)
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	var pinger server.Pinger
	if pg, ok := st.(*store.Postgres); ok {
		pinger = pg
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.New(runner, pinger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
