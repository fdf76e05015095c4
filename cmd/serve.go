package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/AlfredBerg/job-scout/internal/broker"
	"github.com/AlfredBerg/job-scout/internal/httpapi"
)

func init() {
	serveCmd.Flags().String("addr", ":8080", "Address to listen on.")
	cobra.CheckErr(viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr")))
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Accept batches over HTTP and stream events to the UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		hub := broker.NewHub()
		a, err := newApp(cfg, log, hub)
		if err != nil {
			return err
		}
		defer func() {
			if err := a.Close(); err != nil {
				log.Warn("shutdown", zap.Error(err))
			}
		}()
		a.events.Subscribe(broker.LogHandler{Log: log})

		deps := httpapi.Deps{
			Scheduler: a.sched,
			Events:    hub.ServeSSE,
			Defaults:  cfg.SearchDefaults,
			Log:       log.Named("http"),
		}
		if cfg.Cache.Enabled {
			deps.Cache = a.cache
		}
		srv := &http.Server{
			Addr:              cfg.Serve.Addr,
			Handler:           httpapi.NewMux(deps),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			log.Info("listening", zap.String("addr", srv.Addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			a.sched.Cancel()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		return g.Wait()
	},
}
