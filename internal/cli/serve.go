package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/javajack/xlform/internal/auth"
	"github.com/javajack/xlform/internal/cache"
	"github.com/javajack/xlform/internal/config"
	"github.com/javajack/xlform/internal/httpapi"
	"github.com/javajack/xlform/internal/metrics"
	"github.com/javajack/xlform/internal/service"
	"github.com/javajack/xlform/internal/store"
)

const shutdownTimeout = 10 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Run the HTTP API and the metrics endpoint",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			logger := serverLogger(cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger)
		},
	}
}

func serverLogger(cfg config.Config) *slog.Logger {
	level, _ := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Dev {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	st, err := store.Open(ctx, cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return WrapExitError(ExitCommandError, "open database", err)
	}
	defer st.Close()

	var workbooks service.Workbooks = st
	rdb, err := cache.New(ctx, cfg.Redis.URL)
	if err != nil {
		return WrapExitError(ExitCommandError, "connect redis", err)
	}
	if rdb != nil {
		defer rdb.Close()
		workbooks = cache.NewWorkbooks(st, rdb, cfg.Redis.CacheTTL, logger)
	}

	m := metrics.New()
	authSvc := auth.NewService(st, cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
	if cfg.Admin.Email != "" {
		created, err := authSvc.Bootstrap(ctx, cfg.Admin.Email, cfg.Admin.Password)
		if err != nil {
			return WrapExitError(ExitCommandError, "bootstrap admin", err)
		}
		if created {
			logger.Info("admin account created", "email", cfg.Admin.Email)
		}
	}

	h := httpapi.New(httpapi.Deps{
		Auth:        authSvc,
		Templates:   service.NewTemplates(st, workbooks, service.WithLogger(logger)),
		Instances:   service.NewInstances(st, workbooks, service.WithLogger(logger), service.WithObserver(m)),
		Health:      st,
		Latency:     m.Latency,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	apiSrv := &http.Server{Addr: cfg.Addr, Handler: h.Router(), ReadHeaderTimeout: 10 * time.Second}
	metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	for _, srv := range []*http.Server{apiSrv, metricsSrv} {
		g.Go(func() error {
			logger.Info("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(apiSrv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})
	return g.Wait()
}
