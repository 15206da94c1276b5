package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/yakoovad/team-roster/internal/api"
	"github.com/yakoovad/team-roster/internal/config"
	"github.com/yakoovad/team-roster/internal/repository"
	"github.com/yakoovad/team-roster/internal/roster"
	"github.com/yakoovad/team-roster/internal/schema"
	"github.com/yakoovad/team-roster/internal/service"
	"github.com/yakoovad/team-roster/pkg/logger"
	"go.uber.org/zap"
)

func newServeCmd(v *viper.Viper, loadConfig func(*cobra.Command) (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the roster web server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("addr", "", "listen address (overrides server.addr)")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := logger.NewLogger(logger.Options{Level: cfg.Log.Level, Development: cfg.Log.Development})
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer log.Sync()

	log.Info("starting application", zap.String("version", version))

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validator, err := schema.New()
	if err != nil {
		return err
	}

	sessions := repository.NewMemorySessionRepository(func() *roster.Workspace {
		return roster.NewWorkspace(validator)
	})

	go service.RunSessionSweeper(logger.WithLogger(ctx, log), sessions, cfg.Session.SweepInterval, cfg.Session.TTL)

	rosterService := service.NewRosterService(validator).WithSessionRepo(sessions)

	renderer, err := api.NewTemplateRenderer()
	if err != nil {
		return errors.Wrap(err, "parse templates")
	}

	e := echo.New()
	e.HideBanner = true

	handler := api.NewHandler(log, api.Options{
		SessionCookie: cfg.Session.Cookie,
		SecureCookie:  cfg.Server.SecureCookies,
		CSRF:          cfg.Server.CSRF,
	}).
		WithRosterService(rosterService).
		WithValidator(validator).
		WithRenderer(renderer).
		WithHealthChecker(api.MustNewHealthChecker(version, api.SessionStoreCheck(sessions)))

	handler.RegisterRoutes(e)

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", cfg.Server.Addr))
		if err := e.Start(cfg.Server.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", zap.Error(err))
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	return e.Shutdown(shutdownCtx)
}
