package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/internal/config"
	httpx "github.com/Yashdhankecha/Milkat-post-sub001/internal/http"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/http/handlers"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/http/middleware"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/services"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Run wires the service and serves HTTP until SIGINT or SIGTERM
func Run(cfg *config.Config) error {
	logger, err := logging.New(logging.Config{Development: cfg.LogDevelopment})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.New(ctx, telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.TelemetryEndpoint,
		Insecure:    cfg.TelemetryInsecure,
	}, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}

	c, err := NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("closing connections", zap.Error(err))
		}
	}()

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}
	router := httpx.BuildRouter(
		httpx.RouterConfig{
			ServiceName:      cfg.ServiceName,
			AllowOrigins:     cfg.CORSAllowOrigins,
			OTPRatePerMinute: cfg.OTPRatePerMinute,
		},
		handlers.NewAuthHandlers(c.IdentitySvc, logger),
		handlers.NewPolicyHandlers(c.PolicySvc),
		middleware.NewAuthMW(c.TokenSvc, c.SessionRepo),
		middleware.NewRoleGuard(c.IdentitySvc, services.NewCasbinEnforcerWrapper(c.Casbin.E), logger),
		logger,
	)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Warn("telemetry shutdown", zap.Error(err))
	}
	return nil
}
