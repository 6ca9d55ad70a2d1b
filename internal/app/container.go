package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/config"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/infrastructure/audit"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/infrastructure/auth"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/infrastructure/database"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/infrastructure/notifications"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/infrastructure/repositories"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/services"
)

// Container holds all dependencies
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient *redis.Client
	Casbin      *auth.CasbinService

	// Repositories
	ProfileStore domain.ProfileStore
	SessionRepo  domain.SessionRepository
	SelectedRole domain.SelectedRoleStore

	// Services
	Clock       domain.Clock
	Normalizer  *domain.PhoneNormalizer
	TokenSvc    domain.TokenService
	Gateway     domain.MessagingGateway
	AuditLogger domain.AuditLogger
	OTPSvc      domain.OTPService
	Resolver    domain.ProfileResolver
	SessionSvc  domain.SessionService
	AuthzSvc    domain.AuthorizationService
	IdentitySvc domain.IdentityService
	PolicySvc   domain.PolicyService
}

// NewContainer creates and initializes all dependencies
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.Open(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return newContainer(ctx, cfg, logger, db)
}

func newContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger, db *gorm.DB) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, Clock: domain.SystemClock{}, DB: db}

	if err := database.AutoMigrate(db); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if err := c.initRedis(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	if err := c.initCasbin(); err != nil {
		_ = c.Close()
		return nil, err
	}
	c.initRepositories()
	c.initServices()
	return c, nil
}

func (c *Container) initRedis(ctx context.Context) error {
	rdb := database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	c.RedisClient = rdb.Client
	if err := rdb.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (c *Container) initCasbin() error {
	cas, err := auth.NewCasbinService(c.DB, c.Config.CasbinModelPath)
	if err != nil {
		return err
	}
	if err := cas.SeedDefaults(c.Logger); err != nil {
		return err
	}
	c.Casbin = cas
	return nil
}

func (c *Container) initRepositories() {
	c.ProfileStore = repositories.NewBreakerProfileStore(
		repositories.NewProfileRepository(c.DB),
		repositories.BreakerSettings{
			MaxFailures: c.Config.BackendBreakerMaxFailures,
			Interval:    c.Config.BackendBreakerInterval,
			Timeout:     c.Config.BackendBreakerTimeout,
		},
		c.Logger,
	)
	c.SessionRepo = repositories.NewSessionRepository(c.RedisClient, c.Clock)
	c.SelectedRole = repositories.NewSelectedRoleRepository(c.RedisClient)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.Normalizer = domain.NewPhoneNormalizer(cfg.PhoneCountryCode, cfg.PhoneNationalLength, cfg.PhoneMinDigits)
	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.SessionTTL, c.Clock)
	c.AuditLogger = audit.NewZapAuditLogger(c.Logger)

	if cfg.TwilioSID != "" && cfg.TwilioToken != "" {
		c.Gateway = notifications.NewTwilioGateway(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Logger)
	} else {
		c.Logger.Warn("twilio not configured, OTP codes are logged instead of sent")
		c.Gateway = notifications.NewLogGateway(c.Logger)
	}

	c.OTPSvc = services.NewOTPService(
		c.Gateway,
		auth.NewCodeHasher(0),
		database.NewRedisLocker(c.RedisClient, cfg.OTP_LockWait),
		c.RedisClient,
		c.Clock,
		c.Logger,
		services.OTPConfig{
			Length:       cfg.OTP_Length,
			TTL:          cfg.OTP_TTL,
			MaxAttempts:  cfg.OTP_MaxAttempts,
			ResendWindow: cfg.OTP_ResendWindow,
			LockTTL:      cfg.OTP_LockTTL,
			RetryDelay:   cfg.BackendRetryInitial,
		},
	)

	c.Resolver = services.NewProfileResolver(c.ProfileStore, cfg.BackendRetryInitial, c.Logger)
	c.SessionSvc = services.NewSessionService(
		c.SessionRepo,
		c.SelectedRole,
		c.Resolver,
		database.NewRedisLocker(c.RedisClient, cfg.SessionLockWait),
		c.Normalizer,
		c.Clock,
		c.Logger,
		services.SessionConfig{TTL: cfg.SessionTTL, LockTTL: cfg.SessionLockTTL},
	)
	c.AuthzSvc = services.NewAuthorizationService(c.SessionSvc, c.ProfileStore, cfg.BackendRetryInitial, c.Logger)
	c.IdentitySvc = services.NewIdentityService(
		c.Normalizer,
		c.OTPSvc,
		c.Resolver,
		c.SessionSvc,
		c.AuthzSvc,
		c.TokenSvc,
		c.AuditLogger,
		c.Logger,
	)
	c.PolicySvc = services.NewPolicyService(c.Casbin.E)
}

// Close closes all connections
func (c *Container) Close() error {
	var errs []error
	if c.RedisClient != nil {
		errs = append(errs, c.RedisClient.Close())
	}
	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			errs = append(errs, err)
		} else {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}
