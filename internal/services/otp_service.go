package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/telemetry"
)

// OTPServiceImpl implements domain.OTPService using Redis persistence
type OTPServiceImpl struct {
	gateway     domain.MessagingGateway
	hasher      domain.CodeHasher
	locker      domain.Locker
	redisClient *redis.Client
	clock       domain.Clock
	logger      *zap.Logger
	tracer      trace.Tracer
	config      OTPConfig
	generate    func(length int) (string, error)
}

type OTPConfig struct {
	Length       int
	TTL          time.Duration
	MaxAttempts  int
	ResendWindow time.Duration
	LockTTL      time.Duration
	RetryDelay   time.Duration
}

// Hash fields of an otp:<phone> record
const (
	fieldCodeHash  = "code_hash"
	fieldIssuedAt  = "issued_at"
	fieldExpiresAt = "expires_at"
	fieldResendAt  = "resend_at"
	fieldAttempts  = "attempts_remaining"
)

// NewOTPService creates a new Redis-based OTP service
func NewOTPService(gateway domain.MessagingGateway, hasher domain.CodeHasher, locker domain.Locker, redisClient *redis.Client, clock domain.Clock, logger *zap.Logger, config OTPConfig) domain.OTPService {
	if config.Length <= 0 {
		config.Length = 6
	}
	if config.TTL <= 0 {
		config.TTL = 5 * time.Minute
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 5
	}
	if config.ResendWindow <= 0 {
		config.ResendWindow = 60 * time.Second
	}
	if config.LockTTL <= 0 {
		config.LockTTL = 10 * time.Second
	}
	if clock == nil {
		clock = domain.SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTPServiceImpl{
		gateway:     gateway,
		hasher:      hasher,
		locker:      locker,
		redisClient: redisClient,
		clock:       clock,
		logger:      logger,
		tracer:      telemetry.Tracer(),
		config:      config,
		generate:    generateSecureCode,
	}
}

func otpKey(phone string) string     { return fmt.Sprintf("otp:%s", phone) }
func otpLockKey(phone string) string { return fmt.Sprintf("otp:lock:%s", phone) }

// RequestChallenge implements domain.OTPService
func (s *OTPServiceImpl) RequestChallenge(ctx context.Context, phone string) (_ *domain.IssuedChallenge, err error) {
	ctx, span := s.tracer.Start(ctx, "otp.request_challenge")
	defer func() { endSpan(span, err) }()

	release, err := s.locker.Acquire(ctx, otpLockKey(phone), s.config.LockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			return nil, s.busyCooldown(ctx, phone)
		}
		return nil, fmt.Errorf("acquire otp lock: %w", err)
	}
	defer release()

	current, err := s.loadChallenge(ctx, phone)
	if err != nil {
		return nil, err
	}
	if wait := current.ResendIn(s.clock.Now()); wait > 0 {
		return nil, &domain.CooldownError{Remaining: wait}
	}

	code, err := s.generate(s.config.Length)
	if err != nil {
		return nil, fmt.Errorf("failed to generate OTP code: %w", err)
	}
	codeHash, err := s.hasher.Hash(code)
	if err != nil {
		return nil, fmt.Errorf("failed to hash OTP code: %w", err)
	}

	// The previous challenge stays in place until delivery succeeds.
	if err := s.deliver(ctx, phone, code); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	challenge := &domain.OTPChallenge{
		Phone:             phone,
		CodeHash:          codeHash,
		IssuedAt:          now,
		ExpiresAt:         now.Add(s.config.TTL),
		ResendAvailableAt: now.Add(s.config.ResendWindow),
		AttemptsRemaining: s.config.MaxAttempts,
	}
	if err := s.storeChallenge(ctx, challenge); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("otp.expires_at", challenge.ExpiresAt.Unix()))
	s.logger.Debug("otp challenge issued", zap.String("phone", logging.MaskPhone(phone)))
	return &domain.IssuedChallenge{
		Phone:             phone,
		ExpiresAt:         challenge.ExpiresAt,
		ResendAvailableAt: challenge.ResendAvailableAt,
		ResendIn:          challenge.ResendIn(s.clock.Now()),
	}, nil
}

// Verify implements domain.OTPService
func (s *OTPServiceImpl) Verify(ctx context.Context, phone, code string) (err error) {
	ctx, span := s.tracer.Start(ctx, "otp.verify")
	defer func() { endSpan(span, err) }()

	release, err := s.locker.Acquire(ctx, otpLockKey(phone), s.config.LockTTL)
	if err != nil {
		return fmt.Errorf("acquire otp lock: %w", err)
	}
	defer release()

	challenge, err := s.loadChallenge(ctx, phone)
	if err != nil {
		return err
	}
	if challenge == nil {
		return domain.ErrNoActiveChallenge
	}

	key := otpKey(phone)
	if challenge.Expired(s.clock.Now()) {
		if err := s.redisClient.Del(ctx, key).Err(); err != nil {
			s.logger.Warn("failed to delete expired otp challenge",
				zap.String("phone", logging.MaskPhone(phone)), zap.Error(err))
		}
		return domain.ErrExpired
	}
	// Exhaustion is checked before the code so a correct code cannot slip through.
	if challenge.AttemptsRemaining <= 0 {
		return domain.ErrAttemptsExhausted
	}

	if !s.hasher.Verify(challenge.CodeHash, code) {
		remaining, err := s.redisClient.HIncrBy(ctx, key, fieldAttempts, -1).Result()
		if err != nil {
			return fmt.Errorf("failed to decrement attempts: %w", err)
		}
		if remaining < 0 {
			remaining = 0
		}
		return &domain.InvalidCodeError{AttemptsRemaining: int(remaining)}
	}

	if err := s.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to discard OTP challenge: %w", err)
	}
	return nil
}

// ResendAvailableIn implements domain.OTPService
func (s *OTPServiceImpl) ResendAvailableIn(ctx context.Context, phone string) (time.Duration, error) {
	challenge, err := s.loadChallenge(ctx, phone)
	if err != nil {
		return 0, err
	}
	return challenge.ResendIn(s.clock.Now()), nil
}

// busyCooldown is the answer to a request that could not get the phone lock
// within the wait budget.
func (s *OTPServiceImpl) busyCooldown(ctx context.Context, phone string) error {
	remaining := time.Second
	if challenge, err := s.loadChallenge(ctx, phone); err == nil {
		if wait := challenge.ResendIn(s.clock.Now()); wait > 0 {
			remaining = wait
		}
	}
	return &domain.CooldownError{Remaining: remaining}
}

func (s *OTPServiceImpl) deliver(ctx context.Context, phone, code string) error {
	_, err := retryOnce(ctx, s.config.RetryDelay, isTransient, func() (struct{}, error) {
		return struct{}{}, s.gateway.SendOTP(ctx, phone, code)
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.logger.Warn("otp delivery failed", zap.String("phone", logging.MaskPhone(phone)), zap.Error(err))
	return fmt.Errorf("%w: %w", domain.ErrDeliveryFailed, err)
}

// storeChallenge replaces any existing challenge for the phone
func (s *OTPServiceImpl) storeChallenge(ctx context.Context, c *domain.OTPChallenge) error {
	key := otpKey(c.Phone)
	// Retained one TTL past expiry so Verify can still report ErrExpired.
	ttl := c.ExpiresAt.Sub(c.IssuedAt) + s.config.TTL
	if resend := c.ResendAvailableAt.Sub(c.IssuedAt); resend > ttl {
		ttl = resend
	}

	pipe := s.redisClient.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key,
		fieldCodeHash, c.CodeHash,
		fieldIssuedAt, c.IssuedAt.UnixNano(),
		fieldExpiresAt, c.ExpiresAt.UnixNano(),
		fieldResendAt, c.ResendAvailableAt.UnixNano(),
		fieldAttempts, c.AttemptsRemaining,
	)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store OTP in Redis: %w", err)
	}
	return nil
}

// loadChallenge returns the stored challenge or nil when there is none
func (s *OTPServiceImpl) loadChallenge(ctx context.Context, phone string) (*domain.OTPChallenge, error) {
	vals, err := s.redisClient.HGetAll(ctx, otpKey(phone)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get OTP from Redis: %w", err)
	}
	if len(vals) == 0 {
		return nil, nil
	}

	attempts, err := strconv.Atoi(vals[fieldAttempts])
	if err != nil {
		return nil, fmt.Errorf("corrupt OTP record for %s: %w", logging.MaskPhone(phone), err)
	}
	return &domain.OTPChallenge{
		Phone:             phone,
		CodeHash:          vals[fieldCodeHash],
		IssuedAt:          unixNano(vals[fieldIssuedAt]),
		ExpiresAt:         unixNano(vals[fieldExpiresAt]),
		ResendAvailableAt: unixNano(vals[fieldResendAt]),
		AttemptsRemaining: attempts,
	}, nil
}

func unixNano(v string) time.Time {
	n, _ := strconv.ParseInt(v, 10, 64)
	return time.Unix(0, n)
}

// generateSecureCode generates a cryptographically secure numeric code
func generateSecureCode(length int) (string, error) {
	digits := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("failed to generate random digit: %w", err)
		}
		digits[i] = byte('0' + num.Int64())
	}
	return string(digits), nil
}
