package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// BreakerSettings configures the circuit around the profile backend
type BreakerSettings struct {
	MaxFailures uint32
	Interval    time.Duration
	Timeout     time.Duration
}

// BreakerProfileStore guards a domain.ProfileStore with a circuit breaker.
// Backend failures and an open circuit surface as domain.ErrBackendUnavailable.
type BreakerProfileStore struct {
	next domain.ProfileStore
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerProfileStore wraps next
func NewBreakerProfileStore(next domain.ProfileStore, s BreakerSettings, logger *zap.Logger) *BreakerProfileStore {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	st := gobreaker.Settings{
		Name:        "profile-store",
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}
	return &BreakerProfileStore{next: next, cb: gobreaker.NewCircuitBreaker(st)}
}

// FindProfilesByPhoneVariants implements domain.ProfileStore
func (b *BreakerProfileStore) FindProfilesByPhoneVariants(ctx context.Context, variants []string) ([]domain.RoleProfile, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.FindProfilesByPhoneVariants(ctx, variants)
	})
	if err != nil {
		return nil, backendError(ctx, err)
	}
	profiles, _ := res.([]domain.RoleProfile)
	return profiles, nil
}

// IsSuspended implements domain.ProfileStore
func (b *BreakerProfileStore) IsSuspended(ctx context.Context, accountID string) (bool, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.IsSuspended(ctx, accountID)
	})
	if err != nil {
		return false, backendError(ctx, err)
	}
	suspended, _ := res.(bool)
	return suspended, nil
}

// State exposes the breaker state for health reporting
func (b *BreakerProfileStore) State() gobreaker.State {
	return b.cb.State()
}

func backendError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return err
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit %v", domain.ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%w: %v", domain.ErrBackendUnavailable, err)
}

var _ domain.ProfileStore = (*BreakerProfileStore)(nil)
