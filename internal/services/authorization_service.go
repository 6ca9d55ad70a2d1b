package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// AuthorizationServiceImpl binds the route guard to live session state
type AuthorizationServiceImpl struct {
	sessions   domain.SessionService
	store      domain.ProfileStore
	retryDelay time.Duration
	logger     *zap.Logger
}

// NewAuthorizationService creates the route authorization guard
func NewAuthorizationService(sessions domain.SessionService, store domain.ProfileStore, retryDelay time.Duration, logger *zap.Logger) domain.AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationServiceImpl{
		sessions:   sessions,
		store:      store,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Authorize implements domain.AuthorizationService. A missing or expired
// session is a decision (UNAUTHENTICATED), not an error.
func (a *AuthorizationServiceImpl) Authorize(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error) {
	if sessionID == "" {
		return domain.Decide(domain.GuardInputFor(nil, false, false, required)), nil
	}
	if a.sessions.Resolving(sessionID) {
		return domain.GuardDecision{State: domain.GuardLoading}, nil
	}

	session, err := a.sessions.CurrentSession(ctx, sessionID)
	if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrSessionExpired) {
		return domain.Decide(domain.GuardInputFor(nil, false, false, required)), nil
	}
	if err != nil {
		return domain.GuardDecision{}, err
	}

	suspended, err := a.suspended(ctx, session)
	if err != nil {
		return domain.GuardDecision{}, err
	}
	return domain.Decide(domain.GuardInputFor(session, false, suspended, required)), nil
}

// suspended reports whether any profile or backing account is suspended
func (a *AuthorizationServiceImpl) suspended(ctx context.Context, session *domain.Session) (bool, error) {
	for _, p := range session.Roles {
		if p.Suspended {
			return true, nil
		}
	}
	for _, id := range session.AccountIDs() {
		suspended, err := retryOnce(ctx, a.retryDelay, isBackendUnavailable, func() (bool, error) {
			return a.store.IsSuspended(ctx, id)
		})
		if err != nil {
			a.logger.Warn("suspension lookup failed", zap.String("account_id", id), zap.Error(err))
			return false, err
		}
		if suspended {
			return true, nil
		}
	}
	return false, nil
}
