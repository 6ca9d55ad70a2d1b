package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/telemetry"
)

type SessionConfig struct {
	TTL     time.Duration
	LockTTL time.Duration
}

// SessionServiceImpl implements domain.SessionService.
// SelectRole, SwitchRole and EndSession on one session serialize on a
// distributed lock; a switch drops the lock while it waits on the backend.
type SessionServiceImpl struct {
	sessions   domain.SessionRepository
	selected   domain.SelectedRoleStore
	resolver   domain.ProfileResolver
	locker     domain.Locker
	normalizer *domain.PhoneNormalizer
	clock      domain.Clock
	logger     *zap.Logger
	tracer     trace.Tracer
	tracker    *resolveTracker
	config     SessionConfig
	newID      func() string
}

// NewSessionService creates the session/role manager
func NewSessionService(
	sessions domain.SessionRepository,
	selected domain.SelectedRoleStore,
	resolver domain.ProfileResolver,
	locker domain.Locker,
	normalizer *domain.PhoneNormalizer,
	clock domain.Clock,
	logger *zap.Logger,
	config SessionConfig,
) *SessionServiceImpl {
	if config.TTL <= 0 {
		config.TTL = 7 * 24 * time.Hour
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
	return &SessionServiceImpl{
		sessions:   sessions,
		selected:   selected,
		resolver:   resolver,
		locker:     locker,
		normalizer: normalizer,
		clock:      clock,
		logger:     logger,
		tracer:     telemetry.Tracer(),
		tracker:    newResolveTracker(),
		config:     config,
		newID:      uuid.NewString,
	}
}

var _ domain.SessionService = (*SessionServiceImpl)(nil)

func sessionLockKey(sessionID string) string { return fmt.Sprintf("lock:session:%s", sessionID) }

// StartSession implements domain.SessionService
func (s *SessionServiceImpl) StartSession(ctx context.Context, phone string, roles []domain.RoleProfile) (*domain.Session, error) {
	if len(roles) == 0 {
		return nil, domain.ErrNoProfilesFound
	}
	now := s.clock.Now()
	session := domain.NewSession(s.newID(), phone, roles, now, now.Add(s.config.TTL))
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.persistSelection(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CurrentSession implements domain.SessionService. The selected role is
// restored from its marker; a marker naming a role the session no longer
// owns is dropped.
func (s *SessionServiceImpl) CurrentSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.restoreSelection(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SelectRole implements domain.SessionService. On ErrRoleNotOwned or
// ErrAccountSuspended (the chosen profile is flagged suspended) nothing changes.
func (s *SessionServiceImpl) SelectRole(ctx context.Context, sessionID string, role domain.Role) (*domain.Session, error) {
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.CurrentSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, p := range session.Roles {
		if p.Role == role && p.Suspended {
			return nil, domain.ErrAccountSuspended
		}
	}
	if err := session.Select(role); err != nil {
		return nil, err
	}
	if err := s.persistSelection(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// SwitchRole implements domain.SessionService. It clears the selection,
// re-resolves profiles and applies the fresh list unless a newer resolution
// or sign-out superseded it (ErrStaleResolution).
func (s *SessionServiceImpl) SwitchRole(ctx context.Context, sessionID string) (_ *domain.Session, err error) {
	ctx, span := s.tracer.Start(ctx, "session.switch_role")
	defer func() { endSpan(span, err) }()

	session, rctx, token, err := s.beginSwitch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer s.tracker.finish(sessionID, token)

	variations, err := s.normalizer.Variations(session.Phone)
	if err != nil {
		return nil, err
	}
	roles, err := s.resolver.Resolve(rctx, session.Phone, variations)
	if !s.tracker.current(sessionID, token) {
		return nil, domain.ErrStaleResolution
	}
	if err != nil {
		return nil, err
	}
	return s.applySwitch(ctx, sessionID, token, roles)
}

func (s *SessionServiceImpl) beginSwitch(ctx context.Context, sessionID string) (*domain.Session, context.Context, uint64, error) {
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, nil, 0, err
	}
	defer release()

	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, nil, 0, err
	}
	if err := s.selected.Clear(ctx, sessionID); err != nil {
		return nil, nil, 0, fmt.Errorf("failed to clear selected role: %w", err)
	}
	rctx, token := s.tracker.begin(ctx, sessionID)
	return session, rctx, token, nil
}

func (s *SessionServiceImpl) applySwitch(ctx context.Context, sessionID string, token uint64, roles []domain.RoleProfile) (*domain.Session, error) {
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	if !s.tracker.current(sessionID, token) {
		return nil, domain.ErrStaleResolution
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		s.logger.Info("session lost every profile, ending it", zap.String("session_id", sessionID))
		if err := s.endLocked(ctx, sessionID); err != nil {
			return nil, err
		}
		return nil, domain.ErrNoProfilesFound
	}

	session.ReplaceRoles(roles)
	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	// A role picked while the resolution was in flight survives if still owned.
	if err := s.restoreSelection(ctx, session); err != nil {
		return nil, err
	}
	if err := s.persistSelection(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// EndSession implements domain.SessionService
func (s *SessionServiceImpl) EndSession(ctx context.Context, sessionID string) error {
	release, err := s.lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer release()
	return s.endLocked(ctx, sessionID)
}

func (s *SessionServiceImpl) endLocked(ctx context.Context, sessionID string) error {
	s.tracker.abort(sessionID)
	if err := s.selected.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear selected role: %w", err)
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Resolving implements domain.SessionService
func (s *SessionServiceImpl) Resolving(sessionID string) bool {
	return s.tracker.inFlight(sessionID)
}

func (s *SessionServiceImpl) lock(ctx context.Context, sessionID string) (func(), error) {
	release, err := s.locker.Acquire(ctx, sessionLockKey(sessionID), s.config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	return release, nil
}

func (s *SessionServiceImpl) restoreSelection(ctx context.Context, session *domain.Session) error {
	role, ok, err := s.selected.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	if !ok {
		if len(session.Roles) == 1 {
			return session.Select(session.Roles[0].Role)
		}
		return nil
	}
	if err := session.Select(role); err != nil {
		if !errors.Is(err, domain.ErrRoleNotOwned) {
			return err
		}
		s.logger.Debug("dropping stale selected role",
			zap.String("session_id", session.ID), zap.String("role", string(role)))
		return s.selected.Clear(ctx, session.ID)
	}
	return nil
}

// persistSelection writes the marker for the session's selected role, if any
func (s *SessionServiceImpl) persistSelection(ctx context.Context, session *domain.Session) error {
	p, ok := session.SelectedRole()
	if !ok {
		return nil
	}
	if err := s.selected.Set(ctx, session.ID, p.Role, session.ExpiresAt.Sub(s.clock.Now())); err != nil {
		return fmt.Errorf("failed to persist selected role: %w", err)
	}
	return nil
}
