package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/logging"
)

// IdentityServiceImpl implements domain.IdentityService. It normalizes raw
// phones and drives the OTP, profile and session managers for the HTTP layer.
type IdentityServiceImpl struct {
	normalizer *domain.PhoneNormalizer
	otp        domain.OTPService
	resolver   domain.ProfileResolver
	sessions   domain.SessionService
	authz      domain.AuthorizationService
	tokens     domain.TokenService
	audit      domain.AuditLogger
	logger     *zap.Logger
}

// NewIdentityService creates the identity facade
func NewIdentityService(
	normalizer *domain.PhoneNormalizer,
	otp domain.OTPService,
	resolver domain.ProfileResolver,
	sessions domain.SessionService,
	authz domain.AuthorizationService,
	tokens domain.TokenService,
	audit domain.AuditLogger,
	logger *zap.Logger,
) domain.IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityServiceImpl{
		normalizer: normalizer,
		otp:        otp,
		resolver:   resolver,
		sessions:   sessions,
		authz:      authz,
		tokens:     tokens,
		audit:      audit,
		logger:     logger,
	}
}

// RequestOTP implements domain.IdentityService
func (s *IdentityServiceImpl) RequestOTP(ctx context.Context, rawPhone string) (*domain.IssuedChallenge, error) {
	phone, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	issued, err := s.otp.RequestChallenge(ctx, phone)
	if err != nil {
		event := domain.NewAuditEvent(domain.OTPRequestFailureEvent, phone).WithError(err)
		var cooldown *domain.CooldownError
		if errors.As(err, &cooldown) {
			event.WithMetadata("resend_in_seconds", cooldown.Seconds())
		}
		s.logAudit(ctx, event)
		return nil, err
	}

	s.logAudit(ctx, domain.NewAuditEvent(domain.OTPRequestEvent, phone).
		WithMetadata("expires_at", issued.ExpiresAt.Unix()))
	return issued, nil
}

// ResendAvailableIn implements domain.IdentityService
func (s *IdentityServiceImpl) ResendAvailableIn(ctx context.Context, rawPhone string) (time.Duration, error) {
	phone, err := s.normalizer.Normalize(rawPhone)
	if err != nil {
		return 0, err
	}
	return s.otp.ResendAvailableIn(ctx, phone)
}

// VerifyOTP implements domain.IdentityService. A phone with no profiles
// verifies successfully but gets no session.
func (s *IdentityServiceImpl) VerifyOTP(ctx context.Context, rawPhone, code string) (*domain.VerifyResult, error) {
	phone, err := s.normalizer.Parse(rawPhone)
	if err != nil {
		return nil, err
	}

	if err := s.otp.Verify(ctx, phone.Canonical, code); err != nil {
		event := domain.NewAuditEvent(domain.OTPVerifyFailureEvent, phone.Canonical).WithError(err)
		var invalid *domain.InvalidCodeError
		if errors.As(err, &invalid) {
			event.WithMetadata("attempts_remaining", invalid.AttemptsRemaining)
		}
		s.logAudit(ctx, event)
		return nil, err
	}
	s.logAudit(ctx, domain.NewAuditEvent(domain.OTPVerifyEvent, phone.Canonical))

	roles, err := s.resolver.Resolve(ctx, phone.Canonical, phone.Variations)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.StartSession(ctx, phone.Canonical, roles)
	if errors.Is(err, domain.ErrNoProfilesFound) {
		s.logAudit(ctx, domain.NewAuditEvent(domain.OnboardingEvent, phone.Canonical))
		return &domain.VerifyResult{Phone: phone.Canonical, NeedsOnboarding: true}, nil
	}
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.GenerateSessionToken(session.ID, session.Phone)
	if err != nil {
		if endErr := s.sessions.EndSession(ctx, session.ID); endErr != nil {
			s.logger.Warn("failed to end session after token error",
				zap.String("session_id", session.ID), zap.Error(endErr))
		}
		return nil, err
	}

	event := domain.NewAuditEvent(domain.SessionStartEvent, phone.Canonical).
		WithSession(session.ID).
		WithMetadata("roles", len(session.Roles))
	if p, ok := session.SelectedRole(); ok {
		event.WithRole(p.Role)
	}
	s.logAudit(ctx, event)

	return &domain.VerifyResult{
		Phone:       phone.Canonical,
		Session:     session,
		AccessToken: token,
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
	}, nil
}

// CurrentSession implements domain.IdentityService
func (s *IdentityServiceImpl) CurrentSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.sessions.CurrentSession(ctx, sessionID)
}

// SelectRole implements domain.IdentityService
func (s *IdentityServiceImpl) SelectRole(ctx context.Context, sessionID string, role domain.Role) (*domain.Session, error) {
	session, err := s.sessions.SelectRole(ctx, sessionID, role)
	if err != nil {
		s.logAudit(ctx, domain.NewAuditEvent(domain.RoleSelectEvent, "").
			WithSession(sessionID).WithRole(role).WithError(err))
		return nil, err
	}
	s.logAudit(ctx, domain.NewAuditEvent(domain.RoleSelectEvent, session.Phone).
		WithSession(sessionID).WithRole(role))
	return session, nil
}

// SwitchRole implements domain.IdentityService
func (s *IdentityServiceImpl) SwitchRole(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, err := s.sessions.SwitchRole(ctx, sessionID)
	if err != nil {
		s.logAudit(ctx, domain.NewAuditEvent(domain.RoleSwitchEvent, "").
			WithSession(sessionID).WithError(err))
		return nil, err
	}
	s.logAudit(ctx, domain.NewAuditEvent(domain.RoleSwitchEvent, session.Phone).
		WithSession(sessionID).
		WithMetadata("roles", len(session.Roles)))
	return session, nil
}

// SignOut implements domain.IdentityService. Outstanding OTP challenges are
// left alone.
func (s *IdentityServiceImpl) SignOut(ctx context.Context, sessionID string) error {
	if err := s.sessions.EndSession(ctx, sessionID); err != nil {
		return err
	}
	s.logAudit(ctx, domain.NewAuditEvent(domain.SessionEndEvent, "").WithSession(sessionID))
	return nil
}

// Authorize implements domain.IdentityService
func (s *IdentityServiceImpl) Authorize(ctx context.Context, sessionID string, required ...domain.Role) (domain.GuardDecision, error) {
	decision, err := s.authz.Authorize(ctx, sessionID, required...)
	if err != nil {
		return decision, err
	}
	if decision.State != domain.GuardAuthorized && decision.State != domain.GuardLoading {
		s.logAudit(ctx, domain.NewAuditEvent(domain.AccessDecisionEvent, "").
			WithSession(sessionID).
			WithError(nil).
			WithMetadata("state", string(decision.State)).
			WithMetadata("redirect", decision.Redirect))
	}
	return decision, nil
}

func (s *IdentityServiceImpl) logAudit(ctx context.Context, event *domain.AuditEvent) {
	if s.audit == nil {
		return
	}
	if err := s.audit.LogEvent(ctx, event); err != nil {
		s.logger.Warn("audit event dropped",
			zap.String("event", string(event.EventType)),
			zap.String("phone", logging.MaskPhone(event.Phone)),
			zap.Error(err))
	}
}
