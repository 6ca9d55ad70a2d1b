package services

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/logging"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/telemetry"
)

// ProfileResolverImpl implements domain.ProfileResolver over a ProfileStore
type ProfileResolverImpl struct {
	store      domain.ProfileStore
	retryDelay time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewProfileResolver creates a resolver. Backend unavailability is retried once.
func NewProfileResolver(store domain.ProfileStore, retryDelay time.Duration, logger *zap.Logger) domain.ProfileResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileResolverImpl{
		store:      store,
		retryDelay: retryDelay,
		logger:     logger,
		tracer:     telemetry.Tracer(),
	}
}

// Resolve queries every variation in one lookup and returns at most one
// profile per role, ordered by role rank.
func (r *ProfileResolverImpl) Resolve(ctx context.Context, canonicalPhone string, variations []string) (_ []domain.RoleProfile, err error) {
	ctx, span := r.tracer.Start(ctx, "profiles.resolve",
		trace.WithAttributes(attribute.Int("phone.variations", len(variations))))
	defer func() { endSpan(span, err) }()

	variants := withCanonical(canonicalPhone, variations)
	found, err := retryOnce(ctx, r.retryDelay, isBackendUnavailable, func() ([]domain.RoleProfile, error) {
		return r.store.FindProfilesByPhoneVariants(ctx, variants)
	})
	if err != nil {
		r.logger.Warn("profile resolution failed",
			zap.String("phone", logging.MaskPhone(canonicalPhone)), zap.Error(err))
		return nil, err
	}

	profiles := dedupeByRole(found, canonicalPhone)
	span.SetAttributes(attribute.Int("profiles.count", len(profiles)))
	return profiles, nil
}

func withCanonical(canonical string, variations []string) []string {
	for _, v := range variations {
		if v == canonical {
			return variations
		}
	}
	return append([]string{canonical}, variations...)
}

// dedupeByRole keeps one profile per role. A profile stored under the
// canonical phone wins over one stored under another variation.
func dedupeByRole(profiles []domain.RoleProfile, canonical string) []domain.RoleProfile {
	index := make(map[domain.Role]int, len(profiles))
	out := make([]domain.RoleProfile, 0, len(profiles))
	for _, p := range profiles {
		i, seen := index[p.Role]
		if !seen {
			index[p.Role] = len(out)
			out = append(out, p)
			continue
		}
		if out[i].Phone != canonical && p.Phone == canonical {
			out[i] = p
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Role.Rank() < out[b].Role.Rank()
	})
	return out
}
