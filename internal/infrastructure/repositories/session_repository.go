package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// SessionRepositoryImpl implements domain.SessionRepository using Redis
type SessionRepositoryImpl struct {
	client *redis.Client
	clock  domain.Clock
	prefix string
}

// sessionRecord is the stored shape of a session. The selected role lives in
// its own marker key.
type sessionRecord struct {
	ID        string               `json:"id"`
	Phone     string               `json:"phone"`
	Roles     []domain.RoleProfile `json:"roles"`
	CreatedAt time.Time            `json:"created_at"`
	ExpiresAt time.Time            `json:"expires_at"`
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *redis.Client, clock domain.Clock) domain.SessionRepository {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &SessionRepositoryImpl{
		client: client,
		clock:  clock,
		prefix: "session:",
	}
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	data, ttl, err := r.encode(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+session.ID, data, ttl).Err()
}

// Update implements domain.SessionRepository. A session deleted in the
// meantime is not recreated.
func (r *SessionRepositoryImpl) Update(ctx context.Context, session *domain.Session) error {
	data, ttl, err := r.encode(session)
	if err != nil {
		return err
	}
	ok, err := r.client.SetXX(ctx, r.prefix+session.ID, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

// FindByID implements domain.SessionRepository
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := r.prefix + sessionID
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var rec sessionRecord
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	session := &domain.Session{
		ID:        rec.ID,
		Phone:     rec.Phone,
		Roles:     rec.Roles,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}
	if session.Expired(r.clock.Now()) {
		r.client.Del(ctx, key)
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Delete implements domain.SessionRepository
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.prefix+sessionID).Err()
}

func (r *SessionRepositoryImpl) encode(session *domain.Session) ([]byte, time.Duration, error) {
	ttl := session.ExpiresAt.Sub(r.clock.Now())
	if ttl <= 0 {
		return nil, 0, domain.ErrSessionExpired
	}
	data, err := json.Marshal(sessionRecord{
		ID:        session.ID,
		Phone:     session.Phone,
		Roles:     session.Roles,
		CreatedAt: session.CreatedAt,
		ExpiresAt: session.ExpiresAt,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal session: %w", err)
	}
	return data, ttl, nil
}

// SelectedRoleRepositoryImpl implements domain.SelectedRoleStore using Redis
type SelectedRoleRepositoryImpl struct {
	client *redis.Client
}

// NewSelectedRoleRepository creates the selected role marker store
func NewSelectedRoleRepository(client *redis.Client) domain.SelectedRoleStore {
	return &SelectedRoleRepositoryImpl{client: client}
}

func selectedRoleKey(sessionID string) string {
	return fmt.Sprintf("session:%s:selected_role", sessionID)
}

// Get implements domain.SelectedRoleStore
func (r *SelectedRoleRepositoryImpl) Get(ctx context.Context, sessionID string) (domain.Role, bool, error) {
	v, err := r.client.Get(ctx, selectedRoleKey(sessionID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read selected role: %w", err)
	}
	return domain.Role(v), true, nil
}

// Set implements domain.SelectedRoleStore
func (r *SelectedRoleRepositoryImpl) Set(ctx context.Context, sessionID string, role domain.Role, ttl time.Duration) error {
	if ttl <= 0 {
		return domain.ErrSessionExpired
	}
	return r.client.Set(ctx, selectedRoleKey(sessionID), string(role), ttl).Err()
}

// Clear implements domain.SelectedRoleStore
func (r *SelectedRoleRepositoryImpl) Clear(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, selectedRoleKey(sessionID)).Err()
}
