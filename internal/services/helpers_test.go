package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/infrastructure/auth"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/infrastructure/database"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/infrastructure/repositories"
	"github.com/Yashdhankecha/Milkat-post-sub001/internal/mocks"
)

const testPhone = "+919876543210"

var testEpoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// createTestContext creates a context with timeout for testing
func createTestContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// setupTestRedis creates an in-memory Redis instance for testing
func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func testOTPConfig() OTPConfig {
	return OTPConfig{
		Length:       6,
		TTL:          5 * time.Minute,
		MaxAttempts:  5,
		ResendWindow: 60 * time.Second,
		LockTTL:      time.Second,
		RetryDelay:   time.Millisecond,
	}
}

type otpFixture struct {
	svc     *OTPServiceImpl
	gateway *mocks.MockMessagingGateway
	clock   *mocks.FakeClock
	mr      *miniredis.Miniredis
	client  *redis.Client
}

func newOTPFixture(t *testing.T) *otpFixture {
	t.Helper()
	mr, client := setupTestRedis(t)
	gateway := mocks.NewMockMessagingGateway()
	clock := mocks.NewFakeClock(testEpoch)
	svc := NewOTPService(
		gateway,
		auth.NewCodeHasher(bcrypt.MinCost),
		database.NewRedisLocker(client, 0),
		client,
		clock,
		nil,
		testOTPConfig(),
	).(*OTPServiceImpl)
	return &otpFixture{svc: svc, gateway: gateway, clock: clock, mr: mr, client: client}
}

// fixedCode makes the service issue code for every challenge
func (f *otpFixture) fixedCode(code string) {
	f.svc.generate = func(int) (string, error) { return code, nil }
}

type sessionFixture struct {
	svc      *SessionServiceImpl
	resolver *mocks.MockProfileResolver
	selected domain.SelectedRoleStore
	clock    *mocks.FakeClock
	mr       *miniredis.Miniredis
	client   *redis.Client
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	mr, client := setupTestRedis(t)
	clock := mocks.NewFakeClock(testEpoch)
	resolver := mocks.NewMockProfileResolver()
	selected := repositories.NewSelectedRoleRepository(client)
	svc := NewSessionService(
		repositories.NewSessionRepository(client, clock),
		selected,
		resolver,
		database.NewRedisLocker(client, 500*time.Millisecond),
		domain.NewPhoneNormalizer("91", 10, 7),
		clock,
		nil,
		SessionConfig{TTL: time.Hour, LockTTL: time.Second},
	)
	return &sessionFixture{svc: svc, resolver: resolver, selected: selected, clock: clock, mr: mr, client: client}
}

func profile(role domain.Role, phone string) domain.RoleProfile {
	return domain.RoleProfile{
		Role:        role,
		ProfileID:   string(role) + "-1",
		AccountID:   "acc-1",
		DisplayName: "Asha " + string(role),
		Phone:       phone,
	}
}

func brokerAndOwner() []domain.RoleProfile {
	return []domain.RoleProfile{
		profile(domain.RoleBroker, testPhone),
		profile(domain.RoleSocietyOwner, testPhone),
	}
}
