package mocks

import (
	"context"
	"sync"

	"github.com/Yashdhankecha/Milkat-post-sub001/domain"
)

// MockAuditLogger collects audit events in memory
type MockAuditLogger struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

// NewMockAuditLogger creates an empty MockAuditLogger
func NewMockAuditLogger() *MockAuditLogger {
	return &MockAuditLogger{}
}

// LogEvent records event
func (m *MockAuditLogger) LogEvent(ctx context.Context, event *domain.AuditEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *event)
	m.mu.Unlock()
	return nil
}

// Events returns the recorded events of the given types, all when none given
func (m *MockAuditLogger) Events(types ...domain.AuditEventType) []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(types) == 0 {
		return append([]domain.AuditEvent(nil), m.events...)
	}
	var out []domain.AuditEvent
	for _, e := range m.events {
		for _, t := range types {
			if e.EventType == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Compile-time interface compliance verification
var _ domain.AuditLogger = (*MockAuditLogger)(nil)
