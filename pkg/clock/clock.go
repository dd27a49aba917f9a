package clock

import (
	"sync"
	"time"
)

// Clock is the time source used by anything that persists or compares timestamps.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func New() Clock {
	return RealClock{}
}

// Now returns the current time in UTC.
func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// MockClock is a settable clock for tests.
type MockClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewMock(start time.Time) *MockClock {
	return &MockClock{current: start.UTC()}
}

func (m *MockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *MockClock) Set(t time.Time) {
	m.mu.Lock()
	m.current = t.UTC()
	m.mu.Unlock()
}

func (m *MockClock) Advance(d time.Duration) {
	m.mu.Lock()
	m.current = m.current.Add(d)
	m.mu.Unlock()
}
