package metrics

import (
	"maps"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters, keyed by outcome label.
type Snapshot struct {
	Registrations       map[string]uint64
	Logins              map[string]uint64
	SessionResolutions  map[string]uint64
	ProfileUpdates      map[string]uint64
	RateLimited         map[string]uint64
	HashDurationCount   uint64
	HashDurationTotalNs int64
}

// InMemoryRecorder stores metrics in memory. It backs the /metrics endpoint
// and tests.
type InMemoryRecorder struct {
	mu                 sync.Mutex
	registrations      map[string]uint64
	logins             map[string]uint64
	sessionResolutions map[string]uint64
	profileUpdates     map[string]uint64
	rateLimited        map[string]uint64

	hashDurationCount   uint64
	hashDurationTotalNs int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		registrations:      make(map[string]uint64),
		logins:             make(map[string]uint64),
		sessionResolutions: make(map[string]uint64),
		profileUpdates:     make(map[string]uint64),
		rateLimited:        make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		Registrations:       maps.Clone(m.registrations),
		Logins:              maps.Clone(m.logins),
		SessionResolutions:  maps.Clone(m.sessionResolutions),
		ProfileUpdates:      maps.Clone(m.profileUpdates),
		RateLimited:         maps.Clone(m.rateLimited),
		HashDurationCount:   atomic.LoadUint64(&m.hashDurationCount),
		HashDurationTotalNs: atomic.LoadInt64(&m.hashDurationTotalNs),
	}
}

func (m *InMemoryRecorder) inc(counter map[string]uint64, label string) {
	m.mu.Lock()
	counter[label]++
	m.mu.Unlock()
}

// IncRegistration counts a registration attempt by outcome.
func (m *InMemoryRecorder) IncRegistration(outcome string) {
	m.inc(m.registrations, outcome)
}

// IncLogin counts a login attempt by outcome.
func (m *InMemoryRecorder) IncLogin(outcome string) {
	m.inc(m.logins, outcome)
}

// IncSessionResolution counts a session resolution by outcome.
func (m *InMemoryRecorder) IncSessionResolution(outcome string) {
	m.inc(m.sessionResolutions, outcome)
}

// IncProfileUpdate counts a profile update by outcome.
func (m *InMemoryRecorder) IncProfileUpdate(outcome string) {
	m.inc(m.profileUpdates, outcome)
}

// IncRateLimited counts a rejected request by route.
func (m *InMemoryRecorder) IncRateLimited(route string) {
	m.inc(m.rateLimited, route)
}

// ObserveHashDuration records time spent hashing a password.
func (m *InMemoryRecorder) ObserveHashDuration(duration time.Duration) {
	atomic.AddUint64(&m.hashDurationCount, 1)
	atomic.AddInt64(&m.hashDurationTotalNs, duration.Nanoseconds())
}
