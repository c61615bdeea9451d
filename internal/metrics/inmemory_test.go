package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestInMemoryRecorder_Counts(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncLogin(LoginSuccess)
	m.IncLogin(LoginSuccess)
	m.IncLogin(LoginNotFound)
	m.IncRegistration(RegisterEmailTaken)
	m.IncSessionResolution(SessionInvalidToken)
	m.IncProfileUpdate(ProfileSuccess)
	m.IncRateLimited("login")
	m.ObserveHashDuration(250 * time.Millisecond)

	snap := m.Snapshot()
	if snap.Logins[LoginSuccess] != 2 || snap.Logins[LoginNotFound] != 1 {
		t.Errorf("logins = %v", snap.Logins)
	}
	if snap.Registrations[RegisterEmailTaken] != 1 {
		t.Errorf("registrations = %v", snap.Registrations)
	}
	if snap.SessionResolutions[SessionInvalidToken] != 1 {
		t.Errorf("sessions = %v", snap.SessionResolutions)
	}
	if snap.ProfileUpdates[ProfileSuccess] != 1 || snap.RateLimited["login"] != 1 {
		t.Errorf("profile=%v ratelimited=%v", snap.ProfileUpdates, snap.RateLimited)
	}
	if snap.HashDurationCount != 1 || snap.HashDurationTotalNs != int64(250*time.Millisecond) {
		t.Errorf("hash duration = %d/%d", snap.HashDurationCount, snap.HashDurationTotalNs)
	}
}

func TestInMemoryRecorder_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncLogin(LoginSuccess)
	snap := m.Snapshot()
	m.IncLogin(LoginSuccess)

	if snap.Logins[LoginSuccess] != 1 {
		t.Error("snapshot should not observe later increments")
	}
}

func TestInMemoryRecorder_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.IncRegistration(RegisterSuccess)
			m.ObserveHashDuration(time.Millisecond)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Registrations[RegisterSuccess] != 50 || snap.HashDurationCount != 50 {
		t.Errorf("registrations=%d hashes=%d", snap.Registrations[RegisterSuccess], snap.HashDurationCount)
	}
}

func TestNoopRecorder(t *testing.T) {
	t.Parallel()

	r := NewNoop()
	r.IncLogin(LoginSuccess)
	r.IncRegistration(RegisterSuccess)
	r.IncSessionResolution(SessionSuccess)
	r.IncProfileUpdate(ProfileSuccess)
	r.IncRateLimited("login")
	r.ObserveHashDuration(time.Second)
}
