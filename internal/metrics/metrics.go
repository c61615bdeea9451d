// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Registration outcomes.
const (
	RegisterSuccess       = "success"
	RegisterEmailTaken    = "email_taken"
	RegisterUsernameTaken = "username_taken"
	RegisterError         = "error"
)

// Login outcomes. They mirror the login state reached and are never
// surfaced to callers.
const (
	LoginSuccess          = "success"
	LoginNotFound         = "not_found"
	LoginPasswordMismatch = "password_mismatch"
	LoginInactive         = "inactive"
	LoginError            = "error"
)

// Session resolution outcomes.
const (
	SessionSuccess        = "success"
	SessionInvalidToken   = "invalid_token"
	SessionUnknownSubject = "unknown_subject"
	SessionError          = "error"
)

// Profile update outcomes.
const (
	ProfileSuccess  = "success"
	ProfileConflict = "conflict"
	ProfileNotFound = "not_found"
	ProfileError    = "error"
)

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	IncRegistration(outcome string)
	IncLogin(outcome string)
	IncSessionResolution(outcome string)
	IncProfileUpdate(outcome string)
	IncRateLimited(route string)
	ObserveHashDuration(duration time.Duration)
}

// Snapshotter exposes a snapshot of current metrics.
type Snapshotter interface {
	Snapshot() Snapshot
}
