package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

func (n *NoopRecorder) IncRegistration(string)            {}
func (n *NoopRecorder) IncLogin(string)                   {}
func (n *NoopRecorder) IncSessionResolution(string)       {}
func (n *NoopRecorder) IncProfileUpdate(string)           {}
func (n *NoopRecorder) IncRateLimited(string)             {}
func (n *NoopRecorder) ObserveHashDuration(time.Duration) {}
