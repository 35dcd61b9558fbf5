// Package metrics provides a minimal instrumentation interface with a no-op
// default and a Prometheus-backed implementation enabled by the host.
package metrics

import (
	"sync"
	"time"
)

// Invocation outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeRateLimited = "rate_limited"
	OutcomeError       = "error"
	OutcomeCanceled    = "canceled"
)

// Recorder defines the metrics surface used across the codebase.
type Recorder interface {
	// IncInvocation counts one attempt against an external provider.
	IncInvocation(provider, outcome string)
	// ObserveInvocationSeconds records the latency of one attempt.
	ObserveInvocationSeconds(provider string, success bool, seconds float64)
	// IncRetry counts a backoff-and-retry against a provider.
	IncRetry(provider string)
	// IncSourceFailure counts a source dropped from a fan-out.
	IncSourceFailure(operation string)
	// IncDegraded counts a result produced by a fallback path.
	IncDegraded(operation, kind string)
}

// noopRecorder implements Recorder with no-ops.
type noopRecorder struct{}

func (n *noopRecorder) IncInvocation(string, string)                   {}
func (n *noopRecorder) ObserveInvocationSeconds(string, bool, float64) {}
func (n *noopRecorder) IncRetry(string)                                {}
func (n *noopRecorder) IncSourceFailure(string)                        {}
func (n *noopRecorder) IncDegraded(string, string)                     {}

var (
	recMu    sync.RWMutex
	recorder Recorder = &noopRecorder{}
)

// Default returns the current recorder.
func Default() Recorder {
	recMu.RLock()
	defer recMu.RUnlock()
	return recorder
}

// SetRecorder swaps the global recorder implementation.
// Passing nil restores the no-op recorder.
func SetRecorder(r Recorder) {
	recMu.Lock()
	defer recMu.Unlock()
	if r == nil {
		r = &noopRecorder{}
	}
	recorder = r
}

// TimeInvocation is a helper to time one provider attempt.
func TimeInvocation(provider string) func(success bool) {
	start := time.Now()
	return func(success bool) {
		Default().ObserveInvocationSeconds(provider, success, time.Since(start).Seconds())
	}
}
