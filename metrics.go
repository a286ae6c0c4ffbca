package reflux

import "time"

// MetricsProvider receives callbacks on run and settings events. Implement it
// to feed Prometheus, StatsD and the like.
type MetricsProvider interface {
	// OnRunStarted is called when a run begins for the given action prefix.
	OnRunStarted(prefix string)

	// OnRunSucceeded is called after SUCCESS is dispatched.
	OnRunSucceeded(prefix string, duration time.Duration)

	// OnRunFailed is called after FAIL is dispatched. Status is zero for
	// transport failures.
	OnRunFailed(prefix string, status int, duration time.Duration)

	// OnRunCanceled is called when a run is torn down before settling.
	OnRunCanceled(prefix string, duration time.Duration)

	// OnSourceStateChange is called when Settings transitions between states.
	OnSourceStateChange(from, to SourceState)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Embed it to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnRunStarted(_ string)                        {}
func (NoOpMetricsProvider) OnRunSucceeded(_ string, _ time.Duration)     {}
func (NoOpMetricsProvider) OnRunFailed(_ string, _ int, _ time.Duration) {}
func (NoOpMetricsProvider) OnRunCanceled(_ string, _ time.Duration)      {}
func (NoOpMetricsProvider) OnSourceStateChange(_, _ SourceState)         {}
