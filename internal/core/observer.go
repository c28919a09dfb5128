package core

import "time"

// Outcome labels reported to an Observer.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
)

// Observer receives pipeline events for metrics.
type Observer interface {
	FileProcessed(format Format, outcome string, elapsed time.Duration)
	RowsLoaded(format Format, rows int)
	Cleaned(report CleanReport)
	Exported(format Format, size int)
	WorkspacesEvicted(n int)
}

// NopObserver discards all events.
type NopObserver struct{}

func (NopObserver) FileProcessed(Format, string, time.Duration) {}
func (NopObserver) RowsLoaded(Format, int)                      {}
func (NopObserver) Cleaned(CleanReport)                         {}
func (NopObserver) Exported(Format, int)                        {}
func (NopObserver) WorkspacesEvicted(int)                       {}
