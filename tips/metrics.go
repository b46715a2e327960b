package tips

import "time"

// Recorder receives engine measurements. The metrics package provides a
// Prometheus implementation; the engine defaults to a no-op.
type Recorder interface {
	ObserveRun(mode, outcome string, elapsed time.Duration)
	AddAdjustedCents(t PayoutType, cents int)
	AddNoCoverage(t PayoutType)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRun(string, string, time.Duration) {}
func (nopRecorder) AddAdjustedCents(PayoutType, int)        {}
func (nopRecorder) AddNoCoverage(PayoutType)                {}
