package limiter

import "time"

// Clock supplies the current time. It exists so tests can drive window
// boundaries deterministically instead of sleeping.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// windowIndex returns the epoch-aligned window containing now. Every process
// computes the same index for the same instant, which is what makes the
// counting key identical across replicas.
func windowIndex(now time.Time, period time.Duration) int64 {
	return now.UnixNano() / period.Nanoseconds()
}

// timeToBoundary returns how long the window containing now has left.
func timeToBoundary(now time.Time, period time.Duration) time.Duration {
	elapsed := time.Duration(now.UnixNano() % period.Nanoseconds())
	return period - elapsed
}
