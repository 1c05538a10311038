package binary

import "time"

// Clock supplies the timestamps Provision uses to measure Result.Duration.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}
