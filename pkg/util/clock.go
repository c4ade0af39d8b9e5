package util

import "time"

// Clock abstracts wall time so trade timestamps are deterministic in
// tests.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
