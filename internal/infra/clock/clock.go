// Package clock provides the system implementation of the domain Clock.
package clock

import (
	"time"

	"stride/internal/domain/service"
)

type systemClock struct{}

// NewSystem returns a Clock backed by the wall clock and real timers.
func NewSystem() service.Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now()
}

func (systemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}
