// Package clock provides the wall-clock implementation of the domain Clock.
package clock

import (
	"time"

	"clinicbook/internal/domain/service"
)

type systemClock struct{}

// New returns a Clock backed by the system wall clock in UTC.
func New() service.Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time {
	return time.Now().UTC()
}
