package core

import "time"

// Clock provides the current time. Injected everywhere time matters so tests
// can pin it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func NewClock() Clock { return systemClock{} }
