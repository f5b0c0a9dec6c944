package domain

import "github.com/jonboulle/clockwork"

// clock stamps ProcessedAt on converted readings.
var clock = clockwork.NewRealClock()

// SetClock replaces the processing clock, typically with a fake in tests.
// Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
