package domain

import "github.com/jonboulle/clockwork"

// clock stamps ComposedAt. Tests freeze it with SetClock so composed states
// compare equal across runs.
var clock = clockwork.NewRealClock()

// SetClock swaps the composition time source. Pass nil to restore real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock = c
}
