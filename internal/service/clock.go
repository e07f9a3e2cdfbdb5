package service

import "github.com/jonboulle/clockwork"

// Clock is the time source for the scheduler and its deferred shutoffs.
type Clock = clockwork.Clock

// SystemClock returns a Clock backed by package time.
func SystemClock() Clock { return clockwork.NewRealClock() }
