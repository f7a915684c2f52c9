package domain

import "time"

// Clock supplies current time in the configured fixed timezone. The dispatch
// engine reads it exactly once per cycle; tests swap in a deterministic fake.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns a Clock backed by the wall clock in loc.
func NewSystemClock(loc *time.Location) Clock {
	return &systemClock{loc: loc}
}

func (c *systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *systemClock) Location() *time.Location {
	return c.loc
}
