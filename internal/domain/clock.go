package domain

import "time"

// Clock time source; injected so suspension windows and default stamps are testable
type Clock interface {
	Now() time.Time
}

// SystemClock host clock in Loc (UTC when nil)
type SystemClock struct {
	Loc *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Loc == nil {
		return time.Now().UTC()
	}
	return time.Now().In(c.Loc)
}

// FixedClock always returns T
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
