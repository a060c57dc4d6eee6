// Package clock holds the monotonic time helpers used by every timing-sensitive stage.
package clock

import (
	"sync"
	"time"
)

// Clock is the time source of the pipeline. Tests swap it for Fake.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time {
	return time.Now()
}

func Ms(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func AddMs(t time.Time, ms int) time.Time {
	return t.Add(Ms(ms))
}

func SubMs(t time.Time, ms int) time.Time {
	return t.Add(-Ms(ms))
}

func Less(a, b time.Time) bool {
	return a.Before(b)
}

func Greater(a, b time.Time) bool {
	return a.After(b)
}

func Equal(a, b time.Time) bool {
	return a.Equal(b)
}

// Elapsed reports whether more than d has passed between since and now.
func Elapsed(now, since time.Time, d time.Duration) bool {
	return now.Sub(since) > d
}

// Fake is a manually advanced clock.
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake() *Fake {
	return &Fake{now: time.Unix(1000, 0)}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fake) Advance(d time.Duration) time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
	return f.now
}

func (f *Fake) AdvanceMs(ms int) time.Time {
	return f.Advance(Ms(ms))
}
