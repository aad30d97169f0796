package clockfake

import (
	"sort"
	"sync"
	"time"

	"github.com/MensaSverige/swagapp-sub001/clock"
)

var _ clock.Clock = (*Clock)(nil)

// Clock is a manually advanced clock. Timers fire synchronously from Advance, in
// deadline order, on the goroutine that calls Advance.
type Clock struct {
	lock   sync.Mutex
	now    time.Time
	seq    int
	timers map[int]*timer
}

type timer struct {
	clock    *Clock
	id       int
	deadline time.Time
	f        func()
}

func New(start time.Time) *Clock {
	return &Clock{
		now:    start,
		timers: make(map[int]*timer),
	}
}

func (c *Clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *Clock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.seq++
	t := &timer{clock: c, id: c.seq, deadline: c.now.Add(d), f: f}
	c.timers[t.id] = t
	return t
}

func (t *timer) Stop() bool {
	t.clock.lock.Lock()
	defer t.clock.lock.Unlock()

	if _, ok := t.clock.timers[t.id]; !ok {
		return false
	}
	delete(t.clock.timers, t.id)
	return true
}

// Advance moves time forward by d, firing every timer whose deadline is reached,
// including timers scheduled by callbacks fired during this call.
func (c *Clock) Advance(d time.Duration) {
	c.lock.Lock()
	target := c.now.Add(d)
	c.lock.Unlock()

	for {
		c.lock.Lock()
		next := c.nextDue(target)
		if next == nil {
			c.now = target
			c.lock.Unlock()
			return
		}
		delete(c.timers, next.id)
		if next.deadline.After(c.now) {
			c.now = next.deadline
		}
		c.lock.Unlock()

		next.f()
	}
}

func (c *Clock) nextDue(target time.Time) *timer {
	due := make([]*timer, 0, len(c.timers))
	for _, t := range c.timers {
		if !t.deadline.After(target) {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline.Equal(due[j].deadline) {
			return due[i].id < due[j].id
		}
		return due[i].deadline.Before(due[j].deadline)
	})
	return due[0]
}

// Pending returns the number of timers that have not fired or been stopped.
func (c *Clock) Pending() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.timers)
}

// NextDeadline returns the earliest pending deadline.
func (c *Clock) NextDeadline() (time.Time, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	var earliest time.Time
	found := false
	for _, t := range c.timers {
		if !found || t.deadline.Before(earliest) {
			earliest = t.deadline
			found = true
		}
	}
	return earliest, found
}
