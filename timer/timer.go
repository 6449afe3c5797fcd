// timer/timer.go
package timer

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Countdown 房间倒计时任务。
//
// Start and Cancel must be called with lock held. Every timer callback
// re-acquires lock and checks the cancelled flag before calling onTick or
// onDone, so once Cancel returns no further callback runs.
type Countdown struct {
	clock    clockwork.Clock
	lock     sync.Locker
	from     int
	interval time.Duration
	onTick   func(value int)
	onDone   func()

	remaining int
	timer     clockwork.Timer
	started   bool
	cancelled bool
	done      bool
}

// NewCountdown creates a countdown from `from` down to 1. onTick receives each
// value, onDone runs one interval after the last tick. Both run with lock held.
func NewCountdown(clock clockwork.Clock, lock sync.Locker, from int, interval time.Duration, onTick func(int), onDone func()) *Countdown {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Countdown{
		clock:    clock,
		lock:     lock,
		from:     from,
		interval: interval,
		onTick:   onTick,
		onDone:   onDone,
	}
}

// Start emits the first tick immediately and arms the next step.
// Calling Start twice is a no-op.
func (c *Countdown) Start() {
	if c.started || c.cancelled {
		return
	}
	c.started = true
	c.remaining = c.from
	if c.remaining < 1 {
		c.finish()
		return
	}
	c.tick()
}

func (c *Countdown) tick() {
	if c.onTick != nil {
		c.onTick(c.remaining)
	}
	c.timer = c.clock.AfterFunc(c.interval, c.fire)
}

func (c *Countdown) finish() {
	c.done = true
	c.timer = nil
	if c.onDone != nil {
		c.onDone()
	}
}

func (c *Countdown) fire() {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.cancelled || c.done {
		return
	}
	c.remaining--
	if c.remaining >= 1 {
		c.tick()
		return
	}
	c.finish()
}

// Cancel stops the countdown. It reports whether the countdown was still running.
func (c *Countdown) Cancel() bool {
	if c.cancelled || c.done {
		return false
	}
	c.cancelled = true
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	return c.started
}

// Active reports whether the countdown has started and neither finished nor been cancelled.
func (c *Countdown) Active() bool {
	return c.started && !c.cancelled && !c.done
}

// Remaining returns the last emitted tick value.
func (c *Countdown) Remaining() int {
	return c.remaining
}
