// Package timer implements the per-question countdown.
//
// A Countdown is keyed: starting it with a new key resets the clock and
// cancels whatever expiry was pending for the previous key. The expiry
// callback lives in a cell that can be replaced at any time and is read when
// the countdown reaches zero, never when it starts.
package timer

import (
	"sync"
	"time"
)

// Urgency classifies the remaining share of a countdown for display.
type Urgency string

const (
	UrgencyNormal   Urgency = "normal"
	UrgencyWarning  Urgency = "warning"
	UrgencyCritical Urgency = "critical"
)

// UrgencyFor maps remaining time to a display band: above half is normal,
// above a quarter is a warning, anything else is critical.
func UrgencyFor(timeLeft, duration int) Urgency {
	if duration <= 0 {
		return UrgencyCritical
	}
	pct := float64(timeLeft) / float64(duration) * 100
	switch {
	case pct > 50:
		return UrgencyNormal
	case pct > 25:
		return UrgencyWarning
	default:
		return UrgencyCritical
	}
}

// State is a point-in-time view of a Countdown.
type State struct {
	Key      int     `json:"key"`
	Duration int     `json:"duration"`
	TimeLeft int     `json:"timeLeft"`
	Running  bool    `json:"running"`
	Expired  bool    `json:"expired"`
	Urgency  Urgency `json:"urgency"`
}

// Countdown is a one-second-granularity timer that fires at most once per key.
type Countdown struct {
	clock    Clock
	interval time.Duration

	mu        sync.Mutex
	armed     bool
	key       int
	duration  int
	timeLeft  int
	startedAt time.Time
	running   bool
	expired   bool
	gen       uint64
	stop      chan struct{}
	onExpire  func(key int)
	onTick    func(key, timeLeft int)
}

// New returns an idle Countdown. A nil clock uses the system clock.
func New(clock Clock) *Countdown {
	if clock == nil {
		clock = SystemClock()
	}
	return &Countdown{clock: clock, interval: time.Second}
}

// SetOnExpire replaces the expiry callback. The callback receives the key the
// countdown expired for.
func (c *Countdown) SetOnExpire(fn func(key int)) {
	c.mu.Lock()
	c.onExpire = fn
	c.mu.Unlock()
}

// SetOnTick registers an observer called after every decrement.
func (c *Countdown) SetOnTick(fn func(key, timeLeft int)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

// Start runs the countdown for key. Starting the key that is already running,
// or that has already expired, is a no-op and returns false. A non-nil
// onExpire replaces the callback cell.
func (c *Countdown) Start(key, durationSeconds int, onExpire func(key int)) bool {
	c.mu.Lock()
	if onExpire != nil {
		c.onExpire = onExpire
	}
	if c.armed && key == c.key && (c.running || c.expired) {
		c.mu.Unlock()
		return false
	}
	c.cancelLocked()

	c.armed = true
	c.key = key
	c.duration = durationSeconds
	c.timeLeft = durationSeconds
	c.startedAt = c.clock.Now()
	c.expired = false

	if durationSeconds <= 0 {
		c.timeLeft = 0
		c.running = false
		c.expired = true
		fn := c.onExpire
		c.mu.Unlock()
		if fn != nil {
			fn(key)
		}
		return true
	}

	c.running = true
	gen := c.gen
	stop := make(chan struct{})
	c.stop = stop
	ticker := c.clock.NewTicker(c.interval)
	c.mu.Unlock()

	go c.run(gen, ticker, stop)
	return true
}

// Stop cancels any pending expiry. A stopped countdown can be started again
// with the same key.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.running = false
	c.expired = false
	c.armed = false
}

// TimeLeft returns the remaining seconds.
func (c *Countdown) TimeLeft() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeLeft
}

// Key returns the key of the current or last countdown.
func (c *Countdown) Key() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

// Duration returns the full length of the current key in seconds.
func (c *Countdown) Duration() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Urgency returns the display band for the remaining time.
func (c *Countdown) Urgency() Urgency {
	c.mu.Lock()
	defer c.mu.Unlock()
	return UrgencyFor(c.timeLeft, c.duration)
}

// Running reports whether a countdown is ticking.
func (c *Countdown) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Elapsed returns whole seconds since the current key started, capped at its
// duration.
func (c *Countdown) Elapsed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed {
		return 0
	}
	secs := int(c.clock.Now().Sub(c.startedAt).Round(time.Second) / time.Second)
	if secs < 0 {
		return 0
	}
	if secs > c.duration {
		return c.duration
	}
	return secs
}

// State returns a snapshot for display.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Key:      c.key,
		Duration: c.duration,
		TimeLeft: c.timeLeft,
		Running:  c.running,
		Expired:  c.expired,
		Urgency:  UrgencyFor(c.timeLeft, c.duration),
	}
}

func (c *Countdown) cancelLocked() {
	c.gen++
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

func (c *Countdown) run(gen uint64, t Ticker, stop <-chan struct{}) {
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C():
			if !c.advance(gen) {
				return
			}
		}
	}
}

// advance applies one tick for generation gen and reports whether the
// countdown is still live. Ticks from a cancelled generation are ignored.
func (c *Countdown) advance(gen uint64) bool {
	c.mu.Lock()
	if gen != c.gen || !c.running {
		c.mu.Unlock()
		return false
	}
	c.timeLeft--
	if c.timeLeft < 0 {
		c.timeLeft = 0
	}
	key, left := c.key, c.timeLeft
	tick := c.onTick

	var expire func(int)
	if left == 0 {
		c.running = false
		c.expired = true
		expire = c.onExpire
	}
	c.mu.Unlock()

	if tick != nil {
		tick(key, left)
	}
	if left == 0 {
		if expire != nil {
			expire(key)
		}
		return false
	}
	return true
}
