// Package typewriter reveals text one character at a time on an injected
// schedule so that rendering stays testable without real timers.
package typewriter

import (
	"sync"
	"time"
)

// Status is a controller's lifecycle state.
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusPaused
	StatusComplete
	StatusStopped
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	case StatusComplete:
		return "complete"
	case StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Scheduler runs fn once after delay. The returned func cancels the tick
// if it has not fired yet.
type Scheduler interface {
	Schedule(delay time.Duration, fn func()) (cancel func())
}

// TimerScheduler schedules ticks on real timers. Ticks fire on timer
// goroutines.
type TimerScheduler struct{}

func (TimerScheduler) Schedule(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() { t.Stop() }
}

// Options configures a Controller.
type Options struct {
	Delay      time.Duration
	OnUpdate   func(revealed string)
	OnComplete func()
}

// Controller animates a single piece of text. It is safe for concurrent
// use; callbacks run without the controller's lock held so they may call
// back into it.
type Controller struct {
	mu        sync.Mutex
	text      []rune
	revealed  int
	status    Status
	completed bool
	cancel    func()
	gen       uint64

	scheduler Scheduler
	delay     time.Duration
	onUpdate  func(string)
	onDone    func()
}

// New creates an idle controller for text.
func New(text string, scheduler Scheduler, opts Options) *Controller {
	if scheduler == nil {
		scheduler = TimerScheduler{}
	}
	return &Controller{
		text:      []rune(text),
		scheduler: scheduler,
		delay:     opts.Delay,
		onUpdate:  opts.OnUpdate,
		onDone:    opts.OnComplete,
	}
}

// Start begins revealing text. It only has an effect on an idle controller.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusIdle {
		return
	}
	c.status = StatusRunning
	c.scheduleLocked()
}

// Pause suspends a running controller, keeping the revealed prefix.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusRunning {
		return
	}
	c.cancelLocked()
	c.status = StatusPaused
}

// Resume continues a paused controller from where it stopped.
func (c *Controller) Resume() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusPaused {
		return
	}
	c.status = StatusRunning
	c.scheduleLocked()
}

// Skip reveals the full text of a running or paused controller
// immediately. Skipping one that is idle, finished or stopped does nothing.
func (c *Controller) Skip() {
	c.mu.Lock()
	switch c.status {
	case StatusIdle, StatusComplete, StatusStopped:
		c.mu.Unlock()
		return
	}
	c.cancelLocked()
	c.revealed = len(c.text)
	full := string(c.text)
	fire := c.finishLocked()
	c.mu.Unlock()

	c.emit(full)
	if fire {
		c.onDone()
	}
}

// Stop abandons the animation. The revealed prefix is discarded and the
// completion callback will not fire.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.status {
	case StatusComplete, StatusStopped:
		return
	}
	c.cancelLocked()
	c.revealed = 0
	c.status = StatusStopped
}

// Status returns the current lifecycle state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Revealed returns the currently visible prefix.
func (c *Controller) Revealed() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.text[:c.revealed])
}

// Text returns the full text being animated.
func (c *Controller) Text() string {
	return string(c.text)
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	if c.status != StatusRunning || gen != c.gen {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	if c.revealed < len(c.text) {
		c.revealed++
	}
	prefix := string(c.text[:c.revealed])
	fire := false
	if c.revealed >= len(c.text) {
		fire = c.finishLocked()
	} else {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	c.emit(prefix)
	if fire {
		c.onDone()
	}
}

// finishLocked marks the controller complete and reports whether the
// completion callback should fire.
func (c *Controller) finishLocked() bool {
	c.status = StatusComplete
	if c.completed || c.onDone == nil {
		c.completed = true
		return false
	}
	c.completed = true
	return true
}

// scheduleLocked arms the next tick. Each tick carries a generation so a
// timer that fires after being cancelled is ignored.
func (c *Controller) scheduleLocked() {
	c.gen++
	gen := c.gen
	c.cancel = c.scheduler.Schedule(c.delay, func() { c.tick(gen) })
}

func (c *Controller) cancelLocked() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *Controller) emit(prefix string) {
	if c.onUpdate != nil {
		c.onUpdate(prefix)
	}
}
