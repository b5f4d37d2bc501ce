package core

import "time"

type Clock struct {
	start   time.Time
	running bool
	elapsed time.Duration
	now     func() time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Now}
}

// Update refreshes the elapsed time. Has no effect on stopped clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = c.now().Sub(c.start)
	}
}

// Start resets elapsed time and starts counting.
func (c *Clock) Start() {
	c.start = c.now()
	c.running = true
	c.elapsed = 0
}

// Stop halts the clock without resetting elapsed time.
func (c *Clock) Stop() {
	c.Update()
	c.running = false
}

// Elapsed returns the seconds between Start and the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed.Seconds()
}
