package ticker

import "time"

// cadence 记录上一次逻辑触发时刻, 只由所属 ticker 的执行协程修改
type cadence struct {
	interval time.Duration
	last     time.Time
}

// advance returns a positive elapsed when the deadline last+interval has
// passed and moves last forward by it; otherwise it returns the time left
// until the deadline.
func (c *cadence) advance(now time.Time) (elapsed, wait time.Duration) {
	remaining := c.last.Add(c.interval).Sub(now)
	if remaining >= 0 {
		return 0, remaining
	}
	elapsed = catchUp(now.Sub(c.last), c.interval)
	c.last = c.last.Add(elapsed)
	return elapsed, 0
}

// catchUp rounds since down to whole intervals, never below one.
// since > interval whenever the deadline has passed, so the floor only
// guards against a clock that stepped backwards.
func catchUp(since, interval time.Duration) time.Duration {
	n := since / interval
	if n < 1 {
		n = 1
	}
	return n * interval
}
