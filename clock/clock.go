package clock

import (
	"sync"
	"time"
)

// Clock 时间源. timesource.Registry 按实例区分时钟, Name 只用于展示
type Clock interface {
	Name() string
	Now() time.Time
}

var (
	// System 带单调时钟读数, 差值不受墙上时间跳变影响
	System Clock = Func("system", time.Now)
	// UTC 纯墙上时间
	UTC Clock = Func("utc", func() time.Time { return time.Now().UTC() })
)

type funcClock struct {
	name string
	now  func() time.Time
}

// Func 把取时函数包装为 Clock
func Func(name string, now func() time.Time) Clock {
	return &funcClock{name: name, now: now}
}

func (c *funcClock) Name() string   { return c.name }
func (c *funcClock) Now() time.Time { return c.now() }

// Manual 手动推进的时钟, 测试用
type Manual struct {
	name string
	mu   sync.Mutex
	now  time.Time
}

func NewManual(name string, start time.Time) *Manual {
	return &Manual{name: name, now: start}
}

func (m *Manual) Name() string { return m.name }

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *Manual) Advance(d time.Duration) time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	return m.now
}

// Set 不允许回拨
func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.After(m.now) {
		m.now = t
	}
}
