package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestManual(t *testing.T) {
	start := time.Unix(100, 0)
	m := NewManual("manual", start)
	assert.Equal(t, "manual", m.Name())
	assert.Equal(t, start, m.Now())

	m.Advance(time.Second)
	assert.Equal(t, start.Add(time.Second), m.Now())

	// 不允许回拨
	m.Set(start)
	assert.Equal(t, start.Add(time.Second), m.Now())
	m.Set(start.Add(time.Minute))
	assert.Equal(t, start.Add(time.Minute), m.Now())
}

func TestSystemMonotonic(t *testing.T) {
	t0 := System.Now()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, System.Now().Sub(t0), 5*time.Millisecond)
	assert.Equal(t, "system", System.Name())
	assert.Equal(t, "utc", UTC.Name())
	assert.Equal(t, time.UTC, UTC.Now().Location())
}
