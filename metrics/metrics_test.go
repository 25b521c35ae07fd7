package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTickerObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewTicker(reg)
	interval := 20 * time.Millisecond

	m.Observe("a", interval, interval)
	m.Observe("a", 3*interval, interval)
	m.Observe("b", interval, interval)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ticks.WithLabelValues("a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ticks.WithLabelValues("b")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.catchups.WithLabelValues("a")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.missed.WithLabelValues("a")))
	assert.InDelta(t, 0.08, testutil.ToFloat64(m.elapsed.WithLabelValues("a")), 1e-9)

	n, err := testutil.GatherAndCount(reg, TickerTicksN)
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestTickerNil(t *testing.T) {
	var m *Ticker
	m.Observe("x", time.Second, time.Second)
}

func TestJitter(t *testing.T) {
	j := NewJitter()
	start := time.Unix(0, 0)
	j.Record(start)
	for i := 1; i <= 100; i++ {
		j.Record(start.Add(time.Duration(i) * 10 * time.Millisecond))
	}
	assert.EqualValues(t, 100, j.Count())
	assert.InDelta(t, float64(10*time.Millisecond), float64(j.Quantile(50)), float64(50*time.Microsecond))
	assert.InDelta(t, float64(10*time.Millisecond), float64(j.Max()), float64(50*time.Microsecond))
}
