package timesource

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixkme/flowtime/clock"
	"github.com/fixkme/flowtime/frp"
)

func TestSameNodePerClock(t *testing.T) {
	reg := NewRegistry()
	assert.Same(t, reg.Now(), reg.Now())
	assert.Same(t, reg.Now(), reg.Signal(clock.System))
	assert.NotSame(t, reg.Now(), reg.Signal(clock.UTC))

	assert.Equal(t, []string{"system", "utc"}, reg.Names())
	assert.Equal(t, 2, reg.Len())
}

func TestSameNameDistinctClocks(t *testing.T) {
	reg := NewRegistry()
	epoch := time.Unix(0, 0)
	other := clock.Func("system", func() time.Time { return epoch })
	sig := reg.Signal(other)
	assert.NotSame(t, reg.Now(), sig)
	assert.Same(t, sig, reg.Signal(other))
	assert.Equal(t, epoch, sig.Sample())
	assert.NotEqual(t, epoch, reg.Now().Sample())
	assert.Equal(t, []string{"system"}, reg.Names())
	assert.Equal(t, 2, reg.Len())
}

func TestSamplesEqualInTransaction(t *testing.T) {
	reg := NewRegistry()
	sink := frp.NewSink[struct{}]()
	inner := frp.Snapshot(reg.Now(), sink.Stream(), func(t time.Time, _ struct{}) time.Time { return t })
	cmp := frp.Snapshot(reg.Now(), inner, func(t0, t1 time.Time) [2]time.Time { return [2]time.Time{t0, t1} })
	events := cmp.Events()
	defer events.Close()

	sink.Send(struct{}{})
	pair, ok := events.Next()
	require.True(t, ok)
	assert.True(t, pair[0].Equal(pair[1]))
	assert.Equal(t, pair[0], pair[1])
}

func TestConsistentWithSleep(t *testing.T) {
	reg := NewRegistry()
	t0 := reg.Now().Sample()
	prev := t0
	for n := 0; n < 5; n++ {
		time.Sleep(time.Duration(n) * time.Millisecond)
		now := reg.Now().Sample()
		assert.GreaterOrEqual(t, now.Sub(t0), time.Duration(n)*time.Millisecond)
		assert.False(t, now.Before(prev))
		prev = now
	}
}

func TestManualClockNode(t *testing.T) {
	reg := NewRegistry()
	m := clock.NewManual("manual", time.Unix(10, 500_000_000))
	sig := reg.Signal(m)
	assert.Equal(t, int64(10_500_000_000), Nanos(sig).Sample())
	m.Advance(500 * time.Millisecond)
	assert.InDelta(t, 11.0, Seconds(sig).Sample(), 1e-9)
}
