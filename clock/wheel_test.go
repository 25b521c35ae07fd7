package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixkme/flowtime/errs"
)

func startWheel(t *testing.T) *Wheel {
	t.Helper()
	quit := make(chan struct{})
	w := NewWheel(WithResolution(5 * time.Millisecond))
	w.Start(quit)
	t.Cleanup(func() {
		close(quit)
		<-w.Done()
	})
	return w
}

func TestWheelFire(t *testing.T) {
	w := startWheel(t)
	receiver := make(chan *Promise, 1)
	start := time.Now()
	id, err := w.NewTimer(start.Add(50*time.Millisecond), "data", receiver)
	require.NoError(t, err)

	select {
	case p := <-receiver:
		elapsed := time.Since(start)
		assert.Equal(t, id, p.TimerId)
		assert.Equal(t, "data", p.Data)
		assert.GreaterOrEqual(t, elapsed, 45*time.Millisecond)
		assert.Less(t, elapsed, 500*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("timer not fired")
	}
}

func TestWheelCancel(t *testing.T) {
	w := startWheel(t)
	receiver := make(chan *Promise, 1)
	id, err := w.NewTimer(time.Now().Add(40*time.Millisecond), nil, receiver)
	require.NoError(t, err)

	ok, err := w.CancelTimer(id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.CancelTimer(id)
	require.NoError(t, err)
	assert.False(t, ok)

	select {
	case <-receiver:
		t.Fatal("cancelled timer fired")
	case <-time.After(120 * time.Millisecond):
	}
}

func TestWheelUpdate(t *testing.T) {
	w := startWheel(t)
	receiver := make(chan *Promise, 1)
	id, err := w.NewTimer(time.Now().Add(time.Hour), nil, receiver)
	require.NoError(t, err)

	ok, err := w.UpdateTimer(id, time.Now().Add(20*time.Millisecond))
	require.NoError(t, err)
	assert.True(t, ok)

	select {
	case p := <-receiver:
		assert.Equal(t, id, p.TimerId)
	case <-time.After(time.Second):
		t.Fatal("updated timer not fired")
	}
}

func TestWheelSameDeadline(t *testing.T) {
	w := startWheel(t)
	receiver := make(chan *Promise, 4)
	when := time.Now().Add(20 * time.Millisecond)
	for i := 0; i < 3; i++ {
		_, err := w.NewTimer(when, i, receiver)
		require.NoError(t, err)
	}
	var got []any
	deadline := time.After(time.Second)
	for len(got) < 3 {
		select {
		case p := <-receiver:
			got = append(got, p.Data)
		case <-deadline:
			t.Fatalf("got %d promises", len(got))
		}
	}
	assert.ElementsMatch(t, []any{0, 1, 2}, got)
}

func TestWheelSleep(t *testing.T) {
	w := startWheel(t)
	start := time.Now()
	require.NoError(t, w.Sleep(context.Background(), 30*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 25*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := w.Sleep(ctx, time.Hour)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWheelClosed(t *testing.T) {
	quit := make(chan struct{})
	w := NewWheel()
	w.Start(quit)
	close(quit)
	<-w.Done()

	_, err := w.NewTimer(time.Now(), nil, make(chan *Promise, 1))
	assert.ErrorIs(t, err, errs.WheelClosed)
}

// 直接驱动 tick, 验证高层定时器逐层下降后准时触发
func TestWheelCascade(t *testing.T) {
	w := NewWheel()
	receiver := make(chan *Promise, 1)
	w.addTimer(&_Timer{id: 1, when: 20000, receiver: receiver})

	fired := int64(-1)
	for tk := w.si; tk <= 30000 && fired < 0; tk += w.si {
		w.tick(tk, tk)
		select {
		case p := <-receiver:
			fired = tk
			assert.EqualValues(t, 1, p.TimerId)
		default:
		}
	}
	assert.EqualValues(t, 20000, fired)
	assert.Empty(t, w.locs)
}
