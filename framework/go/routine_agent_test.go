package g

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixkme/flowtime/clock"
)

func TestRoutineAgent(t *testing.T) {
	a := NewRoutineAgent(0, 16)
	fired := make(chan int64, 1)
	closed := make(chan struct{})
	a.Init(func(tid int64, _ time.Time, data any) {
		assert.Equal(t, "payload", data)
		fired <- tid
	}, func() { close(closed) })
	go a.Run()

	n := 0
	require.NoError(t, a.SyncRunFunc(func() { n++ }))
	assert.Equal(t, 1, n)

	a.GetTimerReceiver() <- &clock.Promise{TimerId: 7, Now: time.Now(), Data: "payload"}
	select {
	case tid := <-fired:
		assert.EqualValues(t, 7, tid)
	case <-time.After(time.Second):
		t.Fatal("timer callback not called")
	}

	// panic 被 Exec 捕获交给 panicHandler, agent 继续工作
	recovered := make(chan any, 1)
	a.SetPanicHandler(func(r any) { recovered <- r })
	require.NoError(t, a.MustRunFunc(func() { panic("oops") }))
	assert.Equal(t, "oops", <-recovered)
	require.NoError(t, a.SyncRunFunc(func() { n++ }))
	assert.Equal(t, 2, n)

	a.Close()
	<-a.Done()
	<-closed
	assert.ErrorIs(t, a.MustRunFunc(func() {}), ErrRoutineClosed)
	assert.ErrorIs(t, a.SyncRunFunc(func() {}), ErrRoutineClosed)
}

func TestRoutineAgentWithWheel(t *testing.T) {
	quit := make(chan struct{})
	defer close(quit)
	w := clock.NewWheel(clock.WithResolution(5 * time.Millisecond))
	w.Start(quit)

	a := NewRoutineAgent(0, 16)
	fired := make(chan any, 1)
	a.Init(func(_ int64, _ time.Time, data any) { fired <- data }, nil)
	go a.Run()
	defer a.Close()

	_, err := w.NewTimer(time.Now().Add(15*time.Millisecond), 42, a.GetTimerReceiver())
	require.NoError(t, err)
	select {
	case v := <-fired:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("wheel promise not delivered")
	}
}
