// Package ticker emits elapsed-time events at a fixed cadence. When a
// deadline is missed the ticker emits one event carrying every whole
// interval that passed instead of a backlog of stale ticks.
//
// Only consumers that hold up the sender cause missed deadlines: Subscribe
// callbacks run on the ticker goroutine, so a slow one gets coalesced
// events. Stream.Events queues without blocking the ticker, so a slow
// reader of it receives the full backlog of single-interval events.
package ticker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/fixkme/flowtime/clock"
	"github.com/fixkme/flowtime/errs"
	"github.com/fixkme/flowtime/frp"
	"github.com/fixkme/flowtime/metrics"
	"github.com/fixkme/flowtime/mlog"
)

// Sleeper is the ticker's only suspension point.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type timerSleeper struct{}

func (timerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type Option func(*Ticker)

func WithClock(c clock.Clock) Option {
	return func(t *Ticker) {
		t.clk = c
		t.clkSet = true
	}
}

// WithWheel 在共享时间轮上挂起, 精度为时间轮的格宽.
// 未指定 WithClock 时使用时间轮的时钟.
func WithWheel(w *clock.Wheel) Option {
	return func(t *Ticker) {
		t.sleeper = w
		t.wheel = w
	}
}

func WithSleeper(s Sleeper) Option {
	return func(t *Ticker) {
		t.sleeper = s
	}
}

func WithMetrics(m *metrics.Ticker) Option {
	return func(t *Ticker) {
		t.metrics = m
	}
}

func WithName(name string) Option {
	return func(t *Ticker) {
		t.name = name
	}
}

type Ticker struct {
	id       xid.ID
	name     string
	interval time.Duration
	clk      clock.Clock
	clkSet   bool
	wheel    *clock.Wheel
	sleeper  Sleeper
	metrics  *metrics.Ticker
	sink     *frp.Sink[time.Duration]
	cad      cadence

	mu            sync.Mutex
	started       bool
	stopRequested bool
	cancel        context.CancelFunc
	done          chan struct{}
	err           error

	// 由 Group 驱动时使用, 只在 group 协程访问
	group   *Group
	timerId int64
}

func New(interval time.Duration, opts ...Option) (*Ticker, error) {
	if interval <= 0 {
		return nil, errs.InvalidInterval.Printf("interval=%s", interval)
	}
	t := &Ticker{
		id:       xid.New(),
		interval: interval,
		clk:      clock.System,
		sleeper:  timerSleeper{},
		sink:     frp.NewSink[time.Duration](),
		cad:      cadence{interval: interval},
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.wheel != nil && !t.clkSet {
		t.clk = t.wheel.Clock()
	}
	if t.name == "" {
		t.name = t.id.String()
	}
	return t, nil
}

// Every starts a ticker that runs for the life of the process. Coalescing
// applies to Subscribe consumers; Events readers see every interval.
func Every(interval time.Duration, opts ...Option) (*frp.Stream[time.Duration], error) {
	t, err := New(interval, opts...)
	if err != nil {
		return nil, err
	}
	t.Start(context.Background())
	return t.Stream(), nil
}

func (t *Ticker) ID() xid.ID {
	return t.id
}

func (t *Ticker) Name() string {
	return t.name
}

func (t *Ticker) Interval() time.Duration {
	return t.interval
}

func (t *Ticker) Stream() *frp.Stream[time.Duration] {
	return t.sink.Stream()
}

// Start launches the background loop. The first deadline is one interval
// after the call. Later calls do nothing.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	ctx, t.cancel = context.WithCancel(ctx)
	if t.stopRequested {
		t.cancel()
	}
	t.cad.last = t.clk.Now()
	go t.run(ctx)
}

func (t *Ticker) Stop() {
	t.mu.Lock()
	t.stopRequested = true
	cancel, group := t.cancel, t.group
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if group != nil {
		group.remove(t)
	}
}

// Wait blocks until the loop exits. It returns nil after Stop and the
// cause otherwise (context error, closed wheel).
func (t *Ticker) Wait() error {
	t.mu.Lock()
	started := t.started
	t.mu.Unlock()
	if !started {
		return errs.TickerNotStarted.Printf("ticker=%s", t.name)
	}
	<-t.done
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the loop exits.
func (t *Ticker) Done() <-chan struct{} {
	return t.done
}

func (t *Ticker) run(ctx context.Context) {
	mlog.Infof("ticker %s start, interval=%s", t.name, t.interval)
	t.finish(t.loop(ctx))
}

func (t *Ticker) loop(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		elapsed, wait := t.cad.advance(t.clk.Now())
		if elapsed > 0 {
			t.emit(elapsed)
			continue
		}
		if err := t.sleeper.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (t *Ticker) emit(elapsed time.Duration) {
	if elapsed > t.interval {
		mlog.Debugf("ticker %s catch up %d intervals, elapsed=%s", t.name, elapsed/t.interval, elapsed)
	}
	t.metrics.Observe(t.name, elapsed, t.interval)
	t.sink.Send(elapsed)
}

func (t *Ticker) finish(err error) {
	t.mu.Lock()
	if t.stopRequested {
		err = nil
	}
	t.err = err
	t.mu.Unlock()
	if err != nil {
		mlog.Warnf("ticker %s exit: %v", t.name, err)
	} else {
		mlog.Infof("ticker %s stopped", t.name)
	}
	close(t.done)
}
