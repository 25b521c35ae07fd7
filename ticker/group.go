package ticker

import (
	"time"

	"github.com/fixkme/flowtime/clock"
	"github.com/fixkme/flowtime/errs"
	g "github.com/fixkme/flowtime/framework/go"
	"github.com/fixkme/flowtime/mlog"
)

const groupTimerChSize = 4096

// Group runs many tickers on one goroutine, using a shared wheel as the
// deadline queue. Events of every ticker in the group are sent from that
// goroutine, so a slow subscriber delays the whole group. A subscriber
// that panics stops its own ticker with errs.TickerPanicked; the rest of
// the group keeps running.
type Group struct {
	wheel   *clock.Wheel
	agent   *g.RoutineAgent
	tickers map[*Ticker]struct{} // 只在 agent 协程访问
	firing  *Ticker              // 正在发送事件的 ticker
}

// NewGroup needs a started wheel.
func NewGroup(w *clock.Wheel) *Group {
	gr := &Group{
		wheel:   w,
		agent:   g.NewRoutineAgent(0, groupTimerChSize),
		tickers: make(map[*Ticker]struct{}),
	}
	gr.agent.Init(gr.onTimer, gr.onClose)
	gr.agent.SetPanicHandler(gr.onPanic)
	go gr.agent.Run()
	return gr
}

// Add creates a ticker driven by the group. It is already running; Start
// does nothing on it. The wheel's clock overrides any WithClock option.
func (gr *Group) Add(interval time.Duration, opts ...Option) (*Ticker, error) {
	opts = append(opts, WithClock(gr.wheel.Clock()))
	t, err := New(interval, opts...)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.started = true
	t.group = gr
	t.mu.Unlock()
	t.cad.last = t.clk.Now()
	err = gr.agent.MustRunFunc(func() {
		gr.tickers[t] = struct{}{}
		mlog.Infof("ticker %s join group, interval=%s", t.name, t.interval)
		gr.arm(t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Close stops every ticker of the group and waits for the group goroutine.
func (gr *Group) Close() {
	gr.agent.Close()
	<-gr.agent.Done()
}

// Len 组内运行中的 ticker 个数, 组关闭后为 0
func (gr *Group) Len() int {
	n := 0
	if err := gr.agent.SyncRunFunc(func() { n = len(gr.tickers) }); err != nil {
		return 0
	}
	return n
}

func (gr *Group) arm(t *Ticker) {
	id, err := gr.wheel.NewTimer(t.cad.last.Add(t.interval), t, gr.agent.GetTimerReceiver())
	if err != nil {
		gr.drop(t, err)
		return
	}
	t.timerId = id
}

func (gr *Group) onTimer(tid int64, _ time.Time, data any) {
	t, ok := data.(*Ticker)
	if !ok {
		return
	}
	if _, live := gr.tickers[t]; !live || t.timerId != tid {
		return
	}
	gr.firing = t
	for {
		elapsed, _ := t.cad.advance(t.clk.Now())
		if elapsed <= 0 {
			break
		}
		t.emit(elapsed)
	}
	gr.firing = nil
	gr.arm(t)
}

func (gr *Group) onPanic(r any) {
	t := gr.firing
	gr.firing = nil
	if t == nil {
		mlog.Errorf("ticker group panic: %v", r)
		return
	}
	mlog.Errorf("ticker %s subscriber panic: %v", t.name, r)
	gr.drop(t, errs.TickerPanicked.Printf("ticker=%s, %v", t.name, r))
}

func (gr *Group) remove(t *Ticker) {
	if err := gr.agent.MustRunFunc(func() { gr.drop(t, nil) }); err != nil {
		// 已关闭, onClose 会处理
		mlog.Debugf("ticker %s remove after group close", t.name)
	}
}

func (gr *Group) drop(t *Ticker, err error) {
	if _, ok := gr.tickers[t]; !ok {
		return
	}
	delete(gr.tickers, t)
	if t.timerId != 0 {
		_, _ = gr.wheel.CancelTimer(t.timerId)
	}
	t.finish(err)
}

func (gr *Group) onClose() {
	for t := range gr.tickers {
		gr.drop(t, nil)
	}
}
