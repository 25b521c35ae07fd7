package clock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/fixkme/flowtime/errs"
	"github.com/fixkme/flowtime/mlog"
)

const (
	_DEFAULT_SI       = 10 // ms
	_TIME_WHEEL_LEVEL = 4
	_TASK_CHAN_SIZE   = 10240
)

var (
	_LEVEL_DIVIS = [_TIME_WHEEL_LEVEL]int64{0, 10, 18, 24}
	_LEVEL_SLOTS = [_TIME_WHEEL_LEVEL]int64{1 << 10, 1 << 8, 1 << 6, 1 << 6}
	_LEVEL_MASKS = [_TIME_WHEEL_LEVEL]int64{}
	_LEVEL_TICKS = [_TIME_WHEEL_LEVEL]int64{}
)

func init() {
	for i := 0; i < _TIME_WHEEL_LEVEL; i++ {
		_LEVEL_MASKS[i] = _LEVEL_SLOTS[i] - 1
		if i > 0 {
			_LEVEL_TICKS[i] = _LEVEL_SLOTS[i] * _LEVEL_TICKS[i-1]
		} else {
			_LEVEL_TICKS[i] = _LEVEL_SLOTS[i]
		}
	}
}

// Wheel 多层时间轮, 所有定时器由一个协程驱动.
// 除 Start 外的方法都通过 taskch 投递到该协程执行, 不能在 receiver 回调所在的
// 时间轮协程内调用.
type Wheel struct {
	clk      Clock
	epoch    time.Time
	si       int64 // 每格毫秒数
	genId    int64
	lastTime int64
	slot     [_TIME_WHEEL_LEVEL]int64 //每层的指针位置
	tw       [_TIME_WHEEL_LEVEL]timeWheel
	taskch   chan func()
	started  atomic.Bool
	closed   atomic.Bool
	stopped  chan struct{}
	locs     map[int64]*_Timer //记录位置
}

type timeWheel []*_List

type WheelOption func(*Wheel)

// WithResolution 每格精度, 不足 1ms 按 1ms
func WithResolution(d time.Duration) WheelOption {
	return func(w *Wheel) {
		ms := d.Milliseconds()
		if ms < 1 {
			ms = 1
		}
		w.si = ms
	}
}

func WithWheelClock(c Clock) WheelOption {
	return func(w *Wheel) {
		w.clk = c
	}
}

func NewWheel(opts ...WheelOption) *Wheel {
	c := &Wheel{
		clk:     System,
		si:      _DEFAULT_SI,
		taskch:  make(chan func(), _TASK_CHAN_SIZE),
		stopped: make(chan struct{}),
		locs:    make(map[int64]*_Timer),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.epoch = c.clk.Now()
	for i := 0; i < _TIME_WHEEL_LEVEL; i++ {
		c.slot[i] = 0
		c.tw[i] = make(timeWheel, _LEVEL_SLOTS[i])
	}
	return c
}

func (c *Wheel) Resolution() time.Duration {
	return time.Duration(c.si) * time.Millisecond
}

func (c *Wheel) Clock() Clock {
	return c.clk
}

// Start 只有第一次调用生效, quit 关闭后时间轮停止
func (c *Wheel) Start(quit <-chan struct{}) {
	if !c.started.CompareAndSwap(false, true) {
		return
	}
	go c.run(quit)
}

// Done 时间轮协程退出后关闭
func (c *Wheel) Done() <-chan struct{} {
	return c.stopped
}

func (c *Wheel) NewTimer(when time.Time, data any, receiver chan<- *Promise) (id int64, err error) {
	t := &_Timer{
		when:     c.toMs(when),
		data:     data,
		receiver: receiver,
	}
	err = c.pushTask(func() {
		c.genId++
		t.id = c.genId
		c.addTimer(t)
		id = t.id
	})
	return
}

func (c *Wheel) CancelTimer(id int64) (ok bool, err error) {
	err = c.pushTask(func() {
		t := c.delTimer(id)
		ok = t != nil
	})
	return
}

func (c *Wheel) UpdateTimer(id int64, when time.Time) (ok bool, err error) {
	ms := c.toMs(when)
	err = c.pushTask(func() {
		ok = c.updateTimer(id, ms)
	})
	return
}

// Sleep 挂起至少 d, ctx 取消时撤销定时器
func (c *Wheel) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	ch := make(chan *Promise, 1)
	id, err := c.NewTimer(c.clk.Now().Add(d), nil, ch)
	if err != nil {
		return err
	}
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		_, _ = c.CancelTimer(id)
		return ctx.Err()
	case <-c.stopped:
		return errs.WheelClosed
	}
}

func (c *Wheel) toMs(t time.Time) int64 {
	return t.Sub(c.epoch).Milliseconds()
}

func (c *Wheel) fromMs(ms int64) time.Time {
	return c.epoch.Add(time.Duration(ms) * time.Millisecond)
}

func (c *Wheel) addTimer(timer *_Timer) {
	var ticks, level, slot int64
	ticks = (timer.when - c.lastTime + c.si - 1) / c.si //diff 向上取整
	if ticks <= 0 {
		ticks = 1
	}
	for level = 0; level < _TIME_WHEEL_LEVEL; level++ {
		if ticks < _LEVEL_TICKS[level] {
			slot = ((ticks >> _LEVEL_DIVIS[level]) + c.slot[level]) & _LEVEL_MASKS[level]
			break
		}
	}
	if level == _TIME_WHEEL_LEVEL {
		// 超出最大跨度, 放在最高层当前指针的前一格, 转一圈后再重新计算
		level--
		slot = (c.slot[level] + _LEVEL_MASKS[level]) & _LEVEL_MASKS[level]
	}
	mlog.Tracef("wheel add timer [%d, %d, %d], when=%d, lastTime=%d, ticks:%d", timer.id, level, slot, timer.when, c.lastTime, ticks)
	c.putTimer(level, slot, timer)
}

func (c *Wheel) putTimer(level, slot int64, timer *_Timer) {
	timerList := c.tw[level][slot]
	if timerList == nil {
		timerList = newTimerList()
		c.tw[level][slot] = timerList
	}
	timerList.PushBack(timer)
	c.locs[timer.id] = timer
}

func (c *Wheel) delTimer(id int64) *_Timer {
	timer, ok := c.locs[id]
	if ok {
		timer.removeFromList()
		delete(c.locs, id)
		return timer
	}
	return nil
}

func (c *Wheel) updateTimer(id int64, when int64) bool {
	t := c.delTimer(id)
	if t != nil {
		t.when = when
		c.addTimer(t)
		return true
	}
	return false
}

func (c *Wheel) trigger(nowMs int64) {
	timerList := c.tw[0][c.slot[0]]
	if timerList == nil {
		return
	}
	now := c.fromMs(nowMs)
	timerList.PopRange(func(timer *_Timer) bool {
		delete(c.locs, timer.id)
		if timer.when <= nowMs {
			promise := &Promise{TimerId: timer.id, Now: now, Data: timer.data}
			select {
			case timer.receiver <- promise:
			default:
				c.putTimer(0, (c.slot[0]+1)&_LEVEL_MASKS[0], timer) //放入下一个tick
			}
		} else {
			// 重新加入时间轮, 一般是下一次tick
			c.addTimer(timer)
		}
		return true
	})
}

func (c *Wheel) tick(nowMs, tkTime int64) {
	c.slot[0] = (c.slot[0] + 1) & _LEVEL_MASKS[0]
	// 0层触发定时器
	c.trigger(nowMs)
	// 高层轮动
	var level, slot, ticks int64
	for i := 1; i < _TIME_WHEEL_LEVEL; i++ {
		if c.slot[i-1] != 0 {
			break
		}
		c.slot[i] = (c.slot[i] + 1) & _LEVEL_MASKS[i]
		timerList := c.tw[i][c.slot[i]]
		if timerList == nil {
			continue
		}
		timerList.PopRange(func(timer *_Timer) bool {
			//加入到下一层
			ticks = (timer.when - tkTime + c.si - 1) / c.si //diff 向上取整
			if ticks <= 0 {
				ticks = 1
			}
			for level = 0; level < _TIME_WHEEL_LEVEL; level++ {
				if ticks < _LEVEL_TICKS[level] {
					slot = ((ticks >> _LEVEL_DIVIS[level]) + c.slot[level]) & _LEVEL_MASKS[level]
					break
				}
			}
			if level == _TIME_WHEEL_LEVEL {
				level--
				slot = (c.slot[level] + _LEVEL_MASKS[level]) & _LEVEL_MASKS[level]
			}
			c.putTimer(level, slot, timer)
			return true
		})
	}
}

func (c *Wheel) run(quit <-chan struct{}) {
	defer close(c.stopped)
	tickTimeSpan := c.Resolution()
	tickTimer := time.NewTimer(tickTimeSpan)
	defer tickTimer.Stop()
	nowMs := c.toMs(c.clk.Now())
	c.lastTime = nowMs
	var tk int64
	for {
		select {
		case <-quit:
			c.closed.Store(true)
			return
		case <-tickTimer.C:
			nowMs = c.toMs(c.clk.Now())
			tk = c.lastTime + c.si
			c.lastTime += c.si * ((nowMs - c.lastTime) / c.si)
			for ; tk <= c.lastTime; tk += c.si {
				c.tick(nowMs, tk)
			}
			tickTimer.Reset(tickTimeSpan)
		case fn := <-c.taskch:
			fn()
		}
	}
}

func (c *Wheel) pushTask(f func()) (err error) {
	if c.closed.Load() {
		return errs.WheelClosed
	}
	done := make(chan struct{})
	ff := func() {
		defer close(done)
		f()
	}
	select {
	case c.taskch <- ff:
	default:
		return errs.WheelBusy.Printf("task channel full")
	}
	select {
	case <-done:
	case <-c.stopped:
		// 退出前可能已经执行完
		select {
		case <-done:
		default:
			err = errs.WheelClosed
		}
	}
	return
}
