package g

import (
	"sync"
	"time"

	"github.com/fixkme/flowtime/clock"
)

// RoutineAgent 单协程执行提交的任务和到期的定时器回调
type RoutineAgent struct {
	*Go
	closeSig    chan struct{}
	done        chan struct{}
	isClosed    bool
	mutex       sync.RWMutex
	timerCh     chan *clock.Promise
	timerCb     TimerCb
	beforeClose func()
}

type TimerCb func(tid int64, now time.Time, data any)

func NewRoutineAgent(taskChSize, timerChSize int) *RoutineAgent {
	a := &RoutineAgent{
		Go:       NewGoChan(taskChSize),
		closeSig: make(chan struct{}),
		done:     make(chan struct{}),
		timerCh:  make(chan *clock.Promise, timerChSize),
	}
	return a
}

func (a *RoutineAgent) Init(timerCb TimerCb, beforeClose func()) {
	a.timerCb = timerCb
	a.beforeClose = beforeClose
}

func (a *RoutineAgent) GetTimerReceiver() chan<- *clock.Promise {
	return a.timerCh
}

// Done Run 返回后关闭
func (a *RoutineAgent) Done() <-chan struct{} {
	return a.done
}

func (a *RoutineAgent) Run() {
	defer close(a.done)
	defer a.onClose()

	for {
		select {
		case <-a.closeSig:
			return
		case cb := <-a.Go.ChanCb:
			a.Go.Exec(cb)
		case t := <-a.timerCh:
			if a.timerCb != nil {
				a.Go.Exec(func() { a.timerCb(t.TimerId, t.Now, t.Data) })
			}
		}
	}
}

func (a *RoutineAgent) onClose() {
	if a.beforeClose != nil {
		a.Go.Exec(a.beforeClose)
	}
	// 已提交的任务执行完; 写锁保证此后没有新的提交
	a.mutex.Lock()
	a.Go.Close()
	a.mutex.Unlock()
	for cb := range a.Go.ChanCb {
		a.Go.Exec(cb)
	}
}

func (a *RoutineAgent) Close() {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	if a.isClosed {
		return
	}

	a.isClosed = true
	close(a.closeSig)
}

func (a *RoutineAgent) SyncRunFunc(f func()) (err error) {
	a.mutex.RLock()
	if a.isClosed {
		err = ErrRoutineClosed
		a.mutex.RUnlock()
		return
	}

	errCh := a.Go.SubmitWithResult(f)
	a.mutex.RUnlock()
	err = <-errCh
	return
}

func (a *RoutineAgent) MustRunFunc(f func()) error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	if a.isClosed {
		return ErrRoutineClosed
	}

	a.Go.MustSubmit(f)
	return nil
}
