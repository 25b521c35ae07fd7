// Package timesource exposes clocks as signals whose value is stable for the
// whole of one propagation step.
package timesource

import (
	"sync"
	"time"

	"github.com/armon/go-radix"

	"github.com/fixkme/flowtime/clock"
	"github.com/fixkme/flowtime/frp"
	"github.com/fixkme/flowtime/mlog"
)

// Registry holds one memoized time signal per clock. Clocks are compared
// by identity, so two clocks with the same name still get distinct nodes.
// Clock implementations must be comparable; pointer types are.
type Registry struct {
	mu    sync.Mutex
	nodes map[clock.Clock]*frp.Signal[time.Time]
	names *radix.Tree // name -> 同名时钟个数
}

func NewRegistry() *Registry {
	return &Registry{
		nodes: make(map[clock.Clock]*frp.Signal[time.Time]),
		names: radix.New(),
	}
}

// Signal returns the node for c, creating it on first use.
func (r *Registry) Signal(c clock.Clock) *frp.Signal[time.Time] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sig, ok := r.nodes[c]; ok {
		return sig
	}
	sig := MemoizedSignal(c.Now)
	r.nodes[c] = sig
	n := 0
	if v, ok := r.names.Get(c.Name()); ok {
		n = v.(int)
		mlog.Warnf("timesource clock name %q registered %d times", c.Name(), n+1)
	}
	r.names.Insert(c.Name(), n+1)
	mlog.Debugf("timesource register clock %q", c.Name())
	return sig
}

// Now is the signal of clock.System.
func (r *Registry) Now() *frp.Signal[time.Time] {
	return r.Signal(clock.System)
}

// Names 按字典序返回已注册的时钟名, 同名只出现一次
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, r.names.Len())
	r.names.Walk(func(name string, _ any) bool {
		names = append(names, name)
		return false
	})
	return names
}

// Len 节点个数
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.nodes)
}

// MemoizedSignal wraps sample as a signal evaluated once per transaction.
func MemoizedSignal[T any](sample func() T) *frp.Signal[T] {
	return frp.Lift(sample)
}

func Nanos(sig *frp.Signal[time.Time]) *frp.Signal[int64] {
	return frp.Map(sig, func(t time.Time) int64 { return t.UnixNano() })
}

func Seconds(sig *frp.Signal[time.Time]) *frp.Signal[float64] {
	return frp.Map(sig, func(t time.Time) float64 {
		return float64(t.Unix()) + float64(t.Nanosecond())*1e-9
	})
}
