package frp

import (
	"context"
	"errors"
	"sync"
)

var ErrEventsClosed = errors.New("frp: events closed")

// Stream is a push-based sequence of discrete events.
type Stream[T any] struct {
	mu   sync.Mutex
	seq  uint64
	subs map[uint64]func(tx *Transaction, v T)
}

func newStream[T any]() *Stream[T] {
	return &Stream[T]{subs: make(map[uint64]func(tx *Transaction, v T))}
}

func (s *Stream[T]) listen(f func(tx *Transaction, v T)) (cancel func()) {
	s.mu.Lock()
	s.seq++
	id := s.seq
	s.subs[id] = f
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Stream[T]) fire(tx *Transaction, v T) {
	s.mu.Lock()
	subs := make([]func(*Transaction, T), 0, len(s.subs))
	for _, f := range s.subs {
		subs = append(subs, f)
	}
	s.mu.Unlock()
	for _, f := range subs {
		f(tx, v)
	}
}

// Subscribe calls f for every event after its transaction commits, on the
// goroutine that sent the event. A slow f slows the sender.
func (s *Stream[T]) Subscribe(f func(T)) (cancel func()) {
	return s.listen(func(tx *Transaction, v T) {
		tx.afterCommit(func() { f(v) })
	})
}

// Events returns a blocking iterator over future events. Sends never block
// on it: events queue until read.
func (s *Stream[T]) Events() *Events[T] {
	e := &Events[T]{
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
	e.cancel = s.listen(func(_ *Transaction, v T) {
		e.push(v)
	})
	return e
}

// Snapshot pairs every event of st with the value of sig in the same
// transaction.
func Snapshot[A, B, C any](sig *Signal[A], st *Stream[B], f func(A, B) C) *Stream[C] {
	out := newStream[C]()
	st.listen(func(tx *Transaction, b B) {
		out.fire(tx, f(sig.sample(tx), b))
	})
	return out
}

func MapStream[A, B any](st *Stream[A], f func(A) B) *Stream[B] {
	out := newStream[B]()
	st.listen(func(tx *Transaction, a A) {
		out.fire(tx, f(a))
	})
	return out
}

func Filter[T any](st *Stream[T], keep func(T) bool) *Stream[T] {
	out := newStream[T]()
	st.listen(func(tx *Transaction, v T) {
		if keep(v) {
			out.fire(tx, v)
		}
	})
	return out
}

// Sink injects events into its stream. Send is safe from any goroutine.
type Sink[T any] struct {
	stream *Stream[T]
}

func NewSink[T any]() *Sink[T] {
	return &Sink[T]{stream: newStream[T]()}
}

func (k *Sink[T]) Stream() *Stream[T] {
	return k.stream
}

func (k *Sink[T]) Send(v T) {
	commit(func(tx *Transaction) {
		k.stream.fire(tx, v)
	})
}

type Events[T any] struct {
	mu        sync.Mutex
	queue     []T
	notify    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
	cancel    func()
}

func (e *Events[T]) push(v T) {
	e.mu.Lock()
	e.queue = append(e.queue, v)
	e.mu.Unlock()
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

func (e *Events[T]) pop() (v T, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return
	}
	v = e.queue[0]
	var zero T
	e.queue[0] = zero
	e.queue = e.queue[1:]
	return v, true
}

// Next blocks until the next event; false once closed and drained.
func (e *Events[T]) Next() (T, bool) {
	v, err := e.NextContext(context.Background())
	return v, err == nil
}

func (e *Events[T]) NextContext(ctx context.Context) (T, error) {
	for {
		if v, ok := e.pop(); ok {
			return v, nil
		}
		select {
		case <-e.notify:
		case <-e.closed:
			if v, ok := e.pop(); ok {
				return v, nil
			}
			var zero T
			return zero, ErrEventsClosed
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Len 已到达未读取的事件数
func (e *Events[T]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

func (e *Events[T]) Close() {
	e.closeOnce.Do(func() {
		e.cancel()
		close(e.closed)
	})
}
