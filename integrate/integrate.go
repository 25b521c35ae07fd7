// Package integrate accumulates a signal over ticker events, a discrete
// (Euler) approximation of integrating it over time.
package integrate

import (
	"context"
	"time"

	"github.com/fixkme/flowtime/frp"
	"github.com/fixkme/flowtime/ticker"
)

type sample[A any] struct {
	value   A
	elapsed time.Duration
}

// Func folds one tick into the accumulator. elapsed may be any positive
// multiple of the ticker interval.
type Func[A, B any] func(acc B, value A, elapsed time.Duration) B

// Over integrates a over an existing tick stream. a is sampled in the
// transaction of each tick.
func Over[A, B any](a *frp.Signal[A], initial B, ticks *frp.Stream[time.Duration], f Func[A, B]) *frp.Signal[B] {
	pairs := frp.Snapshot(a, ticks, func(v A, dt time.Duration) sample[A] {
		return sample[A]{value: v, elapsed: dt}
	})
	return frp.Fold(pairs, initial, func(acc B, s sample[A]) B {
		return f(acc, s.value, s.elapsed)
	})
}

// Integral owns the ticker driving its accumulator.
type Integral[B any] struct {
	ticker *ticker.Ticker
	signal *frp.Signal[B]
}

func Integrate[A, B any](ctx context.Context, a *frp.Signal[A], initial B, interval time.Duration, f Func[A, B], opts ...ticker.Option) (*Integral[B], error) {
	tk, err := ticker.New(interval, opts...)
	if err != nil {
		return nil, err
	}
	in := &Integral[B]{
		ticker: tk,
		signal: Over(a, initial, tk.Stream(), f),
	}
	tk.Start(ctx)
	return in, nil
}

// Euler is acc + value*dt in seconds.
func Euler(acc, value float64, elapsed time.Duration) float64 {
	return acc + value*elapsed.Seconds()
}

func Float(ctx context.Context, a *frp.Signal[float64], initial float64, interval time.Duration, opts ...ticker.Option) (*Integral[float64], error) {
	return Integrate(ctx, a, initial, interval, Euler, opts...)
}

func (in *Integral[B]) Signal() *frp.Signal[B] {
	return in.signal
}

func (in *Integral[B]) Ticks() *frp.Stream[time.Duration] {
	return in.ticker.Stream()
}

func (in *Integral[B]) Stop() {
	in.ticker.Stop()
}

func (in *Integral[B]) Done() <-chan struct{} {
	return in.ticker.Done()
}

func (in *Integral[B]) Wait() error {
	return in.ticker.Wait()
}
