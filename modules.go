package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fixkme/flowtime/clock"
	"github.com/fixkme/flowtime/framework/config"
	"github.com/fixkme/flowtime/frp"
	"github.com/fixkme/flowtime/integrate"
	"github.com/fixkme/flowtime/metrics"
	"github.com/fixkme/flowtime/ticker"
	"github.com/fixkme/flowtime/timesource"
)

// stopOnDone 等 ctx 结束或 ticker 退出, 然后返回 ticker 的退出原因
func stopOnDone(ctx context.Context, done <-chan struct{}, stop func(), wait func() error) error {
	select {
	case <-ctx.Done():
		stop()
	case <-done:
	}
	return wait()
}

type tickModule struct {
	conf   *config.AppConfig
	tm     *metrics.Ticker
	jitter *metrics.Jitter
	out    io.Writer

	quit   chan struct{}
	group  *ticker.Group
	ticker *ticker.Ticker
	cancel func()
}

func newTickModule(conf *config.AppConfig, tm *metrics.Ticker, jitter *metrics.Jitter, out io.Writer) *tickModule {
	return &tickModule{conf: conf, tm: tm, jitter: jitter, out: out, quit: make(chan struct{})}
}

func (m *tickModule) Name() string {
	return "tick"
}

func (m *tickModule) OnInit() (err error) {
	opts := []ticker.Option{ticker.WithName("tick"), ticker.WithMetrics(m.tm)}
	if m.conf.UseWheel {
		w := clock.NewWheel(clock.WithResolution(m.conf.WheelResolution()))
		w.Start(m.quit)
		m.group = ticker.NewGroup(w)
		m.ticker, err = m.group.Add(m.conf.Interval(), opts...)
	} else {
		m.ticker, err = ticker.New(m.conf.Interval(), opts...)
	}
	if err != nil {
		m.Destroy()
		return err
	}
	m.cancel = m.ticker.Stream().Subscribe(func(time.Duration) {
		m.jitter.Record(time.Now())
		fmt.Fprintln(m.out, "tick")
	})
	m.ticker.Start(context.Background())
	return nil
}

func (m *tickModule) Run(ctx context.Context) error {
	return stopOnDone(ctx, m.ticker.Done(), m.ticker.Stop, m.ticker.Wait)
}

func (m *tickModule) Destroy() {
	if m.ticker != nil {
		m.ticker.Stop()
	}
	if m.cancel != nil {
		m.cancel()
	}
	if m.group != nil {
		m.group.Close()
	}
	select {
	case <-m.quit:
	default:
		close(m.quit)
	}
}

// integrateModule 打印当前时间 (秒) 的积分
type integrateModule struct {
	conf *config.AppConfig
	tm   *metrics.Ticker
	out  io.Writer

	in     *integrate.Integral[float64]
	cancel func()
}

func newIntegrateModule(conf *config.AppConfig, tm *metrics.Ticker, out io.Writer) *integrateModule {
	return &integrateModule{conf: conf, tm: tm, out: out}
}

func (m *integrateModule) Name() string {
	return "integrate"
}

func (m *integrateModule) OnInit() (err error) {
	reg := timesource.NewRegistry()
	seconds := timesource.Seconds(reg.Now())
	m.in, err = integrate.Float(context.Background(), seconds, 0, m.conf.IntegrateInterval(),
		ticker.WithName("integrate"), ticker.WithMetrics(m.tm))
	if err != nil {
		return err
	}
	printed := frp.Snapshot(m.in.Signal(), m.in.Ticks(), func(v float64, _ time.Duration) float64 { return v })
	m.cancel = printed.Subscribe(func(v float64) {
		fmt.Fprintf(m.out, "tick %e\n", v)
	})
	return nil
}

func (m *integrateModule) Run(ctx context.Context) error {
	return stopOnDone(ctx, m.in.Done(), m.in.Stop, m.in.Wait)
}

func (m *integrateModule) Destroy() {
	if m.in != nil {
		m.in.Stop()
	}
	if m.cancel != nil {
		m.cancel()
	}
}
