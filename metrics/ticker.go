package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ticker 所有 ticker 共用一组 collector, 以 ticker 名区分
type Ticker struct {
	ticks    *prometheus.CounterVec
	catchups *prometheus.CounterVec
	missed   *prometheus.CounterVec
	elapsed  *prometheus.CounterVec
}

// NewTicker registers the collectors on reg; nil reg leaves them unregistered.
func NewTicker(reg prometheus.Registerer) *Ticker {
	f := promauto.With(reg)
	labels := []string{tickerLabel}
	return &Ticker{
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Name: TickerTicksN,
			Help: TickerTicksH,
		}, labels),
		catchups: f.NewCounterVec(prometheus.CounterOpts{
			Name: TickerCatchupsN,
			Help: TickerCatchupsH,
		}, labels),
		missed: f.NewCounterVec(prometheus.CounterOpts{
			Name: TickerMissedN,
			Help: TickerMissedH,
		}, labels),
		elapsed: f.NewCounterVec(prometheus.CounterOpts{
			Name: TickerElapsedN,
			Help: TickerElapsedH,
		}, labels),
	}
}

// Observe records one emitted tick. Safe on a nil receiver.
func (m *Ticker) Observe(name string, elapsed, interval time.Duration) {
	if m == nil {
		return
	}
	m.ticks.WithLabelValues(name).Inc()
	m.elapsed.WithLabelValues(name).Add(elapsed.Seconds())
	if n := int64(elapsed / interval); n > 1 {
		m.catchups.WithLabelValues(name).Inc()
		m.missed.WithLabelValues(name).Add(float64(n - 1))
	}
}
