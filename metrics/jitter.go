package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

const (
	jitterMinUs = 1
	jitterMaxUs = 60 * 1000 * 1000
	jitterSig   = 3
)

// Jitter 记录相邻两次观测之间的实际墙上间隔, 微秒精度
type Jitter struct {
	mu   sync.Mutex
	hist *hdrhistogram.Histogram
	last time.Time
}

func NewJitter() *Jitter {
	return &Jitter{hist: hdrhistogram.New(jitterMinUs, jitterMaxUs, jitterSig)}
}

// Record 第一次调用只记下时刻
func (j *Jitter) Record(now time.Time) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.last.IsZero() {
		us := now.Sub(j.last).Microseconds()
		if us < jitterMinUs {
			us = jitterMinUs
		}
		_ = j.hist.RecordValue(us)
	}
	j.last = now
}

// Quantile q 取 0-100
func (j *Jitter) Quantile(q float64) time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.hist.ValueAtQuantile(q)) * time.Microsecond
}

func (j *Jitter) Count() int64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.hist.TotalCount()
}

func (j *Jitter) Max() time.Duration {
	j.mu.Lock()
	defer j.mu.Unlock()
	return time.Duration(j.hist.Max()) * time.Microsecond
}
