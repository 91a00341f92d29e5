package calibration

import (
	"context"
	"sync"
)

// Baseline is the reference measurement of a batch. It is written once,
// by the first successful image, and only read afterwards. All methods are
// safe for concurrent use.
type Baseline struct {
	once  sync.Once
	ready chan struct{}
	init  sync.Once

	source string
	value  Measurement
}

func (b *Baseline) readyCh() chan struct{} {
	b.init.Do(func() { b.ready = make(chan struct{}) })
	return b.ready
}

// Publish records m as the baseline if none was published yet and reports
// whether this call won.
func (b *Baseline) Publish(source string, m Measurement) bool {
	ch := b.readyCh()
	won := false
	b.once.Do(func() {
		b.source = source
		b.value = m
		won = true
		close(ch)
	})
	return won
}

// Get returns the baseline without blocking.
func (b *Baseline) Get() (Measurement, string, bool) {
	select {
	case <-b.readyCh():
		return b.value, b.source, true
	default:
		return Measurement{}, "", false
	}
}

// Wait blocks until the baseline is published or ctx is done.
func (b *Baseline) Wait(ctx context.Context) (Measurement, string, error) {
	select {
	case <-b.readyCh():
		return b.value, b.source, nil
	case <-ctx.Done():
		return Measurement{}, "", ctx.Err()
	}
}
