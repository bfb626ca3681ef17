package analyzer

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// Reference periods.
const (
	DefaultSampleInterval    = time.Second
	DefaultAggregateInterval = 2 * time.Second
)

// Engine runs every sampler and the aggregator as independent goroutines
// sharing one cancellation context.
type Engine struct {
	Samplers   []*Sampler
	Aggregator *Aggregator

	SampleInterval    time.Duration
	AggregateInterval time.Duration
}

// Run starts all loops and blocks until ctx is cancelled and every loop has
// returned. A sampler whose Init fails stops alone; the others keep running.
// The returned error joins the Init failures, if any.
func (e *Engine) Run(ctx context.Context) error {
	sample := e.SampleInterval
	if sample <= 0 {
		sample = DefaultSampleInterval
	}
	aggregate := e.AggregateInterval
	if aggregate <= 0 {
		aggregate = DefaultAggregateInterval
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, s := range e.Samplers {
		wg.Add(1)
		go func(s *Sampler) {
			defer wg.Done()
			ticker := time.NewTicker(sample)
			defer ticker.Stop()
			if err := s.Run(ctx, ticker.C); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(s)
	}

	if e.Aggregator != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ticker := time.NewTicker(aggregate)
			defer ticker.Stop()
			e.Aggregator.Run(ctx, ticker.C)
		}()
	}

	log.Printf("engine: %d samplers every %v, aggregation every %v", len(e.Samplers), sample, aggregate)
	wg.Wait()
	log.Printf("engine: all loops stopped")
	return errors.Join(errs...)
}
