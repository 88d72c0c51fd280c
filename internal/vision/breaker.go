package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/fermwise/farm-monitoring/internal/domain"
)

// Breaker stops calling a failing backend for a while once it trips.
type Breaker struct {
	next Analyzer
	cb   *gobreaker.CircuitBreaker
}

type BreakerSettings struct {
	Name     string
	Failures uint32
	Open     time.Duration
	Interval time.Duration
}

func NewBreaker(next Analyzer, s BreakerSettings) *Breaker {
	if s.Failures == 0 {
		s.Failures = 3
	}
	return &Breaker{
		next: next,
		cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     s.Name,
			Interval: s.Interval,
			Timeout:  s.Open,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= s.Failures
			},
		}),
	}
}

func (b *Breaker) Analyze(ctx context.Context, img domain.ImageRequest) (domain.CropHealth, error) {
	res, err := b.cb.Execute(func() (any, error) {
		return b.next.Analyze(ctx, img)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return domain.CropHealth{}, fmt.Errorf("%w: %v", ErrAnalysisUnavailable, err)
		}
		return domain.CropHealth{}, err
	}
	return res.(domain.CropHealth), nil
}

// State exposes the breaker state for health reporting.
func (b *Breaker) State() string {
	return b.cb.State().String()
}
