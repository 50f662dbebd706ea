package inventory

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttled paces the queries a Source sends to the inventory service.
// Queries stay sequential; each one waits for a token first.
type Throttled struct {
	Source
	limiter *rate.Limiter
}

// NewThrottled allows qps queries per second with a burst of one.
// A non-positive qps returns src unchanged.
func NewThrottled(src Source, qps float64) Source {
	if qps <= 0 {
		return src
	}
	return &Throttled{
		Source:  src,
		limiter: rate.NewLimiter(rate.Limit(qps), 1),
	}
}

func (t *Throttled) ListNodes(ctx context.Context) ([]string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, connErr(t.Name(), "throttle", err)
	}
	return t.Source.ListNodes(ctx)
}

func (t *Throttled) LatestReports(ctx context.Context, node string) ([]Report, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, connErr(t.Name(), "throttle", err)
	}
	return t.Source.LatestReports(ctx, node)
}
