package notifications

import (
	"context"
)

// Limiter bounds how many notification deliveries run at once. Dispatch is
// fire-and-forget, so without a bound a burst of redemptions could pile up
// an unbounded number of goroutines against a slow broker.
type Limiter struct {
	limit chan struct{}
}

func NewLimiter(maxConcurrency int) Limiter {
	serializer := make(chan struct{}, maxConcurrency)
	return Limiter{
		limit: serializer,
	}
}

func (c *Limiter) Do(ctx context.Context, f func()) (canceled bool) {

	select {
	case c.limit <- struct{}{}:
		defer func() {
			<-c.limit
		}()
		f()
		canceled = false
	case <-ctx.Done():
		canceled = true
	}
	return
}
