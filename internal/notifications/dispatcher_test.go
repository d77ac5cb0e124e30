package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterBoundsConcurrency(t *testing.T) {
	limiter := NewLimiter(2)

	var running, peak int32
	done := make(chan struct{}, 8)
	for i := 0; i < 8; i++ {
		go func() {
			limiter.Do(context.Background(), func() {
				now := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if now <= old || atomic.CompareAndSwapInt32(&peak, old, now) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
			})
			done <- struct{}{}
		}()
	}
	for i := 0; i < 8; i++ {
		<-done
	}
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestLimiterCanceled(t *testing.T) {
	limiter := NewLimiter(1)

	block := make(chan struct{})
	go limiter.Do(context.Background(), func() {
		<-block
	})
	defer close(block)

	// give the first caller time to take the slot
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	canceled := limiter.Do(ctx, func() {
		t.Fatal("should not run")
	})
	require.True(t, canceled)
}
