package util

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoWithWaitGroup(t *testing.T) {
	wg := &sync.WaitGroup{}
	var counter int32
	for i := 0; i < 5; i++ {
		GoWithWaitGroup(wg, func() {
			atomic.AddInt32(&counter, 1)
		})
	}
	wg.Wait()
	assert.Equal(t, int32(5), atomic.LoadInt32(&counter))
}

func TestGoWithNilWaitGroup(t *testing.T) {
	done := make(chan struct{})
	GoWithWaitGroup(nil, func() {
		close(done)
	})
	<-done
}
