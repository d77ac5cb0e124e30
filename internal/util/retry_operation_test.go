package util

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryOperationSucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := RetryOperation(context.Background(), time.Millisecond, 5, func() error {
		attempts++
		if attempts < 3 {
			return fmt.Errorf("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryOperationBounded(t *testing.T) {
	attempts := 0
	err := RetryOperation(context.Background(), time.Millisecond, 2, func() error {
		attempts++
		return fmt.Errorf("always failing")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryOperationPermanent(t *testing.T) {
	attempts := 0
	err := RetryOperation(context.Background(), time.Millisecond, 10, func() error {
		attempts++
		return backoff.Permanent(fmt.Errorf("fatal"))
	})
	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}
