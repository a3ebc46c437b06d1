package common

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/shared-ledger/internal/service"
)

func fastRetry() service.RetryOptions {
	return service.RetryOptions{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		Multiplier:   1,
	}
}

func TestWithRetry_RetriesRetryableErrors(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		if attempts < 3 {
			return &RetryableError{Err: errors.New("database is locked"), Retryable: true}
		}
		return nil
	}, fastRetry())

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	attempts := 0
	permanent := Validation(CodeMissingField, "asset is required")
	err := WithRetry(context.Background(), func() error {
		attempts++
		return permanent
	}, fastRetry())

	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, attempts)
}

func TestWithRetry_GivesUp(t *testing.T) {
	attempts := 0
	err := WithRetry(context.Background(), func() error {
		attempts++
		return &RetryableError{Err: errors.New("busy"), Retryable: true}
	}, fastRetry())

	assert.ErrorIs(t, err, ErrMaxRetries)
	assert.Equal(t, 3, attempts)
}

func TestWithRetry_HonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	opts := fastRetry()
	opts.InitialDelay = time.Hour
	opts.MaxDelay = time.Hour

	err := WithRetry(ctx, func() error {
		return &RetryableError{Err: errors.New("busy"), Retryable: true}
	}, opts)

	assert.ErrorIs(t, err, context.Canceled)
}
