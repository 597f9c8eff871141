package clients

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/nebula-fdw/pkg/config"
	"github.com/ajitpratap0/nebula-fdw/pkg/errors"
)

func TestRetryPolicyExecute(t *testing.T) {
	retryable := errors.New(errors.ErrorTypeConnection, "reset")
	permanent := errors.New(errors.ErrorTypeAuthentication, "denied")

	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantErr   error
	}{
		{"success first try", nil, 1, nil},
		{"recovers after retry", []error{retryable}, 2, nil},
		{"permanent error stops", []error{permanent, nil}, 1, permanent},
		{"attempts exhausted", []error{retryable, retryable, retryable, retryable}, 3, retryable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := fastRetry(3).Execute(context.Background(), func() error {
				calls++
				if calls <= len(tt.failures) {
					return tt.failures[calls-1]
				}
				return nil
			}, nil)
			assert.Equal(t, tt.wantCalls, calls)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.Same(t, tt.wantErr, err)
		})
	}
}

func TestRetryPolicyCancelledDuringBackoff(t *testing.T) {
	rp := &RetryPolicy{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 1}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := rp.Execute(ctx, func() error {
		calls++
		cancel()
		return errors.New(errors.ErrorTypeTimeout, "slow")
	}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRetryPolicyDelay(t *testing.T) {
	rp := &RetryPolicy{InitialDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, rp.Delay(0))
	assert.Equal(t, 400*time.Millisecond, rp.Delay(2))
	assert.Equal(t, time.Second, rp.Delay(10))

	rp.RandomizeFactor = 0.5
	for i := 0; i < 20; i++ {
		d := rp.Delay(1)
		assert.GreaterOrEqual(t, d, 100*time.Millisecond)
		assert.LessOrEqual(t, d, 300*time.Millisecond)
	}
}

func TestRetryPolicyFromConfig(t *testing.T) {
	rel := config.NewBaseConfig("t", "rest").Reliability
	rel.RetryAttempts = 0
	rp := RetryPolicyFromConfig(rel)
	assert.Equal(t, 1, rp.MaxAttempts)
	assert.Equal(t, time.Second, rp.InitialDelay)
	assert.Equal(t, 30*time.Second, rp.MaxDelay)
}
