// Package utils provides small helpers shared by the editor packages.
package utils

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig describes an exponential backoff.
type RetryConfig struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
	MaxElapsed   time.Duration // 0 means until the context ends
}

// DefaultRetryConfig is used when waiting for the generation service to come up.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		Jitter:       true,
		MaxElapsed:   time.Minute,
	}
}

// NewExponentialBackOff creates a backoff.ExponentialBackOff from RetryConfig.
func (rc RetryConfig) NewExponentialBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = rc.InitialDelay
	b.MaxInterval = rc.MaxDelay
	b.Multiplier = rc.Multiplier
	b.MaxElapsedTime = rc.MaxElapsed
	if !rc.Jitter {
		b.RandomizationFactor = 0
	}
	b.Reset()
	return b
}

// ExecuteWithRetryContext runs operation until it succeeds, the backoff gives
// up or ctx ends. notify, if set, is called before every wait.
func ExecuteWithRetryContext(ctx context.Context, operation func() error, config RetryConfig, notify func(err error, next time.Duration)) error {
	b := backoff.WithContext(config.NewExponentialBackOff(), ctx)

	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		return fmt.Errorf("operation failed after retries: %w", err)
	}
	return nil
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
