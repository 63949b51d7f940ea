package utils

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

var backOff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second}

// FetchWithBackoff calls fetchFn until it succeeds, attempts are exhausted or ctx ends, sleeping with exponential backoff in between.
func FetchWithBackoff[T any](ctx context.Context, name string, attempts int, fetchFn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for counter := 0; counter < attempts; counter++ {
		if counter > 0 {
			wait := backOff[min(counter-1, len(backOff)-1)]
			log.Warnf("%s: backoff %v after %v", name, wait, lastErr)

			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(wait):
			}
		}

		result, err := fetchFn(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
	}

	return zero, fmt.Errorf("%s: failed after %d attempts: %w", name, attempts, lastErr)
}
