package source

import (
	"context"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region constants
const (
	maxRetries  = 2 // 3 total attempts
	baseBackoff = 50 * time.Millisecond
)
// #endregion constants

// #region should-retry
// shouldRetry reports whether a failed attempt may be repeated. attempt
// counts the attempts made so far, including the one that produced err.
func shouldRetry(ctx context.Context, err error, attempt int) bool {
	if err == nil || attempt > maxRetries || ctx.Err() != nil {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted, codes.Aborted:
		return true
	}
	return false
}

// backoff waits before the next attempt, doubling per attempt.
func backoff(ctx context.Context, attempt int) error {
	t := time.NewTimer(baseBackoff << (attempt - 1))
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
// #endregion should-retry
