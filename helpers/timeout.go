package helpers

import (
	"context"
	"time"
)

// RunWithTimeout runs fn and gives up once ctx is done or timeout elapses.
// fn keeps running in the background after a timeout; its result is dropped.
func RunWithTimeout(ctx context.Context, timeout time.Duration, fn func() error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
