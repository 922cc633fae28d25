// Package chflow provides context-aware helpers for receiving from and
// sending to Go channels, so channel operations respect cancellation and
// deadlines via context.Context.
package chflow

import (
	"context"
	"time"
)

// Receive waits to receive a value from ch or for ctx to be canceled.
// It returns the value (zero value if canceled) and whether the receive
// succeeded.
func Receive[T any](ctx context.Context, ch <-chan T) (T, bool) {
	var data T
	select {
	case <-ctx.Done():
		return data, false
	case data, ok := <-ch:
		return data, ok
	}
}

// Send attempts to send data to ch unless ctx is canceled first.
// It returns true if the send happened.
func Send[T any](ctx context.Context, ch chan<- T, data T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- data:
		return true
	}
}

// Sleep blocks for d or until ctx is canceled, whichever comes first.
// It returns false if the context was canceled before the full duration
// elapsed, making polling loops promptly interruptible on shutdown.
func Sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
