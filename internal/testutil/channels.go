// Package testutil provides shared test helpers for contractwatch.
package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// Common test timeouts
const (
	// DefaultTestTimeout bounds most waits on goroutines and servers
	DefaultTestTimeout = 5 * time.Second

	// ShortTestTimeout is for operations expected to finish at once
	ShortTestTimeout = time.Second
)

// Receive returns the next value from ch or fails the test after timeout
func Receive[T any](t *testing.T, ch <-chan T, timeout time.Duration, msg string) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(timeout):
		require.FailNow(t, msg)
	}
	var zero T
	return zero
}

// NoReceive fails the test if ch yields a value within wait
func NoReceive[T any](t *testing.T, ch <-chan T, wait time.Duration, msg string) {
	t.Helper()
	select {
	case v := <-ch:
		require.Failf(t, msg, "unexpected value %v", v)
	case <-time.After(wait):
	}
}
