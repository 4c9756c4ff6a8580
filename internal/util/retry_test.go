// ABOUTME: Tests for the backoff helper shared by the generation backends
// ABOUTME: Verifies exponential bounds, the 30s ceiling, and jitter spread
package util

import (
	"testing"
	"time"
)

func TestCalculateBackoffBounds(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		attempt int
		min     time.Duration
		max     time.Duration
	}{
		{
			name:    "first retry",
			base:    2 * time.Second, // the configured default retry delay
			attempt: 1,
			min:     3 * time.Second, // 4s -25%
			max:     5 * time.Second, // 4s +25%
		},
		{
			name:    "second retry",
			base:    2 * time.Second,
			attempt: 2,
			min:     6 * time.Second,
			max:     10 * time.Second,
		},
		{
			name:    "third retry with short base",
			base:    50 * time.Millisecond,
			attempt: 3,
			min:     300 * time.Millisecond,
			max:     500 * time.Millisecond,
		},
		{
			name:    "ceiling reached",
			base:    2 * time.Second,
			attempt: 6, // 128s uncapped
			min:     22500 * time.Millisecond,
			max:     37500 * time.Millisecond,
		},
		{
			name:    "huge attempt does not overflow",
			base:    time.Second,
			attempt: 500,
			min:     22500 * time.Millisecond,
			max:     37500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateBackoff(tt.base, tt.attempt)
			if got < tt.min || got > tt.max {
				t.Errorf("CalculateBackoff(%v, %d) = %v, want between %v and %v",
					tt.base, tt.attempt, got, tt.min, tt.max)
			}
		})
	}
}

func TestCalculateBackoffNoDelayBeforeFirstAttempt(t *testing.T) {
	for _, attempt := range []int{0, -1, -42} {
		if got := CalculateBackoff(time.Second, attempt); got != 0 {
			t.Errorf("CalculateBackoff(1s, %d) = %v, want 0", attempt, got)
		}
	}
}

func TestCalculateBackoffJitterVaries(t *testing.T) {
	base := 500 * time.Millisecond
	first := CalculateBackoff(base, 3)

	varied := false
	for i := 0; i < 50; i++ {
		if CalculateBackoff(base, 3) != first {
			varied = true
			break
		}
	}
	if !varied {
		t.Error("50 samples produced the identical backoff, jitter not applied")
	}
}
