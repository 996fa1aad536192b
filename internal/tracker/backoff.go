package tracker

import "time"

// Backoff controls how the client retries rate-limited requests. Sleep is
// injectable so retry behavior is testable without wall-clock delays.
type Backoff struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Sleep       func(time.Duration)
}

// DefaultBackoff returns the production retry policy.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
	}
}

// delay returns the wait before retrying after the given zero-based attempt:
// base * 2^attempt.
func (b Backoff) delay(attempt int) time.Duration {
	return b.BaseDelay << attempt
}

func (b Backoff) sleep(d time.Duration) {
	if b.Sleep != nil {
		b.Sleep(d)
		return
	}
	time.Sleep(d)
}
