package models

import "time"

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
}

// WindowState is the per-client fixed window counter.
//
// Count resets to 1 and ResetAt moves to now+window as soon as now is past
// ResetAt. LastSeenAt is touched on every check, accepted or not, and only
// drives idle eviction.
type WindowState struct {
	Count      int
	ResetAt    time.Time
	LastSeenAt time.Time
}

// Expired reports whether the window has rolled over at now.
func (w *WindowState) Expired(now time.Time) bool {
	return now.After(w.ResetAt)
}

// IdleSince reports whether the client has been silent for longer than ttl.
func (w *WindowState) IdleSince(now time.Time, ttl time.Duration) bool {
	return now.Sub(w.LastSeenAt) > ttl
}

// RetryAfterSeconds rounds the time until ResetAt up to whole seconds, never
// less than one so clients always back off.
func RetryAfterSeconds(now, resetAt time.Time) int {
	d := resetAt.Sub(now)
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
