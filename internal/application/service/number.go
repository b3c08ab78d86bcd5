package service

import (
	"fmt"
	"time"
)

// Request numbers look like REQ-20260829-0042: a calendar-day prefix plus a
// four-digit sequence that restarts every day. Allocation reads the highest
// sequence for today's prefix and inserts max+1; a unique index on the
// column turns concurrent duplicates into a retryable conflict.

const requestNumberTag = "REQ"

// NumberPrefix returns the day prefix for t, e.g. "REQ-20260829".
func NumberPrefix(t time.Time) string {
	return fmt.Sprintf("%s-%s", requestNumberTag, t.Format("20060102"))
}

// FormatNumber renders a full request number from a prefix and sequence.
func FormatNumber(prefix string, seq int) string {
	return fmt.Sprintf("%s-%04d", prefix, seq)
}
