package lifecycle

import (
	"fmt"
	"time"
)

// NewReference formats a reference number from the low eight digits of
// the epoch milliseconds and a draw from 0..999, e.g. REQ-73519204-042.
// Uniqueness is enforced by the store, not here.
func NewReference(now time.Time, rnd RandomSource) string {
	return fmt.Sprintf("REQ-%08d-%03d", now.UnixMilli()%100_000_000, rnd.IntN(1000))
}
