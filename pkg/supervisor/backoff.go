package supervisor

import "time"

const (
	backoffBase = time.Second
	backoffMax  = 30 * time.Second
)

// backoffDelay returns the wait before retry attempt n, counted from
// zero. Delays double per attempt and never shrink, capped at
// backoffMax.
func backoffDelay(attempt int) time.Duration {
	d := backoffBase
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= backoffMax {
			return backoffMax
		}
	}
	return d
}
