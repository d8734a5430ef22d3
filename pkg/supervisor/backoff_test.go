package supervisor

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{9, 30 * time.Second},
	}
	for _, tc := range cases {
		if got := backoffDelay(tc.attempt); got != tc.want {
			t.Errorf("backoffDelay(%d) = %s, want %s", tc.attempt, got, tc.want)
		}
	}

	prev := time.Duration(0)
	for i := 0; i < 12; i++ {
		d := backoffDelay(i)
		if d < prev {
			t.Fatalf("delay shrank at attempt %d: %s -> %s", i, prev, d)
		}
		prev = d
	}
}
