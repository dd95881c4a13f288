package queue

import (
	"math/rand"
	"sync"
	"time"
)

// jitteredBackoff mirrors the teacher's ZAIClient retry clock: a private
// seeded rng guarded by its own mutex, exponential growth capped at a
// ceiling, jittered by a 0.5x-1.5x factor (spec §4.6: "exponential backoff
// with jitter, base 1s, ceiling 5m").
type jitteredBackoff struct {
	base    time.Duration
	ceiling time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

func newJitteredBackoff(base, ceiling time.Duration) *jitteredBackoff {
	if base <= 0 {
		base = time.Second
	}
	if ceiling <= 0 {
		ceiling = 5 * time.Minute
	}
	return &jitteredBackoff{
		base:    base,
		ceiling: ceiling,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// delay returns the wait before the attempt'th retry (1-based).
func (b *jitteredBackoff) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := b.base * time.Duration(1<<uint(attempt-1))
	if d > b.ceiling || d <= 0 {
		d = b.ceiling
	}
	return b.jitter(d)
}

func (b *jitteredBackoff) jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	b.mu.Lock()
	factor := 0.5 + b.rng.Float64()
	b.mu.Unlock()
	return time.Duration(float64(d) * factor)
}

func parseDurationOrDefault(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
