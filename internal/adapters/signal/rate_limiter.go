package signal

import (
	"sync"
	"time"

	"github.com/dkeye/vspace/internal/domain"
)

// CommandRateLimiter caps the commands one participant may send per interval.
type CommandRateLimiter struct {
	mu       sync.Mutex
	history  map[domain.ParticipantID][]time.Time
	limit    int
	interval time.Duration
}

func NewCommandRateLimiter(limit int, interval time.Duration) *CommandRateLimiter {
	return &CommandRateLimiter{
		history:  make(map[domain.ParticipantID][]time.Time),
		limit:    limit,
		interval: interval,
	}
}

func (rl *CommandRateLimiter) Allow(id domain.ParticipantID) bool {
	if rl == nil || rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[id]
	fresh := make([]time.Time, 0, len(attempts))
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[id] = fresh
		return false
	}

	rl.history[id] = append(fresh, now)
	return true
}

// Forget drops the history of a participant that disconnected.
func (rl *CommandRateLimiter) Forget(id domain.ParticipantID) {
	if rl == nil {
		return
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.history, id)
}
