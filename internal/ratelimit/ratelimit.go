// Package ratelimit throttles how often a single chat may start downloads.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// idleTTL is how long an untouched chat limiter is kept.
const idleTTL = time.Hour

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// PerChat is a set of token buckets keyed by chat ID. The zero value and a
// nil *PerChat allow everything.
type PerChat struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu    sync.Mutex
	chats map[int64]*entry
}

// New allows perMinute starts per chat with the given burst. perMinute <= 0
// disables limiting.
func New(perMinute, burst int) *PerChat {
	if perMinute <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return &PerChat{
		limit: rate.Every(time.Minute / time.Duration(perMinute)),
		burst: burst,
		now:   time.Now,
		chats: make(map[int64]*entry),
	}
}

// Allow reports whether chatID may start another download now.
func (p *PerChat) Allow(chatID int64) bool {
	if p == nil || p.chats == nil {
		return true
	}
	now := p.now()

	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.chats[chatID]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.chats[chatID] = e
	}
	e.lastSeen = now
	allowed := e.limiter.AllowN(now, 1)
	p.gcLocked(now)
	return allowed
}

func (p *PerChat) gcLocked(now time.Time) {
	for id, e := range p.chats {
		if now.Sub(e.lastSeen) > idleTTL {
			delete(p.chats, id)
		}
	}
}
