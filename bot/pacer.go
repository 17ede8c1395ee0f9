package bot

import (
	"context"
	"sync"
	"time"
)

// pacer enforces a minimum interval between outbound sends per chat, so a
// burst of inbound expressions cannot trip Telegram's rate limits. A zero
// interval disables pacing.
type pacer struct {
	interval time.Duration

	mu       sync.Mutex
	lastSend map[int64]time.Time
}

func newPacer(interval time.Duration) *pacer {
	return &pacer{
		interval: interval,
		lastSend: make(map[int64]time.Time),
	}
}

// wait blocks until the chat is allowed to send again, or the context is
// canceled.
func (p *pacer) wait(ctx context.Context, chatID int64) error {
	if p.interval <= 0 {
		return nil
	}

	p.mu.Lock()
	now := time.Now()
	next := p.lastSend[chatID].Add(p.interval)
	if next.Before(now) {
		next = now
	}
	p.lastSend[chatID] = next
	p.mu.Unlock()

	delay := time.Until(next)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
