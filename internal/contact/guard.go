package contact

import (
	"sync"
	"time"
)

// Guard makes sure one rendered form is delivered at most once. Each form
// carries a submission token; Begin claims it and Finish either records it as
// sent or releases it so the visitor can try again.
type Guard struct {
	mu      sync.Mutex
	keep    time.Duration
	entries map[string]guardEntry
}

type guardEntry struct {
	sent bool
	at   time.Time
}

// NewGuard remembers sent tokens for keep.
func NewGuard(keep time.Duration) *Guard {
	return &Guard{keep: keep, entries: make(map[string]guardEntry)}
}

// Begin claims token. It returns ErrInFlight while another request holds the
// token and ErrCompleted once the message behind it was sent.
func (g *Guard) Begin(token string, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prune(now)
	if e, ok := g.entries[token]; ok {
		if e.sent {
			return ErrCompleted
		}
		return ErrInFlight
	}
	g.entries[token] = guardEntry{at: now}
	return nil
}

// Finish ends the claim taken by Begin.
func (g *Guard) Finish(token string, sent bool, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !sent {
		delete(g.entries, token)
		return
	}
	g.entries[token] = guardEntry{sent: true, at: now}
}

// prune drops sent tokens older than keep. Claims in flight always stay.
func (g *Guard) prune(now time.Time) {
	for token, e := range g.entries {
		if e.sent && now.Sub(e.at) > g.keep {
			delete(g.entries, token)
		}
	}
}
