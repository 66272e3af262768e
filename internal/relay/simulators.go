package relay

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/driftline/driftline/internal/metrics"
)

const phantomChance = 0.3

var simulatorsOnce sync.Once

// StartSimulators launches the phantom typing and harmonic sync loops.
// They run once per process regardless of how many times this is called,
// and both stop together when ctx is cancelled. The loops only read the
// registry; they never mutate relay or store state, and a failed
// emission never ends a loop.
func StartSimulators(ctx context.Context, hub *Hub) {
	simulatorsOnce.Do(func() {
		go hub.phantomTypingLoop(ctx)
		go hub.harmonicSyncLoop(ctx)
		slog.Info("Background simulators started")
	})
}

// phantomTypingLoop occasionally makes one online user appear to type at
// another without any real user action.
func (h *Hub) phantomTypingLoop(ctx context.Context) {
	for {
		if !sleepBetween(ctx, 30*time.Second, 120*time.Second) {
			slog.Info("Phantom typing loop shutting down", "reason", ctx.Err())
			return
		}
		if h.registry.Count() < 2 || rand.Float64() >= phantomChance {
			continue
		}

		phantom, target, ok := phantomPair(h.registry.Users())
		if !ok {
			continue
		}
		s, ok := h.registry.Lookup(target)
		if !ok {
			continue
		}

		h.emit(s, EventUserTyping, typingEvent{UserID: phantom, IsTyping: true})
		metrics.PhantomEvents.Inc()

		if !sleepBetween(ctx, 2*time.Second, 5*time.Second) {
			slog.Info("Phantom typing loop shutting down", "reason", ctx.Err())
			return
		}

		// The target may have disconnected during the pause.
		if s, ok := h.registry.Lookup(target); ok {
			h.emit(s, EventUserTyping, typingEvent{UserID: phantom, IsTyping: false})
			metrics.PhantomEvents.Inc()
		}
	}
}

// harmonicSyncLoop periodically broadcasts a roster snapshot, a random
// phase, and the current mood to every connected session.
func (h *Hub) harmonicSyncLoop(ctx context.Context) {
	for {
		if !sleepBetween(ctx, 20*time.Second, 60*time.Second) {
			slog.Info("Harmonic sync loop shutting down", "reason", ctx.Err())
			return
		}

		users := h.registry.Users()
		if len(users) == 0 {
			continue
		}

		h.broadcast(EventHarmonicSync, harmonicSyncEvent{
			Users: users,
			Phase: rand.Float64(),
			Mood:  h.mood.Sample(),
		})
		metrics.PhantomEvents.Inc()
	}
}

// phantomPair picks two distinct users uniformly at random.
func phantomPair(users []int64) (phantom, target int64, ok bool) {
	if len(users) < 2 {
		return 0, 0, false
	}
	i := rand.IntN(len(users))
	j := rand.IntN(len(users) - 1)
	if j >= i {
		j++
	}
	return users[i], users[j], true
}

// sleepBetween pauses for a uniform random duration in [min, max] and
// reports false when ctx ends the wait early.
func sleepBetween(ctx context.Context, min, max time.Duration) bool {
	d := min + time.Duration(rand.Int64N(int64(max-min)+1))
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
