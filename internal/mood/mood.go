// Package mood holds the process-wide network mood: an ambient value that
// modulates synthetic delivery delay and timestamp perturbation. The mood
// is advisory, not correctness-bearing; concurrent re-rolls may race and
// the last writer wins.
package mood

import (
	"math/rand/v2"
	"sync/atomic"
	"time"
)

// Mood names as they appear on the wire.
const (
	Calm     = "calm"
	Neutral  = "neutral"
	Restless = "restless"
)

var moods = [...]string{Calm, Neutral, Restless}

const rerollChance = 0.05

// Engine is the shared mood cell plus the derived random draws.
type Engine struct {
	state atomic.Int32
}

// NewEngine creates an engine in the neutral mood.
func NewEngine() *Engine {
	e := &Engine{}
	e.state.Store(1)
	return e
}

// Current returns the mood without sampling.
func (e *Engine) Current() string {
	return moods[e.state.Load()]
}

// Sample re-rolls the mood with 5% probability and returns the current
// value.
func (e *Engine) Sample() string {
	if rand.Float64() < rerollChance {
		e.state.Store(int32(rand.IntN(len(moods))))
	}
	return e.Current()
}

// Delay draws the synthetic delivery delay: a mood-dependent uniform base
// scaled by a mood-dependent discrete jitter factor.
func (e *Engine) Delay() time.Duration {
	return delayFor(e.Sample())
}

func delayFor(m string) time.Duration {
	var base, factor float64
	switch m {
	case Calm:
		base = rand.Float64() * 0.15
		factor = pick(0.8, 1.0, 1.1)
	case Restless:
		base = 0.05 + rand.Float64()*0.55
		factor = pick(1.0, 1.2, 1.5)
	default:
		base = rand.Float64() * 0.4
		factor = pick(0.9, 1.0, 1.3)
	}
	return time.Duration(base * factor * float64(time.Second))
}

// ShouldPerturb reports whether the current send's timestamp gets an
// artistic-chronology adjustment.
func (e *Engine) ShouldPerturb() bool {
	return rand.Float64() < perturbChance(e.Sample())
}

func perturbChance(m string) float64 {
	switch m {
	case Restless:
		return 0.2
	case Calm:
		return 0.05
	default:
		return 0.1
	}
}

// PerturbAmount draws the timestamp adjustment, uniform in [-2s, +2s].
func (e *Engine) PerturbAmount() time.Duration {
	seconds := rand.Float64()*4 - 2
	return time.Duration(seconds * float64(time.Second))
}

func pick(choices ...float64) float64 {
	return choices[rand.IntN(len(choices))]
}
