package tracker

import (
	"fmt"
	"strings"

	"github.com/daybreakapp/daybreak/internal/daykey"
)

// WakeMessage is the feedback shown after logging the wake-up event.
type WakeMessage struct {
	Message string `json:"message"`
	Subtext string `json:"subtext"`
}

// WakeStats summarizes recent wake-up behavior: how many consecutive days
// (newest backwards) have a logged wake-up, and how consistent the wake
// times were across the last seven logged days.
type WakeStats struct {
	StreakDays  int     `json:"streak_days"`
	Consistency float64 `json:"consistency"`
}

var (
	hypeMessages = []string{
		"Feet on floor. Stand up now. No negotiations.",
		"Up. Water. Move. We're not thinking, just executing.",
		"Get vertical. Your day starts when you move.",
		"Stand up. One small win in the next 10 minutes. Go.",
	}
	mixedMessages = []string{
		"Alright, let's move. Small wins first, momentum second.",
		"Up we go. One 10-minute action to start the chain.",
		"Stand up, breathe, move. Then we decide the first win.",
	}
	steadyMessages = []string{
		"Up we go. Quiet, steady, on purpose. One small win first.",
		"Good morning. Let's secure the day with three simple outcomes.",
		"We're building consistency. One step, then the next.",
	}
)

// wakeStats computes the streak and consistency score. Callers hold the
// mutex. Streak counts consecutive logged days available in state, capped at
// 14. Consistency maps the spread of the last seven wake times onto [0,1]:
// zero-minute range scores 1.0, a 90-minute range scores 0.
func (t *Tracker) wakeStats() WakeStats {
	keys := t.state.SortedDayKeys()

	streak := 0
	for i := len(keys) - 1; i >= 0; i-- {
		if t.state.Days[keys[i]].Events.ImUp == nil {
			break
		}
		streak++
		if streak >= 14 {
			break
		}
	}

	var wakeMinutes []int
	start := len(keys) - 7
	if start < 0 {
		start = 0
	}
	for _, k := range keys[start:] {
		if ts := t.state.Days[k].Events.ImUp; ts != nil {
			wakeMinutes = append(wakeMinutes, ts.Hour()*60+ts.Minute())
		}
	}

	consistency := 0.0
	if len(wakeMinutes) >= 3 {
		min, max := wakeMinutes[0], wakeMinutes[0]
		for _, m := range wakeMinutes[1:] {
			if m < min {
				min = m
			}
			if m > max {
				max = m
			}
		}
		consistency = 1 - float64(max-min)/90
		if consistency < 0 {
			consistency = 0
		}
		if consistency > 1 {
			consistency = 1
		}
	}

	return WakeStats{StreakDays: streak, Consistency: consistency}
}

// pickWakeMessage selects the wake message for today. Tiering: an
// established streak earns the steady pool, a short streak the mixed pool,
// otherwise the hype pool. The message rotates by day-key so it varies day
// to day but stays stable within a day. Callers hold the mutex.
func (t *Tracker) pickWakeMessage() WakeMessage {
	stats := t.wakeStats()

	steadyGate := stats.StreakDays >= 7 || (stats.StreakDays >= 4 && stats.Consistency >= 0.6)
	mixedGate := stats.StreakDays >= 3

	pool := hypeMessages
	if steadyGate {
		pool = steadyMessages
	} else if mixedGate {
		pool = mixedMessages
	}

	seed := 0
	for _, r := range strings.ReplaceAll(daykey.Key(t.now()), "-", "") {
		seed = seed*10 + int(r-'0')
	}
	msg := pool[seed%len(pool)]

	var sub string
	switch {
	case steadyGate:
		sub = fmt.Sprintf("Streak: %d day(s). Consistency: %d%%", stats.StreakDays, int(stats.Consistency*100))
	case mixedGate:
		sub = fmt.Sprintf("Streak: %d day(s). Keep it small and clean.", stats.StreakDays)
	default:
		sub = "We start before we feel ready."
	}

	return WakeMessage{Message: msg, Subtext: sub}
}

// Stats exposes the wake statistics for the API.
func (t *Tracker) Stats() WakeStats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.wakeStats()
}
