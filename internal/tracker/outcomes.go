package tracker

import (
	"fmt"
	"strings"
	"time"

	"github.com/daybreakapp/daybreak/internal/daykey"
)

// SetOutcomes replaces today's three outcome texts. Texts are editable at
// any time, before or after being checked off.
func (t *Tracker) SetOutcomes(outcomes [3]string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	d := t.ensureDay(daykey.Key(t.now()))
	d.Outcomes = outcomes
	return t.save()
}

// ToggleOutcome flips the done flag at index. When the flip makes all three
// true, a celebratory push is scheduled about a second out; the celebration
// re-fires on every transition into the all-true state, deliberately with no
// once-per-day guard. Returns whether this toggle completed the set.
func (t *Tracker) ToggleOutcome(index int) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if index < 0 || index > 2 {
		return false, fmt.Errorf("%w: %d", ErrBadIndex, index)
	}

	key := daykey.Key(t.now())
	d := t.ensureDay(key)
	d.OutcomesDone[index] = !d.OutcomesDone[index]
	celebrated := d.OutcomesDone[index] && d.AllOutcomesDone()

	if err := t.save(); err != nil {
		return false, err
	}

	if celebrated {
		if err := t.schedulePush(
			fmt.Sprintf("celebrate-%s", key),
			"Daybreak",
			"Day secured. Nice work.",
			t.now().Add(time.Second),
			"",
			nil,
		); err != nil {
			return celebrated, err
		}
	}
	return celebrated, nil
}

// BuildSuggestion scans day-keys newest first and proposes finishing the
// first unfinished, non-empty outcome it finds. Read-only. Returns "" when
// nothing qualifies.
func (t *Tracker) BuildSuggestion() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.buildSuggestion()
}

func (t *Tracker) buildSuggestion() string {
	keys := t.state.SortedDayKeys()
	for i := len(keys) - 1; i >= 0; i-- {
		d := t.state.Days[keys[i]]
		for j := range d.OutcomesDone {
			if d.OutcomesDone[j] {
				continue
			}
			if text := strings.TrimSpace(d.Outcomes[j]); text != "" {
				return "Finish: " + text
			}
		}
	}
	return ""
}

// ApplySuggestion writes the current suggestion into today's first empty
// outcome slot, or slot 3 when none is empty. Fails with ErrNoSuggestion
// when there is nothing to apply.
func (t *Tracker) ApplySuggestion() (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	sug := t.buildSuggestion()
	if sug == "" {
		return "", ErrNoSuggestion
	}

	d := t.ensureDay(daykey.Key(t.now()))
	slot := 2
	for i, text := range d.Outcomes {
		if strings.TrimSpace(text) == "" {
			slot = i
			break
		}
	}
	d.Outcomes[slot] = sug
	if err := t.save(); err != nil {
		return "", err
	}
	return sug, nil
}
