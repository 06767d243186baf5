// Package tracker owns the application state and implements every user
// action against it: event logging, outcome check-offs, reminder derivation,
// and the snooze channel. All mutations run under one mutex and flush the
// whole state snapshot before returning.
package tracker

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/daybreakapp/daybreak/internal/daykey"
	"github.com/daybreakapp/daybreak/internal/model"
	"github.com/daybreakapp/daybreak/internal/push"
)

const (
	// CheckinOffset is the delay from a baby-up or nap-start event to its
	// block check-in reminder.
	CheckinOffset = 45 * time.Minute

	// Block3CheckinOffset is the delay from block-3 start to its check-in.
	Block3CheckinOffset = 30 * time.Minute

	// SnoozeStep is how far one snooze pushes the block-3 start reminder.
	SnoozeStep = 10 * time.Minute

	// MaxSnoozes bounds block-3 snoozes per day.
	MaxSnoozes = 2
)

// StateWriter persists the full state snapshot. *store.StateStore implements
// it; tests substitute an in-memory recorder.
type StateWriter interface {
	Save(state *model.AppState) error
}

// Scheduler requests future reminder delivery. *push.Scheduler implements
// it. A nil Scheduler disables all scheduling.
type Scheduler interface {
	Schedule(req push.Request) error
	CancelByPrefix(deviceID, prefix string) error
}

// Tracker is the single owner of the mutable AppState.
type Tracker struct {
	mu     sync.Mutex
	state  *model.AppState
	writer StateWriter
	sched  Scheduler
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Tracker over a hydrated state. sched may be nil when push
// delivery is not configured.
func New(state *model.AppState, writer StateWriter, sched Scheduler, logger *slog.Logger) *Tracker {
	return &Tracker{
		state:  state,
		writer: writer,
		sched:  sched,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the time source. Test hook.
func (t *Tracker) SetClock(now func() time.Time) {
	t.now = now
}

// DeviceID returns the immutable device identity.
func (t *Tracker) DeviceID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.DeviceID
}

// PushEnabled reports the user-facing push toggle.
func (t *Tracker) PushEnabled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Settings.PushEnabled
}

// SetPushEnabled flips the push toggle and persists.
func (t *Tracker) SetPushEnabled(enabled bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.Settings.PushEnabled = enabled
	return t.save()
}

// ensureDay returns the record for key, creating an empty one on first
// reference. Records are never deleted.
func (t *Tracker) ensureDay(key string) *model.DayRecord {
	d, ok := t.state.Days[key]
	if !ok {
		d = model.NewDayRecord(t.now())
		t.state.Days[key] = d
	}
	return d
}

// Today returns today's day-key and a copy of its record, creating the
// record if this is the first reference today.
func (t *Tracker) Today() (string, model.DayRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := daykey.Key(t.now())
	_, existed := t.state.Days[key]
	d := t.ensureDay(key)
	if !existed {
		if err := t.save(); err != nil {
			return "", model.DayRecord{}, err
		}
	}
	return key, *d, nil
}

// Snapshot returns a deep copy of the whole state for export or rendering.
func (t *Tracker) Snapshot() (*model.AppState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(t.state)
	if err != nil {
		return nil, err
	}
	copied := &model.AppState{}
	if err := json.Unmarshal(data, copied); err != nil {
		return nil, err
	}
	if copied.Days == nil {
		copied.Days = make(map[string]*model.DayRecord)
	}
	return copied, nil
}

// Replace swaps in an imported state, preserving the current device
// identity, and persists. The previous state is discarded.
func (t *Tracker) Replace(imported *model.AppState) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	imported.DeviceID = t.state.DeviceID
	if imported.Days == nil {
		imported.Days = make(map[string]*model.DayRecord)
	}
	t.state = imported
	return t.save()
}

// DaySummary is one row of the history view.
type DaySummary struct {
	Day          string     `json:"day"`
	OutcomesDone int        `json:"outcomes_done"`
	ImUp         *time.Time `json:"im_up"`
	BabyUp       *time.Time `json:"baby_up"`
}

// History returns summaries for the most recent n days, newest first.
func (t *Tracker) History(n int) []DaySummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	keys := t.state.SortedDayKeys()
	if len(keys) > n {
		keys = keys[len(keys)-n:]
	}

	out := make([]DaySummary, 0, len(keys))
	for i := len(keys) - 1; i >= 0; i-- {
		d := t.state.Days[keys[i]]
		out = append(out, DaySummary{
			Day:          keys[i],
			OutcomesDone: d.OutcomesDoneCount(),
			ImUp:         d.Events.ImUp,
			BabyUp:       d.Events.BabyUp,
		})
	}
	return out
}

// save flushes the whole state. Callers hold the mutex.
func (t *Tracker) save() error {
	return t.writer.Save(t.state)
}

// schedulePush hands a reminder to the scheduler. No-op when push is
// disabled or no scheduler is configured. The scheduler applies its own
// cutoff-hour rule on top.
func (t *Tracker) schedulePush(tag, title, body string, sendAt time.Time, kind string, actions []model.NotifAction) error {
	if t.sched == nil || !t.state.Settings.PushEnabled {
		return nil
	}
	return t.sched.Schedule(push.Request{
		DeviceID: t.state.DeviceID,
		Tag:      tag,
		Title:    title,
		Body:     body,
		SendAt:   sendAt,
		URL:      "/",
		Kind:     kind,
		Actions:  actions,
	})
}

// cancelByPrefix asks the scheduler to drop pending reminders by tag prefix.
func (t *Tracker) cancelByPrefix(prefix string) error {
	if t.sched == nil || !t.state.Settings.PushEnabled {
		return nil
	}
	return t.sched.CancelByPrefix(t.state.DeviceID, prefix)
}
