package model

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// DayEvents holds the four loggable life events for a day. ImUp is settable
// at most once per day; the others may be overwritten by re-logging.
type DayEvents struct {
	ImUp     *time.Time `json:"im_up"`
	BabyUp   *time.Time `json:"baby_up"`
	NapStart *time.Time `json:"nap_start"`
	NapEnd   *time.Time `json:"nap_end"`
}

// MorningStack holds timestamps for the four morning checklist items.
// Each is settable independently and overwritable.
type MorningStack struct {
	Movement        *time.Time `json:"movement"`
	Shower          *time.Time `json:"shower"`
	OutcomesWritten *time.Time `json:"outcomes_written"`
	Meds            *time.Time `json:"meds"`
}

// ScheduledReminders holds the derived reminder times for a day plus the
// block-3 snooze counter (capped at MaxSnoozes).
type ScheduledReminders struct {
	Block1CheckinAt   *time.Time `json:"block1_checkin_at"`
	Block2CheckinAt   *time.Time `json:"block2_checkin_at"`
	Block3StartAt     *time.Time `json:"block3_start_at"`
	Block3CheckinAt   *time.Time `json:"block3_checkin_at"`
	Block3SnoozesUsed int        `json:"block3_snoozes_used"`
}

// DayRecord is the full per-day record, keyed by day-key. Records are
// created lazily on first reference and never deleted.
type DayRecord struct {
	CreatedAt    time.Time          `json:"created_at"`
	Outcomes     [3]string          `json:"outcomes"`
	OutcomesDone [3]bool            `json:"outcomes_done"`
	Events       DayEvents          `json:"events"`
	Morning      MorningStack       `json:"morning"`
	Scheduled    ScheduledReminders `json:"scheduled"`
}

// NewDayRecord returns an empty record created at the given time.
func NewDayRecord(createdAt time.Time) *DayRecord {
	return &DayRecord{CreatedAt: createdAt}
}

// OutcomesDoneCount returns how many of the three outcomes are checked off.
func (d *DayRecord) OutcomesDoneCount() int {
	n := 0
	for _, done := range d.OutcomesDone {
		if done {
			n++
		}
	}
	return n
}

// AllOutcomesDone reports whether all three outcomes are checked off.
func (d *DayRecord) AllOutcomesDone() bool {
	return d.OutcomesDoneCount() == len(d.OutcomesDone)
}

// Settings holds user-facing settings that live inside the persisted state.
type Settings struct {
	PushEnabled bool `json:"push_enabled"`
}

// AppState is the whole persisted application state: a device identity, the
// day-key -> record map, and settings. It is hydrated once at startup and
// written back wholesale after every mutation.
type AppState struct {
	DeviceID string                `json:"device_id"`
	Days     map[string]*DayRecord `json:"days"`
	Settings Settings              `json:"settings"`
}

// NewAppState returns a default state with a freshly generated device
// identity. The identity is immutable after creation.
func NewAppState() *AppState {
	return &AppState{
		DeviceID: uuid.NewString(),
		Days:     make(map[string]*DayRecord),
	}
}

// SortedDayKeys returns all day-keys in ascending order. Iteration over the
// day map always goes through this to keep output deterministic.
func (s *AppState) SortedDayKeys() []string {
	keys := make([]string, 0, len(s.Days))
	for k := range s.Days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
