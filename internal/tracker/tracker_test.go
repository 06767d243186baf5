package tracker

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/daybreakapp/daybreak/internal/model"
	"github.com/daybreakapp/daybreak/internal/push"
)

type fakeWriter struct {
	saves int
}

func (f *fakeWriter) Save(state *model.AppState) error {
	f.saves++
	return nil
}

type schedCall struct {
	op     string // "schedule" or "cancel"
	tag    string
	prefix string
	kind   string
	sendAt time.Time
}

type fakeScheduler struct {
	calls []schedCall
}

func (f *fakeScheduler) Schedule(req push.Request) error {
	f.calls = append(f.calls, schedCall{op: "schedule", tag: req.Tag, kind: req.Kind, sendAt: req.SendAt})
	return nil
}

func (f *fakeScheduler) CancelByPrefix(deviceID, prefix string) error {
	f.calls = append(f.calls, schedCall{op: "cancel", prefix: prefix})
	return nil
}

// newTestTracker returns a tracker with push enabled, a fake scheduler, and
// a clock pinned to the given instant.
func newTestTracker(t *testing.T, now time.Time) (*Tracker, *fakeScheduler, *fakeWriter) {
	t.Helper()
	state := model.NewAppState()
	state.Settings.PushEnabled = true
	writer := &fakeWriter{}
	sched := &fakeScheduler{}
	trk := New(state, writer, sched, slog.Default())
	trk.SetClock(func() time.Time { return now })
	return trk, sched, writer
}

func TestTodayCreatesLazily(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)
	trk, _, writer := newTestTracker(t, now)

	key, _, err := trk.Today()
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if key != "2024-01-10" {
		t.Errorf("day key = %q, want %q", key, "2024-01-10")
	}
	if writer.saves != 1 {
		t.Errorf("saves = %d, want 1 (lazy creation persists)", writer.saves)
	}

	// Second call reuses the record without another save.
	if _, _, err := trk.Today(); err != nil {
		t.Fatalf("today again: %v", err)
	}
	if writer.saves != 1 {
		t.Errorf("saves = %d, want 1 after second call", writer.saves)
	}
	if len(trk.state.Days) != 1 {
		t.Errorf("days = %d, want 1", len(trk.state.Days))
	}
}

func TestEnsureDayIsolation(t *testing.T) {
	now := time.Date(2024, 1, 10, 9, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	a := trk.ensureDay("2024-01-09")
	b := trk.ensureDay("2024-01-10")
	a.Outcomes[0] = "ship it"

	if b.Outcomes[0] != "" {
		t.Error("mutating one day's record leaked into another")
	}
	if got := trk.ensureDay("2024-01-09"); got != a {
		t.Error("ensureDay returned a different record for the same key")
	}
}

func TestLogImUpOncePerDay(t *testing.T) {
	now := time.Date(2024, 1, 10, 6, 30, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	msg, err := trk.LogImUp()
	if err != nil {
		t.Fatalf("first log: %v", err)
	}
	if msg.Message == "" {
		t.Error("expected a wake message")
	}

	first := *trk.state.Days["2024-01-10"].Events.ImUp

	trk.SetClock(func() time.Time { return now.Add(time.Hour) })
	if _, err := trk.LogImUp(); !errors.Is(err, ErrAlreadyLogged) {
		t.Fatalf("second log err = %v, want ErrAlreadyLogged", err)
	}
	if got := *trk.state.Days["2024-01-10"].Events.ImUp; !got.Equal(first) {
		t.Errorf("stored timestamp changed on failed relog: %v -> %v", first, got)
	}
}

func TestLogBabyUpSchedulesCheckin(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)
	trk, sched, _ := newTestTracker(t, now)

	if err := trk.LogBabyUp(); err != nil {
		t.Fatalf("log baby up: %v", err)
	}

	d := trk.state.Days["2024-01-10"]
	wantAt := now.Add(45 * time.Minute)
	if d.Scheduled.Block1CheckinAt == nil || !d.Scheduled.Block1CheckinAt.Equal(wantAt) {
		t.Errorf("block1 check-in = %v, want %v", d.Scheduled.Block1CheckinAt, wantAt)
	}

	if len(sched.calls) != 1 {
		t.Fatalf("scheduler calls = %d, want 1", len(sched.calls))
	}
	call := sched.calls[0]
	if call.tag != "b1-checkin-2024-01-10" || call.kind != model.KindBlock1Checkin || !call.sendAt.Equal(wantAt) {
		t.Errorf("unexpected schedule call: %+v", call)
	}

	// Re-logging overwrites the event and reschedules under the same tag.
	later := now.Add(10 * time.Minute)
	trk.SetClock(func() time.Time { return later })
	if err := trk.LogBabyUp(); err != nil {
		t.Fatalf("relog baby up: %v", err)
	}
	if !d.Events.BabyUp.Equal(later) {
		t.Errorf("baby up not overwritten: %v", d.Events.BabyUp)
	}
	if sched.calls[1].tag != "b1-checkin-2024-01-10" {
		t.Errorf("relog used tag %q", sched.calls[1].tag)
	}
}

func TestLogNapEndBlock3(t *testing.T) {
	// 03:00 local belongs to the previous day's bucket.
	now := time.Date(2024, 1, 10, 3, 0, 0, 0, time.Local)
	trk, sched, _ := newTestTracker(t, now)

	if err := trk.LogNapEnd(40); err != nil {
		t.Fatalf("log nap end: %v", err)
	}

	d := trk.state.Days["2024-01-09"]
	if d == nil {
		t.Fatal("record bucketed under the wrong day")
	}
	wantStart := now.Add(40 * time.Minute)
	wantCheck := now.Add(70 * time.Minute)
	if d.Scheduled.Block3StartAt == nil || !d.Scheduled.Block3StartAt.Equal(wantStart) {
		t.Errorf("block3 start = %v, want %v", d.Scheduled.Block3StartAt, wantStart)
	}
	if d.Scheduled.Block3CheckinAt == nil || !d.Scheduled.Block3CheckinAt.Equal(wantCheck) {
		t.Errorf("block3 check-in = %v, want %v", d.Scheduled.Block3CheckinAt, wantCheck)
	}
	if d.Scheduled.Block3SnoozesUsed != 0 {
		t.Errorf("snoozes used = %d, want 0", d.Scheduled.Block3SnoozesUsed)
	}

	if len(sched.calls) != 3 {
		t.Fatalf("scheduler calls = %d, want 3 (cancel + 2 schedules)", len(sched.calls))
	}
	if sched.calls[0].op != "cancel" || sched.calls[0].prefix != "b3-" {
		t.Errorf("first call = %+v, want cancel of prefix b3-", sched.calls[0])
	}
	if sched.calls[1].tag != "b3-start-2024-01-09" || sched.calls[1].kind != model.KindBlock3Start {
		t.Errorf("start reminder call = %+v", sched.calls[1])
	}
	if sched.calls[2].tag != "b3-checkin-2024-01-09" || sched.calls[2].kind != model.KindBlock3Checkin {
		t.Errorf("check-in reminder call = %+v", sched.calls[2])
	}
}

func TestLogNapEndDelayNormalization(t *testing.T) {
	now := time.Date(2024, 1, 10, 13, 0, 0, 0, time.Local)

	cases := []struct {
		delay int
		want  time.Duration
	}{
		{30, 30 * time.Minute},
		{40, 40 * time.Minute},
		{45, 45 * time.Minute},
		{0, 40 * time.Minute},
		{31, 40 * time.Minute},
		{-5, 40 * time.Minute},
	}
	for _, c := range cases {
		trk, _, _ := newTestTracker(t, now)
		if err := trk.LogNapEnd(c.delay); err != nil {
			t.Fatalf("log nap end(%d): %v", c.delay, err)
		}
		d := trk.state.Days["2024-01-10"]
		if got := d.Scheduled.Block3StartAt.Sub(now); got != c.want {
			t.Errorf("delay %d: start offset = %v, want %v", c.delay, got, c.want)
		}
	}
}

func TestToggleOutcomeCelebration(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, sched, _ := newTestTracker(t, now)

	for i := 0; i < 2; i++ {
		celebrated, err := trk.ToggleOutcome(i)
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if celebrated {
			t.Errorf("toggle %d celebrated early", i)
		}
	}

	celebrated, err := trk.ToggleOutcome(2)
	if err != nil {
		t.Fatalf("toggle 2: %v", err)
	}
	if !celebrated {
		t.Fatal("completing the set did not celebrate")
	}
	if len(sched.calls) != 1 || sched.calls[0].tag != "celebrate-2024-01-10" {
		t.Fatalf("celebration calls = %+v", sched.calls)
	}

	// Uncheck and recheck: the celebration deliberately re-fires.
	if _, err := trk.ToggleOutcome(1); err != nil {
		t.Fatal(err)
	}
	celebrated, err = trk.ToggleOutcome(1)
	if err != nil {
		t.Fatal(err)
	}
	if !celebrated {
		t.Error("re-completing the set did not re-celebrate")
	}
	if len(sched.calls) != 2 {
		t.Errorf("scheduler calls = %d, want 2", len(sched.calls))
	}
}

func TestToggleOutcomeBadIndex(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	for _, idx := range []int{-1, 3, 99} {
		if _, err := trk.ToggleOutcome(idx); !errors.Is(err, ErrBadIndex) {
			t.Errorf("toggle(%d) err = %v, want ErrBadIndex", idx, err)
		}
	}
}

func TestSchedulingSkippedWhenPushDisabled(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)
	trk, sched, _ := newTestTracker(t, now)
	trk.state.Settings.PushEnabled = false

	if err := trk.LogBabyUp(); err != nil {
		t.Fatalf("log baby up: %v", err)
	}
	if err := trk.LogNapEnd(40); err != nil {
		t.Fatalf("log nap end: %v", err)
	}
	if len(sched.calls) != 0 {
		t.Errorf("scheduler calls = %d, want 0 when push disabled", len(sched.calls))
	}

	// Local state still changed.
	d := trk.state.Days["2024-01-10"]
	if d.Events.BabyUp == nil || d.Scheduled.Block3StartAt == nil {
		t.Error("local state not updated while push disabled")
	}
}

func TestSchedulingSkippedWithoutScheduler(t *testing.T) {
	now := time.Date(2024, 1, 10, 8, 0, 0, 0, time.Local)
	state := model.NewAppState()
	state.Settings.PushEnabled = true
	trk := New(state, &fakeWriter{}, nil, slog.Default())
	trk.SetClock(func() time.Time { return now })

	if err := trk.LogBabyUp(); err != nil {
		t.Fatalf("log baby up with nil scheduler: %v", err)
	}
}

func TestBuildSuggestion(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	d := trk.ensureDay("2024-01-08")
	d.Outcomes = [3]string{"A", "B", "C"}
	d.OutcomesDone = [3]bool{true, false, true}

	if got := trk.BuildSuggestion(); got != "Finish: B" {
		t.Errorf("suggestion = %q, want %q", got, "Finish: B")
	}
}

func TestBuildSuggestionPrefersNewestDay(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	old := trk.ensureDay("2024-01-07")
	old.Outcomes = [3]string{"old task", "", ""}

	recent := trk.ensureDay("2024-01-09")
	recent.Outcomes = [3]string{"new task", "", ""}

	if got := trk.BuildSuggestion(); got != "Finish: new task" {
		t.Errorf("suggestion = %q, want newest day's task", got)
	}
}

func TestBuildSuggestionEmpty(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	// Day with only whitespace or completed outcomes yields nothing.
	d := trk.ensureDay("2024-01-09")
	d.Outcomes = [3]string{"  ", "done already", ""}
	d.OutcomesDone = [3]bool{false, true, false}

	if got := trk.BuildSuggestion(); got != "" {
		t.Errorf("suggestion = %q, want empty", got)
	}
}

func TestApplySuggestion(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	prev := trk.ensureDay("2024-01-09")
	prev.Outcomes = [3]string{"write report", "", ""}

	applied, err := trk.ApplySuggestion()
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if applied != "Finish: write report" {
		t.Errorf("applied = %q", applied)
	}

	today := trk.state.Days["2024-01-10"]
	if today.Outcomes[0] != "Finish: write report" {
		t.Errorf("first empty slot not filled: %+v", today.Outcomes)
	}

	// With no empty slot the suggestion overwrites slot 3. The suggestion
	// itself now derives from today's own first undone outcome.
	today.Outcomes = [3]string{"a", "b", "c"}
	if _, err := trk.ApplySuggestion(); err != nil {
		t.Fatalf("apply full: %v", err)
	}
	if today.Outcomes[2] != "Finish: a" {
		t.Errorf("slot 3 not overwritten: %+v", today.Outcomes)
	}
}

func TestApplySuggestionNoneFound(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	if _, err := trk.ApplySuggestion(); !errors.Is(err, ErrNoSuggestion) {
		t.Errorf("err = %v, want ErrNoSuggestion", err)
	}
}

func TestHandleSnoozeBudget(t *testing.T) {
	now := time.Date(2024, 1, 10, 13, 0, 0, 0, time.Local)
	trk, sched, _ := newTestTracker(t, now)

	if err := trk.LogNapEnd(40); err != nil {
		t.Fatal(err)
	}
	d := trk.state.Days["2024-01-10"]
	sched.calls = nil

	// First and second snooze succeed.
	for want := 1; want <= 2; want++ {
		if err := trk.HandleSnooze(model.KindBlock3Start); err != nil {
			t.Fatalf("snooze %d: %v", want, err)
		}
		if d.Scheduled.Block3SnoozesUsed != want {
			t.Errorf("snoozes used = %d, want %d", d.Scheduled.Block3SnoozesUsed, want)
		}
		if !d.Scheduled.Block3StartAt.Equal(now.Add(10 * time.Minute)) {
			t.Errorf("snooze %d start = %v, want +10m", want, d.Scheduled.Block3StartAt)
		}
	}

	// Each snooze cancels the exact tag then reschedules it.
	if len(sched.calls) != 4 {
		t.Fatalf("scheduler calls = %d, want 4", len(sched.calls))
	}
	if sched.calls[0].op != "cancel" || sched.calls[0].prefix != "b3-start-2024-01-10" {
		t.Errorf("snooze cancel = %+v", sched.calls[0])
	}
	if sched.calls[1].tag != "b3-start-2024-01-10" {
		t.Errorf("snooze reschedule = %+v", sched.calls[1])
	}

	// Third snooze fails and changes nothing.
	before := *d.Scheduled.Block3StartAt
	if err := trk.HandleSnooze(model.KindBlock3Start); !errors.Is(err, ErrNoSnoozesLeft) {
		t.Fatalf("third snooze err = %v, want ErrNoSnoozesLeft", err)
	}
	if d.Scheduled.Block3SnoozesUsed != 2 {
		t.Errorf("snoozes used = %d, want 2", d.Scheduled.Block3SnoozesUsed)
	}
	if !d.Scheduled.Block3StartAt.Equal(before) {
		t.Error("failed snooze moved the reminder")
	}
	if len(sched.calls) != 4 {
		t.Errorf("failed snooze issued scheduler calls")
	}
}

func TestHandleSnoozeIgnoresOtherKinds(t *testing.T) {
	now := time.Date(2024, 1, 10, 13, 0, 0, 0, time.Local)
	trk, sched, _ := newTestTracker(t, now)

	for _, kind := range []string{model.KindBlock1Checkin, model.KindBlock3Checkin, "", "bogus"} {
		if err := trk.HandleSnooze(kind); err != nil {
			t.Errorf("snooze(%q) err = %v, want nil no-op", kind, err)
		}
	}
	if len(sched.calls) != 0 {
		t.Errorf("non-snoozable kinds issued scheduler calls")
	}
}

func TestLogMorning(t *testing.T) {
	now := time.Date(2024, 1, 10, 7, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	for _, item := range []string{"movement", "shower", "outcomesWritten", "meds"} {
		if err := trk.LogMorning(item); err != nil {
			t.Errorf("log %q: %v", item, err)
		}
	}

	m := trk.state.Days["2024-01-10"].Morning
	if m.Movement == nil || m.Shower == nil || m.OutcomesWritten == nil || m.Meds == nil {
		t.Error("not all morning items stamped")
	}

	if err := trk.LogMorning("coffee"); !errors.Is(err, ErrUnknownItem) {
		t.Errorf("unknown item err = %v, want ErrUnknownItem", err)
	}
}

func TestReplacePreservesDeviceID(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)
	original := trk.DeviceID()

	imported := model.NewAppState()
	imported.Days["2024-01-01"] = model.NewDayRecord(now)

	if err := trk.Replace(imported); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if trk.DeviceID() != original {
		t.Errorf("device id changed on import: %q -> %q", original, trk.DeviceID())
	}
	if _, ok := trk.state.Days["2024-01-01"]; !ok {
		t.Error("imported day missing")
	}
}

func TestHistoryNewestFirst(t *testing.T) {
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.Local)
	trk, _, _ := newTestTracker(t, now)

	for _, k := range []string{"2024-01-08", "2024-01-09", "2024-01-10"} {
		trk.ensureDay(k)
	}
	trk.state.Days["2024-01-09"].OutcomesDone = [3]bool{true, true, false}

	days := trk.History(2)
	if len(days) != 2 {
		t.Fatalf("history len = %d, want 2", len(days))
	}
	if days[0].Day != "2024-01-10" || days[1].Day != "2024-01-09" {
		t.Errorf("history order = %s, %s", days[0].Day, days[1].Day)
	}
	if days[1].OutcomesDone != 2 {
		t.Errorf("outcomes done = %d, want 2", days[1].OutcomesDone)
	}
}
