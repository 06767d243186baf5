package tracker

import (
	"fmt"
	"time"

	"github.com/daybreakapp/daybreak/internal/daykey"
	"github.com/daybreakapp/daybreak/internal/model"
)

// Block-3 delay choices after nap end, in minutes. Anything else normalizes
// to the default.
var block3Delays = map[int]bool{30: true, 40: true, 45: true}

const defaultBlock3Delay = 40

// LogImUp records the wake-up event, at most once per day. On success it
// returns the wake message to show; a second attempt fails with
// ErrAlreadyLogged and leaves the stored timestamp untouched.
func (t *Tracker) LogImUp() (WakeMessage, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	d := t.ensureDay(daykey.Key(now))
	if d.Events.ImUp != nil {
		return WakeMessage{}, ErrAlreadyLogged
	}
	d.Events.ImUp = &now

	msg := t.pickWakeMessage()
	if err := t.save(); err != nil {
		return WakeMessage{}, err
	}
	return msg, nil
}

// LogBabyUp records the baby-up event (overwriting any earlier one today)
// and schedules the block-1 check-in reminder 45 minutes out.
func (t *Tracker) LogBabyUp() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := daykey.Key(now)
	d := t.ensureDay(key)
	d.Events.BabyUp = &now

	sendAt := now.Add(CheckinOffset)
	d.Scheduled.Block1CheckinAt = &sendAt

	if err := t.save(); err != nil {
		return err
	}
	return t.schedulePush(
		fmt.Sprintf("b1-checkin-%s", key),
		"Block 1 check-in",
		"How's it going? What's the next tiny move?",
		sendAt,
		model.KindBlock1Checkin,
		nil,
	)
}

// LogNapStart records the nap-start event (overwriting) and schedules the
// block-2 check-in reminder 45 minutes out.
func (t *Tracker) LogNapStart() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := daykey.Key(now)
	d := t.ensureDay(key)
	d.Events.NapStart = &now

	sendAt := now.Add(CheckinOffset)
	d.Scheduled.Block2CheckinAt = &sendAt

	if err := t.save(); err != nil {
		return err
	}
	return t.schedulePush(
		fmt.Sprintf("b2-checkin-%s", key),
		"Block 2 check-in",
		"How's it going? What's the next tiny move?",
		sendAt,
		model.KindBlock2Checkin,
		nil,
	)
}

// LogNapEnd records the nap-end event and sets up block 3: start reminder at
// event time plus the chosen delay, check-in 30 minutes after that. Any
// stale block-3 reminders from an earlier nap-end press today are cancelled
// first, and the snooze budget resets. delayMin outside {30, 40, 45}
// normalizes to 40.
func (t *Tracker) LogNapEnd(delayMin int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !block3Delays[delayMin] {
		delayMin = defaultBlock3Delay
	}

	now := t.now()
	key := daykey.Key(now)
	d := t.ensureDay(key)
	d.Events.NapEnd = &now

	startAt := now.Add(time.Duration(delayMin) * time.Minute)
	checkAt := startAt.Add(Block3CheckinOffset)
	d.Scheduled.Block3StartAt = &startAt
	d.Scheduled.Block3CheckinAt = &checkAt
	d.Scheduled.Block3SnoozesUsed = 0

	if err := t.save(); err != nil {
		return err
	}

	if err := t.cancelByPrefix("b3-"); err != nil {
		return err
	}
	if err := t.schedulePush(
		fmt.Sprintf("b3-start-%s", key),
		"Block 3 starting",
		"Quick check: what's the one 10-minute win?",
		startAt,
		model.KindBlock3Start,
		[]model.NotifAction{{Action: "snooze", Title: "Snooze 10m"}},
	); err != nil {
		return err
	}
	return t.schedulePush(
		fmt.Sprintf("b3-checkin-%s", key),
		"Block 3 check-in",
		"How's it going? Keep it small.",
		checkAt,
		model.KindBlock3Checkin,
		nil,
	)
}

// LogMorning stamps one morning checklist item with the current time.
// Re-logging overwrites the stamp.
func (t *Tracker) LogMorning(item string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	d := t.ensureDay(daykey.Key(now))

	switch item {
	case "movement":
		d.Morning.Movement = &now
	case "shower":
		d.Morning.Shower = &now
	case "outcomesWritten":
		d.Morning.OutcomesWritten = &now
	case "meds":
		d.Morning.Meds = &now
	default:
		return fmt.Errorf("%w: morning item %q", ErrUnknownItem, item)
	}
	return t.save()
}

// HandleSnooze services the notification action channel. Only the block-3
// start notification is snoozable, at most MaxSnoozes times per day; each
// snooze moves the reminder 10 minutes out, cancelling the prior one by
// exact tag first.
func (t *Tracker) HandleSnooze(kind string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if kind != model.KindBlock3Start {
		return nil
	}

	now := t.now()
	key := daykey.Key(now)
	d := t.ensureDay(key)

	if d.Scheduled.Block3SnoozesUsed >= MaxSnoozes {
		return ErrNoSnoozesLeft
	}
	d.Scheduled.Block3SnoozesUsed++

	newAt := now.Add(SnoozeStep)
	d.Scheduled.Block3StartAt = &newAt

	if err := t.save(); err != nil {
		return err
	}

	tag := fmt.Sprintf("b3-start-%s", key)
	if err := t.cancelByPrefix(tag); err != nil {
		return err
	}
	return t.schedulePush(
		tag,
		"Block 3 starting",
		"Quick check: what's the one 10-minute win?",
		newAt,
		model.KindBlock3Start,
		[]model.NotifAction{{Action: "snooze", Title: "Snooze 10m"}},
	)
}
