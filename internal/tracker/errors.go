package tracker

import "errors"

var (
	// ErrAlreadyLogged means the wake-up event was already logged today.
	ErrAlreadyLogged = errors.New("already logged for today")

	// ErrNoSnoozesLeft means the block-3 snooze budget is exhausted.
	ErrNoSnoozesLeft = errors.New("no snoozes left")

	// ErrNoSuggestion means no prior unfinished outcome was found.
	ErrNoSuggestion = errors.New("no suggestion found")

	// ErrUnknownItem means an event or checklist name was not recognized.
	ErrUnknownItem = errors.New("unknown item")

	// ErrBadIndex means an outcome index was outside 0..2.
	ErrBadIndex = errors.New("outcome index out of range")
)
