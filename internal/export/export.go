// Package export renders the application state as downloadable documents
// and parses imported ones.
package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/daybreakapp/daybreak/internal/model"
)

// CSVHeader is the fixed column set of the CSV export.
const CSVHeader = "date,outcome1,done1,outcome2,done2,outcome3,done3,imUp,babyUp,napStart,napEnd"

// JSON renders the full state as an indented JSON document.
func JSON(state *model.AppState) ([]byte, error) {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return data, nil
}

// CSV renders one row per day-key in ascending order. Timestamps are
// ISO-8601 or empty; done flags are "1"/"0".
func CSV(state *model.AppState) string {
	var b strings.Builder
	b.WriteString(CSVHeader)
	b.WriteByte('\n')

	for _, key := range state.SortedDayKeys() {
		d := state.Days[key]
		fields := []string{
			key,
			d.Outcomes[0], boolField(d.OutcomesDone[0]),
			d.Outcomes[1], boolField(d.OutcomesDone[1]),
			d.Outcomes[2], boolField(d.OutcomesDone[2]),
			timeField(d.Events.ImUp),
			timeField(d.Events.BabyUp),
			timeField(d.Events.NapStart),
			timeField(d.Events.NapEnd),
		}
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeField(f))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func boolField(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func timeField(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// escapeField quote-wraps a field containing a comma, quote, or newline,
// doubling embedded quotes.
func escapeField(s string) string {
	if strings.ContainsAny(s, ",\"\n") {
		return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
	}
	return s
}

// Parse deserializes an imported JSON document into an AppState. A document
// that fails to parse returns an error and must leave the caller's current
// state untouched.
func Parse(data []byte) (*model.AppState, error) {
	state := &model.AppState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse import: %w", err)
	}
	if state.Days == nil {
		state.Days = make(map[string]*model.DayRecord)
	}
	return state, nil
}
