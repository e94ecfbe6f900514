package planner

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"fitdesk/backoffice/internal/client"
)

// Period is a named, coloured, contiguous run of plan days.
// StartDay and EndDay are flat 1-based day indexes with StartDay <= EndDay.
//
// A period derived from a server range carries that range's ID; a period
// created locally has none. Code that needs the ID goes through Persisted.
type Period struct {
	// Key identifies the entry in the local list for its whole lifetime.
	Key      string
	Name     string
	StartDay int
	EndDay   int
	Color    string

	rangeID string
	// seq is the position of the source range at load time. The local list
	// stays ordered by it.
	seq int
}

// NewLocalPeriod creates a period that has not been saved to the backend.
func NewLocalPeriod(name string, startDay, endDay int, color string) Period {
	if endDay < startDay {
		startDay, endDay = endDay, startDay
	}
	return Period{
		Key:      uuid.NewString(),
		Name:     name,
		StartDay: startDay,
		EndDay:   endDay,
		Color:    color,
	}
}

// FromRange converts a server range into a period. index is the range's
// position in the template and selects the colour. Bounds are taken as the
// server stores them, inverted or not; see Valid.
func FromRange(r client.Range, index int) Period {
	return Period{
		Key:      uuid.NewString(),
		Name:     r.Name,
		StartDay: WeekDayToIndex(r.StartWeek, r.StartDayOfWeek),
		EndDay:   WeekDayToIndex(r.EndWeek, r.EndDayOfWeek),
		Color:    PaletteColor(index),
		rangeID:  r.ID,
		seq:      index,
	}
}

// Derive converts every range of a template, in order.
func Derive(ranges []client.Range) []Period {
	periods := make([]Period, len(ranges))
	for i, r := range ranges {
		periods[i] = FromRange(r, i)
	}
	return periods
}

// Persisted returns the backend range ID when the period has one.
func (p Period) Persisted() (string, bool) {
	return p.rangeID, p.rangeID != ""
}

// Valid reports whether the period starts on day 1 or later and does not end
// before it starts.
func (p Period) Valid() bool {
	return ValidDayIndex(p.StartDay) && p.StartDay <= p.EndDay
}

// DisplayName is the name, or "Período {week}" when none was set.
func (p Period) DisplayName() string {
	if strings.TrimSpace(p.Name) == "" {
		return DefaultPeriodName(p.StartDay)
	}
	return p.Name
}

// StartWeek is the week holding the first day of the period.
func (p Period) StartWeek() int { return DayIndexToWeek(p.StartDay) }

// EndWeek is the week holding the last day of the period.
func (p Period) EndWeek() int { return DayIndexToWeek(p.EndDay) }

// Bounds returns the period in week/day coordinates.
func (p Period) Bounds() (startWeek, startDayOfWeek, endWeek, endDayOfWeek int) {
	return DayIndexToWeek(p.StartDay), IndexToDayOfWeek(p.StartDay),
		DayIndexToWeek(p.EndDay), IndexToDayOfWeek(p.EndDay)
}

// Len is the number of days in the period.
func (p Period) Len() int { return p.EndDay - p.StartDay + 1 }

// Contains reports whether dayIndex falls inside the period.
func (p Period) Contains(dayIndex int) bool {
	return dayIndex >= p.StartDay && dayIndex <= p.EndDay
}

// Overlaps reports whether the two periods share at least one day.
func (p Period) Overlaps(o Period) bool {
	return p.StartDay <= o.EndDay && o.StartDay <= p.EndDay
}

// RangeUpdate builds the request body that saves the period under name.
// Days are always sent as an empty list.
func (p Period) RangeUpdate(name string) client.RangeUpdate {
	sw, sd, ew, ed := p.Bounds()
	return client.RangeUpdate{
		Name:           name,
		StartWeek:      sw,
		StartDayOfWeek: sd,
		EndWeek:        ew,
		EndDayOfWeek:   ed,
		Days:           []json.RawMessage{},
	}
}
