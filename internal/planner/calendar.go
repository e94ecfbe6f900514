// Package planner maps training-template ranges onto a flat day index and
// keeps the client-side list of named periods in step with the backend.
package planner

import "strconv"

// DaysPerWeek is the length of a template week. Day-of-week values run 1..7.
const DaysPerWeek = 7

// DefaultNamePrefix is used for periods saved without a name.
const DefaultNamePrefix = "Período "

// Palette holds the gradient tokens assigned to derived periods, in order.
var Palette = [...]string{
	"from-sky-500 to-indigo-500",
	"from-emerald-400 to-cyan-500",
	"from-amber-400 to-orange-500",
	"from-rose-400 to-red-500",
	"from-fuchsia-500 to-purple-600",
	"from-lime-400 to-green-600",
	"from-teal-400 to-blue-500",
	"from-pink-500 to-yellow-500",
}

// DayIndexToWeek returns the 1-based week containing the 1-based day index.
func DayIndexToWeek(dayIndex int) int {
	return floorDiv(dayIndex-1, DaysPerWeek) + 1
}

// IndexToDayOfWeek returns the day of week (1..7) of the day index.
func IndexToDayOfWeek(dayIndex int) int {
	return floorMod(dayIndex-1, DaysPerWeek) + 1
}

// WeekDayToIndex converts a (week, dayOfWeek) pair into a flat day index.
func WeekDayToIndex(week, dayOfWeek int) int {
	return (week-1)*DaysPerWeek + dayOfWeek
}

// ValidDayIndex reports whether dayIndex can address a plan day.
func ValidDayIndex(dayIndex int) bool {
	return dayIndex >= 1
}

// ValidDayOfWeek reports whether d is within 1..7.
func ValidDayOfWeek(d int) bool {
	return d >= 1 && d <= DaysPerWeek
}

// DefaultPeriodName is the label shown for a period whose name is unset.
func DefaultPeriodName(startDay int) string {
	return DefaultNamePrefix + strconv.Itoa(DayIndexToWeek(startDay))
}

// PaletteColor picks the colour for the i-th derived period.
func PaletteColor(i int) string {
	return Palette[floorMod(i, len(Palette))]
}

// floorDiv and floorMod round toward negative infinity so the conversions
// stay consistent for indexes below 1.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
