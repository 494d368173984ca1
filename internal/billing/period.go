package billing

import (
	"fmt"
	"strings"
	"time"
)

const DefaultLocale = "es"

var monthNames = map[string][12]string{
	"es": {"Enero", "Febrero", "Marzo", "Abril", "Mayo", "Junio",
		"Julio", "Agosto", "Septiembre", "Octubre", "Noviembre", "Diciembre"},
	"en": {"January", "February", "March", "April", "May", "June",
		"July", "August", "September", "October", "November", "December"},
}

// PeriodName formats "Month Year" in locale. Unknown locales use Spanish.
func PeriodName(locale string, year int, month time.Month) string {
	names, ok := monthNames[strings.ToLower(locale)]
	if !ok {
		names = monthNames[DefaultLocale]
	}
	if month < time.January || month > time.December {
		return fmt.Sprintf("%d-%02d", year, int(month))
	}
	return fmt.Sprintf("%s %d", names[month-1], year)
}

// MonthRange returns the calendar month containing now, as seen in loc.
// start is the first day and end the last day, both at midnight UTC so they
// behave as plain dates. December rolls over into January of the next year.
func MonthRange(now time.Time, loc *time.Location) (year int, month time.Month, start, end time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	year, month = local.Year(), local.Month()
	start = time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// Day 0 of next month normalizes to the last day of this one.
	end = time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC)
	return year, month, start, end
}
