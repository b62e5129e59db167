package reports

import (
	"errors"
	"time"
)

// Period tokens accepted by every report endpoint.
const (
	PeriodToday     = "today"
	PeriodYesterday = "yesterday"
	PeriodWeek      = "week"
	PeriodLast7Days = "last7days"
	PeriodMonth     = "month"
	PeriodLastMonth = "lastmonth"
	PeriodCustom    = "custom"
)

// ErrCustomRangeRequired indicates a custom period without usable bounds.
var ErrCustomRangeRequired = errors.New("custom period requires start and end dates")

const dateLayout = "2006-01-02"

// ResolveRange maps a period token to inclusive day bounds relative to now:
// start is 00:00:00 of the first day, end is 23:59:59 of the last day, both
// in now's location. Unknown tokens resolve as today. The function is pure
// so it can be tested against a fixed clock.
func ResolveRange(now time.Time, period, startDate, endDate string) (time.Time, time.Time, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	switch period {
	case PeriodYesterday:
		day := today.AddDate(0, 0, -1)
		return day, endOfDay(day), nil
	case PeriodWeek:
		// Monday-based week.
		offset := (int(today.Weekday()) + 6) % 7
		return today.AddDate(0, 0, -offset), endOfDay(today), nil
	case PeriodLast7Days:
		return today.AddDate(0, 0, -6), endOfDay(today), nil
	case PeriodMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return first, endOfDay(today), nil
	case PeriodLastMonth:
		firstOfThis := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		first := firstOfThis.AddDate(0, -1, 0)
		return first, endOfDay(firstOfThis.AddDate(0, 0, -1)), nil
	case PeriodCustom:
		start, err := time.ParseInLocation(dateLayout, startDate, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, ErrCustomRangeRequired
		}
		end, err := time.ParseInLocation(dateLayout, endDate, now.Location())
		if err != nil {
			return time.Time{}, time.Time{}, ErrCustomRangeRequired
		}
		return start, endOfDay(end), nil
	default:
		// PeriodToday and anything unrecognised.
		return today, endOfDay(today), nil
	}
}

func endOfDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, 0, day.Location())
}
