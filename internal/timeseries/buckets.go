package timeseries

import (
	"fmt"

	"valuta/internal/core"
)

// Granularity is the bucket width of a series.
type Granularity string

const (
	Daily   Granularity = "daily"
	Weekly  Granularity = "weekly"
	Monthly Granularity = "monthly"
)

const (
	maxDailySpan  = 31
	maxWeeklySpan = 90
)

// GranularityFor picks the bucket width for an inclusive span of days.
func GranularityFor(days int) Granularity {
	switch {
	case days <= maxDailySpan:
		return Daily
	case days <= maxWeeklySpan:
		return Weekly
	default:
		return Monthly
	}
}

// bucket is one span of the range; end is already clamped to today.
type bucket struct {
	label string
	start core.Date
	end   core.Date
}

// buckets splits [from, to] into spans of g, dropping spans that start after
// today and clamping the last end to today.
func buckets(g Granularity, from, to, today core.Date) []bucket {
	limit := core.MinDate(to, today)
	var out []bucket
	for cur := first(g, from); !cur.After(to); cur = next(g, cur) {
		start := cur
		if start.Before(from) {
			start = from
		}
		if start.After(today) {
			break
		}
		end := core.MinDate(last(g, cur), limit)
		out = append(out, bucket{label: label(g, cur), start: start, end: end})
	}
	return out
}

func first(g Granularity, d core.Date) core.Date {
	switch g {
	case Weekly:
		return d.StartOfISOWeek()
	case Monthly:
		return d.StartOfMonth()
	default:
		return d
	}
}

func next(g Granularity, d core.Date) core.Date {
	switch g {
	case Weekly:
		return d.AddDays(7)
	case Monthly:
		return d.EndOfMonth().AddDays(1)
	default:
		return d.AddDays(1)
	}
}

func last(g Granularity, d core.Date) core.Date {
	switch g {
	case Weekly:
		return d.AddDays(6)
	case Monthly:
		return d.EndOfMonth()
	default:
		return d
	}
}

func label(g Granularity, d core.Date) string {
	switch g {
	case Weekly:
		y, w := d.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", y, w)
	case Monthly:
		return d.Format("2006-01")
	default:
		return d.String()
	}
}
