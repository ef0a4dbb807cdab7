package core

import (
	"fmt"
	"time"
)

// PeriodStatus classifies a point in time against a submission window.
type PeriodStatus string

const (
	PeriodUpcoming PeriodStatus = "upcoming"
	PeriodActive   PeriodStatus = "active"
	PeriodExpired  PeriodStatus = "expired"
)

// ClassifyPeriod returns the status of the [start, end] window at `now`.
// The window is closed on both ends: now == start and now == end are both active.
func ClassifyPeriod(now, start, end time.Time) PeriodStatus {
	if now.Before(start) {
		return PeriodUpcoming
	}
	if now.After(end) {
		return PeriodExpired
	}
	return PeriodActive
}

// TimeAgo renders `t` relative to `now` for display.
// Future timestamps are clamped to "Just now".
func TimeAgo(now, t time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "Just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute") + " ago"
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour") + " ago"
	case d < 7*24*time.Hour:
		return plural(int(d.Hours()/24), "day") + " ago"
	case d < 28*24*time.Hour:
		return plural(int(d.Hours()/(24*7)), "week") + " ago"
	default:
		return t.Format("Jan 2, 2006")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
