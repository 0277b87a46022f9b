package domain

import (
	"sort"
	"time"
)

type Slot struct {
	Start time.Time `json:"startTime"`
	Label string    `json:"label"`
}

// OverlapsBuffered reports whether [s1,e1) and [s2,e2) intersect once each
// interval's end is extended by the provider's buffer.
func OverlapsBuffered(s1, e1, s2, e2 time.Time, buffer time.Duration) bool {
	return s1.Before(e2.Add(buffer)) && s2.Before(e1.Add(buffer))
}

func conflictsAny(start, end time.Time, buffer time.Duration, bookings []Booking) bool {
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		if OverlapsBuffered(start, end, b.ScheduledAt, b.EndAt(), buffer) {
			return true
		}
	}
	return false
}

// GenerateSlots produces the bookable start times for one calendar day.
//
// date must be midnight of the requested day in the schedule's location.
// Candidates step from each window's start at the given granularity; the
// buffered end of every active booking is also a candidate, so the first
// bookable moment after an occupied stretch is offered even when it falls
// off the grid. Candidates in the past and candidates whose buffered
// interval touches an active booking are discarded. The result is sorted
// and de-duplicated; two windows can otherwise yield the same start.
func GenerateSlots(sched *WeeklySchedule, date time.Time, duration, granularity time.Duration, bookings []Booking, now time.Time) []Slot {
	if duration <= 0 || granularity <= 0 {
		return nil
	}

	day := sched.Day(date.Weekday())
	if !day.Available || len(day.Windows) == 0 {
		return nil
	}

	loc := date.Location()
	buffer := sched.Buffer()

	candidates := make([]time.Time, 0, 32)
	for _, w := range day.Windows {
		windowStart := w.Start.At(date.Year(), date.Month(), date.Day(), loc)
		windowEnd := w.End.At(date.Year(), date.Month(), date.Day(), loc)

		for t := windowStart; !t.Add(duration).After(windowEnd); t = t.Add(granularity) {
			candidates = append(candidates, t)
		}
		for _, b := range bookings {
			if !b.Status.Active() {
				continue
			}
			t := b.EndAt().Add(buffer).In(loc)
			if t.Before(windowStart) || t.Add(duration).After(windowEnd) {
				continue
			}
			candidates = append(candidates, t)
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })

	out := make([]Slot, 0, len(candidates))
	var last time.Time
	for _, t := range candidates {
		if len(out) > 0 && t.Equal(last) {
			continue
		}
		if t.Before(now) {
			continue
		}
		if conflictsAny(t, t.Add(duration), buffer, bookings) {
			continue
		}
		out = append(out, Slot{Start: t, Label: t.Format("3:04 PM")})
		last = t
	}
	return out
}
