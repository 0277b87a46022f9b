package domain

import (
	"errors"
	"time"
)

// ErrInfeasible means an extension cannot be satisfied without pushing a
// booking outside the provider's availability for that day.
var ErrInfeasible = errors.New("extension infeasible")

// Shift records one downstream booking displaced by a cascade.
type Shift struct {
	Booking  Booking
	OldStart time.Time
	NewStart time.Time
}

// PlanCascade computes the minimal forward shifts needed to extend target
// by extra. tail must hold the provider's other active bookings that start
// at or after the target's current end, ordered ascending; the walk stops
// at the first booking that already clears the buffered threshold. Every
// moved booking, and the extended target itself, must still fit inside one
// availability window of the same local day, otherwise the whole plan is
// ErrInfeasible and nothing should be written.
//
// The walk is a bounded loop over the sorted tail; propagation never
// crosses into the next day.
func PlanCascade(sched *WeeklySchedule, target Booking, extra time.Duration, tail []Booking) ([]Shift, error) {
	if extra <= 0 {
		return nil, errors.New("extra duration must be positive")
	}

	loc, err := sched.Location()
	if err != nil {
		return nil, err
	}
	buffer := sched.Buffer()

	startLocal := target.ScheduledAt.In(loc)
	day := sched.Day(startLocal.Weekday())
	newEnd := target.EndAt().Add(extra)

	if !fitsDay(day, startLocal, target.ScheduledAt, newEnd, loc) {
		return nil, ErrInfeasible
	}

	shifts := make([]Shift, 0, len(tail))
	threshold := newEnd
	for _, b := range tail {
		minStart := threshold.Add(buffer)
		if !b.ScheduledAt.Before(minStart) {
			break
		}

		newStart := minStart
		newBookingEnd := newStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
		if !fitsDay(day, startLocal, newStart, newBookingEnd, loc) {
			return nil, ErrInfeasible
		}

		shifts = append(shifts, Shift{Booking: b, OldStart: b.ScheduledAt, NewStart: newStart})
		threshold = newBookingEnd
	}

	return shifts, nil
}

// fitsDay reports whether [start,end) lies on dayAnchor's calendar day and
// inside a single availability window of that day.
func fitsDay(day DayAvailability, dayAnchor time.Time, start, end time.Time, loc *time.Location) bool {
	if !day.Available {
		return false
	}

	s := start.In(loc)
	e := end.In(loc)
	if !sameDay(s, dayAnchor) || !sameDay(e, dayAnchor) {
		return false
	}

	sMin := ClockTime(s.Hour()*60 + s.Minute())
	eMin := ClockTime(e.Hour()*60 + e.Minute())
	for _, w := range day.Windows {
		if sMin >= w.Start && eMin <= w.End {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}
