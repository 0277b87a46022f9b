package domain

import (
	"testing"
	"time"
)

func mustClock(t *testing.T, s string) ClockTime {
	t.Helper()
	c, err := ParseClock(s)
	if err != nil {
		t.Fatalf("ParseClock(%q) error: %v", s, err)
	}
	return c
}

func weekdaySchedule(t *testing.T, bufferMinutes int, windows map[time.Weekday][]TimeWindow) *WeeklySchedule {
	t.Helper()
	s := DefaultWeeklySchedule("p1")
	s.BufferMinutes = bufferMinutes
	for wd, ws := range windows {
		s.Days[int(wd)].Available = true
		s.Days[int(wd)].Windows = ws
	}
	return &s
}

// 2026-01-05 is a Monday.
var monday = time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)

func mondayAt(hour, minute int) time.Time {
	return time.Date(2026, 1, 5, hour, minute, 0, 0, time.UTC)
}

func TestGenerateSlots_OpenDay(t *testing.T) {
	sched := weekdaySchedule(t, 0, map[time.Weekday][]TimeWindow{
		time.Monday: {{Start: mustClock(t, "09:00"), End: mustClock(t, "17:00")}},
	})

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	slots := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, nil, now)

	if len(slots) != 15 {
		t.Fatalf("len(slots) = %d, want 15", len(slots))
	}
	if !slots[0].Start.Equal(mondayAt(9, 0)) {
		t.Errorf("first slot = %v, want 09:00", slots[0].Start)
	}
	if !slots[len(slots)-1].Start.Equal(mondayAt(16, 0)) {
		t.Errorf("last slot = %v, want 16:00", slots[len(slots)-1].Start)
	}
	for i := 1; i < len(slots); i++ {
		if got := slots[i].Start.Sub(slots[i-1].Start); got != 30*time.Minute {
			t.Errorf("gap between slot %d and %d = %v, want 30m", i-1, i, got)
		}
	}
	if slots[0].Label != "9:00 AM" {
		t.Errorf("label = %q, want %q", slots[0].Label, "9:00 AM")
	}
}

func TestGenerateSlots_BufferedBookingBlocksNeighbors(t *testing.T) {
	sched := weekdaySchedule(t, 15, map[time.Weekday][]TimeWindow{
		time.Monday: {{Start: mustClock(t, "09:00"), End: mustClock(t, "17:00")}},
	})
	booked := []Booking{{
		ProviderID:      "p1",
		ScheduledAt:     mondayAt(11, 0),
		DurationMinutes: 60,
		Status:          BookingStatusConfirmed,
	}}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	slots := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, booked, now)

	starts := make(map[time.Time]bool, len(slots))
	for _, s := range slots {
		starts[s.Start.UTC()] = true
	}

	for _, blocked := range []time.Time{mondayAt(10, 0), mondayAt(10, 30), mondayAt(11, 0), mondayAt(11, 30), mondayAt(12, 0)} {
		if starts[blocked] {
			t.Errorf("slot %v should be blocked by the buffered booking", blocked)
		}
	}
	if !starts[mondayAt(9, 30)] {
		t.Errorf("slot 09:30 should be free (ends before the buffered interval)")
	}
	// The buffered end of the booking is offered even though it is off grid.
	if !starts[mondayAt(12, 15)] {
		t.Errorf("slot 12:15 should be the first slot after the booking")
	}

	var firstAfter time.Time
	for _, s := range slots {
		if s.Start.After(mondayAt(9, 30)) {
			firstAfter = s.Start.UTC()
			break
		}
	}
	if !firstAfter.Equal(mondayAt(12, 15)) {
		t.Errorf("first slot after 09:30 = %v, want 12:15", firstAfter)
	}
}

func TestGenerateSlots_IgnoresInactiveBookings(t *testing.T) {
	sched := weekdaySchedule(t, 0, map[time.Weekday][]TimeWindow{
		time.Monday: {{Start: mustClock(t, "09:00"), End: mustClock(t, "12:00")}},
	})
	booked := []Booking{
		{ScheduledAt: mondayAt(9, 0), DurationMinutes: 60, Status: BookingStatusCancelled},
		{ScheduledAt: mondayAt(10, 0), DurationMinutes: 60, Status: BookingStatusCompleted},
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	slots := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, booked, now)

	if len(slots) != 5 {
		t.Fatalf("len(slots) = %d, want 5 (cancelled and completed bookings free their intervals)", len(slots))
	}
}

func TestGenerateSlots_UnavailableDay(t *testing.T) {
	sched := weekdaySchedule(t, 0, map[time.Weekday][]TimeWindow{
		time.Tuesday: {{Start: mustClock(t, "09:00"), End: mustClock(t, "17:00")}},
	})

	slots := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, nil, time.Time{})
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0 for an unavailable day", len(slots))
	}
}

func TestGenerateSlots_WindowShorterThanDuration(t *testing.T) {
	sched := weekdaySchedule(t, 0, map[time.Weekday][]TimeWindow{
		time.Monday: {{Start: mustClock(t, "09:00"), End: mustClock(t, "09:45")}},
	})

	slots := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, nil, time.Time{})
	if len(slots) != 0 {
		t.Fatalf("len(slots) = %d, want 0 when no window fits the duration", len(slots))
	}
}

func TestGenerateSlots_PastCandidatesExcluded(t *testing.T) {
	sched := weekdaySchedule(t, 0, map[time.Weekday][]TimeWindow{
		time.Monday: {{Start: mustClock(t, "09:00"), End: mustClock(t, "12:00")}},
	})

	t.Run("date fully in the past", func(t *testing.T) {
		now := time.Date(2026, 1, 6, 0, 0, 0, 0, time.UTC)
		slots := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, nil, now)
		if len(slots) != 0 {
			t.Fatalf("len(slots) = %d, want 0 for a past date", len(slots))
		}
	})

	t.Run("same day keeps only future starts", func(t *testing.T) {
		now := mondayAt(10, 15)
		slots := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, nil, now)
		if len(slots) != 2 {
			t.Fatalf("len(slots) = %d, want 2", len(slots))
		}
		if !slots[0].Start.Equal(mondayAt(10, 30)) {
			t.Errorf("first slot = %v, want 10:30", slots[0].Start)
		}
	})
}

func TestGenerateSlots_OverlappingWindowsDeduplicated(t *testing.T) {
	sched := weekdaySchedule(t, 0, map[time.Weekday][]TimeWindow{
		time.Monday: {
			{Start: mustClock(t, "09:00"), End: mustClock(t, "12:00")},
			{Start: mustClock(t, "09:00"), End: mustClock(t, "11:00")},
		},
	})

	slots := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, nil, time.Time{})
	seen := make(map[time.Time]int)
	for _, s := range slots {
		seen[s.Start.UTC()]++
	}
	for start, n := range seen {
		if n > 1 {
			t.Errorf("slot %v returned %d times, want 1", start, n)
		}
	}
	if len(slots) != 5 {
		t.Fatalf("len(slots) = %d, want 5", len(slots))
	}
}

func TestGenerateSlots_Deterministic(t *testing.T) {
	sched := weekdaySchedule(t, 10, map[time.Weekday][]TimeWindow{
		time.Monday: {
			{Start: mustClock(t, "13:00"), End: mustClock(t, "17:00")},
			{Start: mustClock(t, "09:00"), End: mustClock(t, "12:00")},
		},
	})
	booked := []Booking{{ScheduledAt: mondayAt(14, 0), DurationMinutes: 30, Status: BookingStatusPending}}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, booked, now)
	second := GenerateSlots(sched, monday, time.Hour, 30*time.Minute, booked, now)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) || first[i].Label != second[i].Label {
			t.Errorf("slot %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
	for i := 1; i < len(first); i++ {
		if !first[i-1].Start.Before(first[i].Start) {
			t.Errorf("slots out of order at %d: %v >= %v", i, first[i-1].Start, first[i].Start)
		}
	}
}

func TestOverlapsBuffered(t *testing.T) {
	s1 := mondayAt(10, 0)
	e1 := mondayAt(11, 0)

	cases := []struct {
		name   string
		s2, e2 time.Time
		buffer time.Duration
		want   bool
	}{
		{"disjoint", mondayAt(12, 0), mondayAt(13, 0), 0, false},
		{"touching ends no buffer", mondayAt(11, 0), mondayAt(12, 0), 0, false},
		{"touching ends with buffer", mondayAt(11, 0), mondayAt(12, 0), 15 * time.Minute, true},
		{"contained", mondayAt(10, 15), mondayAt(10, 45), 0, true},
		{"buffer bridges gap", mondayAt(11, 10), mondayAt(12, 0), 15 * time.Minute, true},
		{"gap wider than buffer", mondayAt(11, 20), mondayAt(12, 0), 15 * time.Minute, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OverlapsBuffered(s1, e1, tc.s2, tc.e2, tc.buffer); got != tc.want {
				t.Errorf("OverlapsBuffered = %v, want %v", got, tc.want)
			}
		})
	}
}
