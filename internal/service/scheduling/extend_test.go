package scheduling

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/events"
	"slotwise/backend/internal/store"
)

func seedConfirmed(t *testing.T, svc *Service, customerID string, start time.Time, minutes int) domain.Booking {
	t.Helper()
	b, err := svc.CreateBooking(context.Background(), CreateBookingInput{
		ProviderID:      "p1",
		ServiceID:       "s1",
		CustomerID:      customerID,
		ScheduledAt:     start,
		DurationMinutes: minutes,
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}
	confirmed, err := svc.Confirm(context.Background(), "p1", b.ID)
	if err != nil {
		t.Fatalf("Confirm error: %v", err)
	}
	return confirmed
}

func TestExtendBooking_CascadesTail(t *testing.T) {
	ledger := newMemoryLedger()
	pub := &recordingPublisher{}
	svc := NewService(ledger, scheduleRepoFor(openMondaySchedule(15)), Options{
		Publisher: pub,
		Now:       testClock(),
	})
	ctx := context.Background()

	target := seedConfirmed(t, svc, "c1", mondayAt(10, 0), 60)
	tail := seedConfirmed(t, svc, "c2", mondayAt(11, 15), 45)

	updated, shifts, err := svc.ExtendBooking(ctx, "p1", target.ID, 30)
	if err != nil {
		t.Fatalf("ExtendBooking error: %v", err)
	}

	if updated.DurationMinutes != 90 {
		t.Errorf("duration = %d, want 90", updated.DurationMinutes)
	}
	if !updated.EndAt().Equal(mondayAt(11, 30)) {
		t.Errorf("new end = %v, want 11:30", updated.EndAt())
	}

	if len(shifts) != 1 {
		t.Fatalf("len(shifts) = %d, want 1", len(shifts))
	}
	if shifts[0].Booking.ID != tail.ID {
		t.Errorf("shifted booking = %s, want %s", shifts[0].Booking.ID, tail.ID)
	}
	if !shifts[0].OldStart.Equal(mondayAt(11, 15)) || !shifts[0].NewStart.Equal(mondayAt(11, 45)) {
		t.Errorf("shift = %v -> %v, want 11:15 -> 11:45", shifts[0].OldStart, shifts[0].NewStart)
	}

	// Shift is persisted, not just reported.
	stored, err := ledger.GetByID(ctx, "p1", tail.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if !stored.ScheduledAt.Equal(mondayAt(11, 45)) {
		t.Errorf("stored start = %v, want 11:45", stored.ScheduledAt)
	}

	extendedEvents := pub.byType(events.TypeBookingExtended)
	if len(extendedEvents) != 1 {
		t.Fatalf("extended events = %d, want 1", len(extendedEvents))
	}
	if len(extendedEvents[0].Shifts) != 1 {
		t.Fatalf("event shifts = %d, want 1", len(extendedEvents[0].Shifts))
	}
	notice := extendedEvents[0].Shifts[0]
	if notice.CustomerID != "c2" || !notice.NewStart.Equal(mondayAt(11, 45)) {
		t.Errorf("shift notice = %+v, want customer c2 at 11:45", notice)
	}
}

func TestExtendBooking_InfeasibleLeavesLedgerUntouched(t *testing.T) {
	ledger := newMemoryLedger()
	sched := openMondaySchedule(15)
	// Day closes at noon: the shifted tail booking would end at 12:30.
	sched.Days[int(time.Monday)].Windows = []domain.TimeWindow{{
		Start: domain.ClockTime(9 * 60),
		End:   domain.ClockTime(12 * 60),
	}}
	svc := NewService(ledger, scheduleRepoFor(sched), Options{Now: testClock()})
	ctx := context.Background()

	target := seedConfirmed(t, svc, "c1", mondayAt(10, 0), 60)
	seedConfirmed(t, svc, "c2", mondayAt(11, 15), 45)

	before := ledger.snapshot()

	_, _, err := svc.ExtendBooking(ctx, "p1", target.ID, 30)
	if !errors.Is(err, domain.ErrInfeasible) {
		t.Fatalf("err = %v, want ErrInfeasible", err)
	}

	after := ledger.snapshot()
	if !reflect.DeepEqual(before, after) {
		t.Errorf("ledger mutated on infeasible extension:\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestExtendBooking_RequiresConfirmedTarget(t *testing.T) {
	svc := NewService(newMemoryLedger(), scheduleRepoFor(openMondaySchedule(0)), Options{Now: testClock()})
	ctx := context.Background()

	pending, err := svc.CreateBooking(ctx, CreateBookingInput{
		ProviderID:      "p1",
		ServiceID:       "s1",
		CustomerID:      "c1",
		ScheduledAt:     mondayAt(10, 0),
		DurationMinutes: 60,
	})
	if err != nil {
		t.Fatalf("CreateBooking error: %v", err)
	}

	_, _, err = svc.ExtendBooking(ctx, "p1", pending.ID, 30)
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState for a pending target", err)
	}
}

func TestExtendBooking_Validation(t *testing.T) {
	svc := NewService(newMemoryLedger(), scheduleRepoFor(openMondaySchedule(0)), Options{Now: testClock()})

	_, _, err := svc.ExtendBooking(context.Background(), "p1", uuid.New(), 0)
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("err = %v, want *ValidationError for zero extra minutes", err)
	}
}

func TestExtendBooking_NoScheduleIsInfeasible(t *testing.T) {
	ledger := newMemoryLedger()

	// Seed through a service that still has a schedule.
	seeded := NewService(ledger, scheduleRepoFor(openMondaySchedule(0)), Options{Now: testClock()})
	target := seedConfirmed(t, seeded, "c1", mondayAt(10, 0), 60)

	svc := NewService(ledger, &fakeScheduleRepo{}, Options{Now: testClock()})
	_, _, err := svc.ExtendBooking(context.Background(), "p1", target.ID, 30)
	if !errors.Is(err, domain.ErrInfeasible) {
		t.Fatalf("err = %v, want ErrInfeasible when no availability is declared", err)
	}
}

func TestExtendBooking_StopsCascadeAtGap(t *testing.T) {
	ledger := newMemoryLedger()
	svc := NewService(ledger, scheduleRepoFor(openMondaySchedule(0)), Options{Now: testClock()})
	ctx := context.Background()

	target := seedConfirmed(t, svc, "c1", mondayAt(9, 0), 60)
	first := seedConfirmed(t, svc, "c2", mondayAt(10, 0), 30)
	second := seedConfirmed(t, svc, "c3", mondayAt(10, 30), 30)
	untouched := seedConfirmed(t, svc, "c4", mondayAt(14, 0), 60)

	_, shifts, err := svc.ExtendBooking(ctx, "p1", target.ID, 30)
	if err != nil {
		t.Fatalf("ExtendBooking error: %v", err)
	}
	if len(shifts) != 2 {
		t.Fatalf("len(shifts) = %d, want 2", len(shifts))
	}
	if shifts[0].Booking.ID != first.ID || shifts[1].Booking.ID != second.ID {
		t.Errorf("shifted ids = %s, %s; want %s, %s", shifts[0].Booking.ID, shifts[1].Booking.ID, first.ID, second.ID)
	}

	stored, err := ledger.GetByID(ctx, "p1", untouched.ID)
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if !stored.ScheduledAt.Equal(mondayAt(14, 0)) {
		t.Errorf("booking past the gap moved to %v, want 14:00", stored.ScheduledAt)
	}
}
