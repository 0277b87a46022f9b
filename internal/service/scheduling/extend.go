package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/events"
	"slotwise/backend/internal/store"
)

// ExtendBooking pushes a confirmed booking's end later and shifts the
// same-day tail forward by the minimal amount that restores the buffer
// invariant. The plan and every write happen inside one provider
// transaction: on domain.ErrInfeasible nothing is mutated.
func (s *Service) ExtendBooking(ctx context.Context, providerID string, bookingID uuid.UUID, extraMinutes int) (domain.Booking, []domain.Shift, error) {
	if providerID == "" {
		return domain.Booking{}, nil, validationError("provider_id is required")
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, nil, validationError("booking_id is required")
	}
	if extraMinutes <= 0 {
		return domain.Booking{}, nil, validationError("extra_minutes must be positive")
	}

	sched, err := s.schedules.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// No declared availability means no room to extend into.
			return domain.Booking{}, nil, domain.ErrInfeasible
		}
		return domain.Booking{}, nil, err
	}
	loc, err := sched.Location()
	if err != nil {
		return domain.Booking{}, nil, fmt.Errorf("schedule timezone: %w", err)
	}

	extra := time.Duration(extraMinutes) * time.Minute

	var (
		updated domain.Booking
		shifted []domain.Shift
	)
	err = s.bookings.InProviderTransaction(ctx, providerID, func(ctx context.Context, tx store.LedgerTx) error {
		target, err := tx.GetBookingForUpdate(ctx, providerID, bookingID)
		if err != nil {
			return err
		}
		if target.Status != domain.BookingStatusConfirmed {
			return fmt.Errorf("%w: only confirmed bookings can be extended", store.ErrInvalidState)
		}

		tail, err := s.loadTail(ctx, tx, target, loc)
		if err != nil {
			return err
		}

		shifts, err := domain.PlanCascade(&sched, target, extra, tail)
		if err != nil {
			return err
		}

		target.DurationMinutes += extraMinutes
		updated, shifted, err = tx.ApplyExtension(ctx, target, shifts)
		return err
	})
	if err != nil {
		return domain.Booking{}, nil, err
	}

	ev := events.Event{
		Type:       events.TypeBookingExtended,
		ProviderID: updated.ProviderID,
		Booking:    updated,
		Shifts:     make([]events.ShiftNotice, 0, len(shifted)),
	}
	for _, sh := range shifted {
		ev.Shifts = append(ev.Shifts, events.ShiftNotice{
			BookingID:  sh.Booking.ID,
			CustomerID: sh.Booking.CustomerID,
			OldStart:   sh.OldStart,
			NewStart:   sh.NewStart,
		})
	}
	s.afterMutation(ctx, updated, loc, ev)
	return updated, shifted, nil
}

// loadTail returns the provider's other active bookings that start at or
// after the target's current end, bounded to the target's local day.
func (s *Service) loadTail(ctx context.Context, tx store.LedgerTx, target domain.Booking, loc *time.Location) ([]domain.Booking, error) {
	startLocal := target.ScheduledAt.In(loc)
	dayEnd := time.Date(startLocal.Year(), startLocal.Month(), startLocal.Day(), 0, 0, 0, 0, loc).AddDate(0, 0, 1)

	rows, err := tx.ListActiveInRange(ctx, target.ProviderID, target.EndAt(), dayEnd)
	if err != nil {
		return nil, err
	}

	tail := rows[:0]
	for _, b := range rows {
		if b.ID == target.ID {
			continue
		}
		if b.ScheduledAt.Before(target.EndAt()) {
			continue
		}
		tail = append(tail, b)
	}
	return tail, nil
}
