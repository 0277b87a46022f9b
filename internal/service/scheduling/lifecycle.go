package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/events"
	"slotwise/backend/internal/store"
)

func (s *Service) Confirm(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, providerID, bookingID, domain.BookingStatusConfirmed)
}

// Cancel frees the booking's interval. The row is kept; cancelled bookings
// simply stop participating in conflict checks.
func (s *Service) Cancel(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, providerID, bookingID, domain.BookingStatusCancelled)
}

// Complete is invoked by an external actor once the work is done; the
// engine only validates that the scheduled start has passed.
func (s *Service) Complete(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	return s.transition(ctx, providerID, bookingID, domain.BookingStatusCompleted)
}

func (s *Service) transition(ctx context.Context, providerID string, bookingID uuid.UUID, next domain.BookingStatus) (domain.Booking, error) {
	if providerID == "" {
		return domain.Booking{}, validationError("provider_id is required")
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}

	var out domain.Booking
	err := s.bookings.InProviderTransaction(ctx, providerID, func(ctx context.Context, tx store.LedgerTx) error {
		b, err := tx.GetBookingForUpdate(ctx, providerID, bookingID)
		if err != nil {
			return err
		}
		if !b.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", store.ErrInvalidState, b.Status, next)
		}
		if next == domain.BookingStatusCompleted && s.now().UTC().Before(b.ScheduledAt) {
			return fmt.Errorf("%w: booking has not started yet", store.ErrInvalidState)
		}

		b.Status = next
		updated, err := tx.UpdateBookingStatus(ctx, b)
		if err != nil {
			return err
		}
		out = updated
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	// Post-commit bookkeeping only; the mutation stands even if the
	// schedule is momentarily unreadable.
	_, loc, lerr := s.bufferAndLocation(ctx, providerID)
	if lerr != nil {
		loc = time.UTC
	}
	s.afterMutation(ctx, out, loc, events.Event{
		Type:       events.TypeBookingStatusChanged,
		ProviderID: out.ProviderID,
		Booking:    out,
	})
	return out, nil
}
