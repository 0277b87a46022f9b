package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
)

// LedgerTx is the booking ledger scoped to one provider's transaction. The
// provider's commit-time mutations are serialized by the repository before
// fn runs, so reads inside the transaction observe a stable ledger.
type LedgerTx interface {
	CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error)
	GetBookingForUpdate(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	ListActiveInRange(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error)
	UpdateBookingStatus(ctx context.Context, b domain.Booking) (domain.Booking, error)

	// ApplyExtension commits an extended target plus every cascaded shift.
	// The caller's transaction makes it all-or-nothing.
	ApplyExtension(ctx context.Context, target domain.Booking, shifts []domain.Shift) (domain.Booking, []domain.Shift, error)
}

type BookingRepository interface {
	GetByID(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error)
	ListActiveInRange(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error)

	InProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx LedgerTx) error) error
}
