package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

func ParseBookingStatus(s string) (BookingStatus, bool) {
	switch BookingStatus(s) {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCompleted, BookingStatusCancelled:
		return BookingStatus(s), true
	}
	return "", false
}

// Active reports whether a booking in this status occupies the schedule.
// Completed bookings stay on record but no longer block slots.
func (s BookingStatus) Active() bool {
	return s == BookingStatusPending || s == BookingStatusConfirmed
}

func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch next {
	case BookingStatusConfirmed:
		return s == BookingStatusPending
	case BookingStatusCancelled:
		return s == BookingStatusPending || s == BookingStatusConfirmed
	case BookingStatusCompleted:
		return s == BookingStatusConfirmed
	}
	return false
}

type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID              uuid.UUID     `bun:"id,pk,type:uuid" json:"id"`
	ProviderID      string        `bun:"provider_id,notnull" json:"providerId"`
	ServiceID       string        `bun:"service_id,notnull" json:"serviceId"`
	CustomerID      string        `bun:"customer_id,notnull" json:"customerId"`
	ScheduledAt     time.Time     `bun:"scheduled_at,notnull" json:"scheduledAt"`
	DurationMinutes int           `bun:"duration_minutes,notnull" json:"durationMinutes"`
	Status          BookingStatus `bun:"status,notnull" json:"status"`
	CreatedAt       time.Time     `bun:"created_at,notnull" json:"createdAt"`
	UpdatedAt       time.Time     `bun:"updated_at,notnull" json:"updatedAt"`
}

func (b *Booking) EndAt() time.Time {
	return b.ScheduledAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

func (b *Booking) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if b.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			b.ID = id
		}
		if b.CreatedAt.IsZero() {
			b.CreatedAt = now
		}
		if b.UpdatedAt.IsZero() {
			b.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		b.UpdatedAt = now
	}
	return nil
}
