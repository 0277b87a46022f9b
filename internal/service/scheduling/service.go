package scheduling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/events"
	"slotwise/backend/internal/store"
)

const dateLayout = "2006-01-02"

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(msg string) error {
	return &ValidationError{msg: msg}
}

// SlotCache memoizes slot queries. Get reports the provider-day version it
// observed even on a miss; Set must write under that version, so a reader
// racing an invalidation lands its result under the superseded version
// where no Get will find it. Mutations invalidate per provider-day.
type SlotCache interface {
	Get(ctx context.Context, providerID, date, serviceID string, duration, granularity time.Duration) ([]domain.Slot, int64, bool)
	Set(ctx context.Context, providerID, date, serviceID string, duration, granularity time.Duration, version int64, slots []domain.Slot)
	Invalidate(ctx context.Context, providerID, date string)
}

type nopSlotCache struct{}

func (nopSlotCache) Get(context.Context, string, string, string, time.Duration, time.Duration) ([]domain.Slot, int64, bool) {
	return nil, 0, false
}
func (nopSlotCache) Set(context.Context, string, string, string, time.Duration, time.Duration, int64, []domain.Slot) {
}
func (nopSlotCache) Invalidate(context.Context, string, string) {}

type Service struct {
	bookings    store.BookingRepository
	schedules   store.ScheduleRepository
	cache       SlotCache
	publisher   events.Publisher
	granularity time.Duration
	now         func() time.Time
	log         *slog.Logger
}

type Options struct {
	Cache           SlotCache
	Publisher       events.Publisher
	SlotGranularity time.Duration
	Now             func() time.Time
	Logger          *slog.Logger
}

func NewService(bookings store.BookingRepository, schedules store.ScheduleRepository, opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = nopSlotCache{}
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	if opts.SlotGranularity <= 0 {
		opts.SlotGranularity = 30 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		bookings:    bookings,
		schedules:   schedules,
		cache:       opts.Cache,
		publisher:   opts.Publisher,
		granularity: opts.SlotGranularity,
		now:         opts.Now,
		log:         opts.Logger.With(slog.String("component", "scheduling")),
	}
}

// GenerateSlots is a pure query: it never reserves anything, and a returned
// slot must be re-validated at commit time.
func (s *Service) GenerateSlots(ctx context.Context, providerID, date, serviceID string, durationMinutes int) ([]domain.Slot, error) {
	if providerID == "" {
		return nil, validationError("provider_id is required")
	}
	if durationMinutes <= 0 {
		return nil, validationError("duration_minutes must be positive")
	}

	sched, err := s.schedules.Get(ctx, providerID)
	if err != nil {
		return nil, err
	}
	loc, err := sched.Location()
	if err != nil {
		return nil, fmt.Errorf("schedule timezone: %w", err)
	}

	dayStart, err := time.ParseInLocation(dateLayout, date, loc)
	if err != nil {
		return nil, validationError("date must be formatted as YYYY-MM-DD")
	}

	duration := time.Duration(durationMinutes) * time.Minute
	cached, version, ok := s.cache.Get(ctx, providerID, date, serviceID, duration, s.granularity)
	if ok {
		return cached, nil
	}

	dayEnd := dayStart.AddDate(0, 0, 1)
	booked, err := s.bookings.ListActiveInRange(ctx, providerID, dayStart.Add(-sched.Buffer()), dayEnd.Add(sched.Buffer()))
	if err != nil {
		return nil, err
	}

	slots := domain.GenerateSlots(&sched, dayStart, duration, s.granularity, booked, s.now())
	s.cache.Set(ctx, providerID, date, serviceID, duration, s.granularity, version, slots)
	return slots, nil
}

func (s *Service) GetBooking(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	if providerID == "" {
		return domain.Booking{}, validationError("provider_id is required")
	}
	if bookingID == uuid.Nil {
		return domain.Booking{}, validationError("booking_id is required")
	}
	return s.bookings.GetByID(ctx, providerID, bookingID)
}

type CreateBookingInput struct {
	ProviderID      string
	ServiceID       string
	CustomerID      string
	ScheduledAt     time.Time
	DurationMinutes int
}

// CreateBooking admits a booking only if its buffered interval is still
// free. The conflict check and the insert run under the provider's ledger
// transaction, so two racing requests for overlapping intervals cannot both
// commit; the loser gets store.ErrConflict and should re-query slots.
func (s *Service) CreateBooking(ctx context.Context, in CreateBookingInput) (domain.Booking, error) {
	if in.ProviderID == "" {
		return domain.Booking{}, validationError("provider_id is required")
	}
	if in.ServiceID == "" {
		return domain.Booking{}, validationError("service_id is required")
	}
	if in.CustomerID == "" {
		return domain.Booking{}, validationError("customer_id is required")
	}
	if in.DurationMinutes <= 0 {
		return domain.Booking{}, validationError("duration_minutes must be positive")
	}
	if in.ScheduledAt.IsZero() {
		return domain.Booking{}, validationError("scheduled_at is required")
	}

	start := in.ScheduledAt.UTC()
	if start.Before(s.now().UTC()) {
		return domain.Booking{}, validationError("scheduled_at must be in the future")
	}

	buffer, loc, err := s.bufferAndLocation(ctx, in.ProviderID)
	if err != nil {
		return domain.Booking{}, fmt.Errorf("schedule read: %w", err)
	}

	booking := domain.Booking{
		ProviderID:      in.ProviderID,
		ServiceID:       in.ServiceID,
		CustomerID:      in.CustomerID,
		ScheduledAt:     start,
		DurationMinutes: in.DurationMinutes,
		Status:          domain.BookingStatusPending,
	}
	end := booking.EndAt()

	var out domain.Booking
	err = s.bookings.InProviderTransaction(ctx, in.ProviderID, func(ctx context.Context, tx store.LedgerTx) error {
		existing, err := tx.ListActiveInRange(ctx, in.ProviderID, start.Add(-buffer), end.Add(buffer))
		if err != nil {
			return err
		}
		for _, b := range existing {
			if domain.OverlapsBuffered(start, end, b.ScheduledAt, b.EndAt(), buffer) {
				return store.ErrConflict
			}
		}

		created, err := tx.CreateBooking(ctx, booking)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	s.afterMutation(ctx, out, loc, events.Event{
		Type:       events.TypeBookingCreated,
		ProviderID: out.ProviderID,
		Booking:    out,
	})
	return out, nil
}

// bufferAndLocation reads the provider's schedule for conflict math. A
// provider without a stored schedule gets zero buffer and UTC days; the
// create path does not require availability windows (the generator does).
// Any other read failure is returned: conflict checks must not run with a
// buffer they could not load.
func (s *Service) bufferAndLocation(ctx context.Context, providerID string) (time.Duration, *time.Location, error) {
	sched, err := s.schedules.Get(ctx, providerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return 0, time.UTC, nil
		}
		return 0, time.UTC, err
	}
	loc, err := sched.Location()
	if err != nil {
		loc = time.UTC
	}
	return sched.Buffer(), loc, nil
}

// afterMutation handles the non-transactional tail of a committed mutation:
// slot-cache invalidation for the touched day and the notification event.
// Neither failure mode affects the already-committed booking.
func (s *Service) afterMutation(ctx context.Context, b domain.Booking, loc *time.Location, ev events.Event) {
	s.cache.Invalidate(ctx, b.ProviderID, b.ScheduledAt.In(loc).Format(dateLayout))
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.Warn("event publish failed",
			slog.Any("err", err),
			slog.String("event_type", ev.Type),
			slog.String("booking_id", b.ID.String()),
		)
	}
}
