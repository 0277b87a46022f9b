package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

var activeStatuses = []domain.BookingStatus{
	domain.BookingStatusPending,
	domain.BookingStatusConfirmed,
}

type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

type ledgerTx struct {
	tx bun.Tx
}

func (r *BookingRepo) GetByID(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := r.db.NewSelect().
		Model(&b).
		Where("provider_id = ?", providerID).
		Where("id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepo) ListActiveInRange(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	return listActiveInRange(ctx, r.db, providerID, windowStart, windowEnd)
}

// InProviderTransaction serializes commit-time mutations per provider with a
// transaction-scoped advisory lock. Unrelated providers proceed in parallel.
func (r *BookingRepo) InProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx store.LedgerTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderLedger(ctx, tx, providerID); err != nil {
			return err
		}
		return fn(ctx, ledgerTx{tx: tx})
	})
}

func lockProviderLedger(ctx context.Context, tx bun.Tx, providerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID).Exec(ctx)
	return err
}

func (t ledgerTx) CreateBooking(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	_, err := t.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "bookings_no_overlap" {
			return domain.Booking{}, store.ErrConflict
		}
		return domain.Booking{}, err
	}
	return m, nil
}

func (t ledgerTx) GetBookingForUpdate(ctx context.Context, providerID string, bookingID uuid.UUID) (domain.Booking, error) {
	var b domain.Booking
	err := t.tx.NewSelect().
		Model(&b).
		Where("provider_id = ?", providerID).
		Where("id = ?", bookingID).
		Limit(1).
		For("UPDATE").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Booking{}, store.ErrNotFound
		}
		return domain.Booking{}, err
	}
	return b, nil
}

func (t ledgerTx) ListActiveInRange(ctx context.Context, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	return listActiveInRange(ctx, t.tx, providerID, windowStart, windowEnd)
}

func (t ledgerTx) UpdateBookingStatus(ctx context.Context, b domain.Booking) (domain.Booking, error) {
	m := b
	res, err := t.tx.NewUpdate().
		Model(&m).
		Column("status", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Booking{}, err
	}
	if affected == 0 {
		return domain.Booking{}, store.ErrNotFound
	}
	return m, nil
}

// ApplyExtension writes the cascade back to front so no intermediate update
// trips the overlap exclusion constraint: each shifted booking moves into
// space already vacated by the one after it, and the target grows last.
func (t ledgerTx) ApplyExtension(ctx context.Context, target domain.Booking, shifts []domain.Shift) (domain.Booking, []domain.Shift, error) {
	applied := make([]domain.Shift, len(shifts))
	copy(applied, shifts)

	for i := len(applied) - 1; i >= 0; i-- {
		m := applied[i].Booking
		m.ScheduledAt = applied[i].NewStart
		_, err := t.tx.NewUpdate().
			Model(&m).
			Column("scheduled_at", "updated_at").
			WherePK().
			Exec(ctx)
		if err != nil {
			return domain.Booking{}, nil, err
		}
		applied[i].Booking = m
	}

	m := target
	_, err := t.tx.NewUpdate().
		Model(&m).
		Column("duration_minutes", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Booking{}, nil, err
	}

	return m, applied, nil
}

func listActiveInRange(ctx context.Context, db bun.IDB, providerID string, windowStart, windowEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status IN (?)", bun.In(activeStatuses)).
		Where("scheduled_at < ?", windowEnd).
		Where("scheduled_at + make_interval(mins => duration_minutes) > ?", windowStart).
		OrderExpr("scheduled_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
