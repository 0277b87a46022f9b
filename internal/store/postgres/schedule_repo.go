package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"slotwise/backend/internal/domain"
	"slotwise/backend/internal/store"
)

type ScheduleRepo struct {
	db *bun.DB
}

func NewScheduleRepo(db *bun.DB) *ScheduleRepo {
	return &ScheduleRepo{db: db}
}

func (r *ScheduleRepo) Get(ctx context.Context, providerID string) (domain.WeeklySchedule, error) {
	var s domain.WeeklySchedule
	err := r.db.NewSelect().
		Model(&s).
		Where("provider_id = ?", providerID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.WeeklySchedule{}, store.ErrNotFound
		}
		return domain.WeeklySchedule{}, err
	}
	return s, nil
}

func (r *ScheduleRepo) Upsert(ctx context.Context, sched domain.WeeklySchedule) (domain.WeeklySchedule, error) {
	m := sched
	_, err := r.db.NewInsert().
		Model(&m).
		On("CONFLICT (provider_id) DO UPDATE").
		Set("timezone = EXCLUDED.timezone").
		Set("buffer_minutes = EXCLUDED.buffer_minutes").
		Set("days = EXCLUDED.days").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return domain.WeeklySchedule{}, err
	}
	return m, nil
}
