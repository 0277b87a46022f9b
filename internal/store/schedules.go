package store

import (
	"context"

	"slotwise/backend/internal/domain"
)

type ScheduleRepository interface {
	Get(ctx context.Context, providerID string) (domain.WeeklySchedule, error)
	Upsert(ctx context.Context, sched domain.WeeklySchedule) (domain.WeeklySchedule, error)
}
