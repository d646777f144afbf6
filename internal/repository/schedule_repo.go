package repository

import (
	"context"
	"time"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ScheduleRepository interface {
	Create(ctx context.Context, assignment *model.ScheduleAssignment) error
	// ListForPersonDate returns every assignment of one person on one
	// calendar date. Empty result means the person may not submit.
	ListForPersonDate(ctx context.Context, personID uuid.UUID, date time.Time) ([]model.ScheduleAssignment, error)
	ListByDate(ctx context.Context, date time.Time, page, limit int) ([]model.ScheduleAssignment, int64, error)
}

type scheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Create(ctx context.Context, assignment *model.ScheduleAssignment) error {
	return GetDB(ctx, r.db).Create(assignment).Error
}

func (r *scheduleRepository) ListForPersonDate(ctx context.Context, personID uuid.UUID, date time.Time) ([]model.ScheduleAssignment, error) {
	var assignments []model.ScheduleAssignment
	day := date.Format("2006-01-02")
	if err := GetDB(ctx, r.db).
		Where("person_id = ? AND date = ?", personID, day).
		Find(&assignments).Error; err != nil {
		return nil, err
	}
	return assignments, nil
}

func (r *scheduleRepository) ListByDate(ctx context.Context, date time.Time, page, limit int) ([]model.ScheduleAssignment, int64, error) {
	var assignments []model.ScheduleAssignment
	var total int64

	db := GetDB(ctx, r.db).
		Model(&model.ScheduleAssignment{}).
		Where("date = ?", date.Format("2006-01-02"))
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Preload("Person").Offset(offset).Limit(limit).Find(&assignments).Error; err != nil {
		return nil, 0, err
	}

	return assignments, total, nil
}
