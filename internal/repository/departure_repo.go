package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DepartureRepository interface {
	Create(ctx context.Context, record *model.DepartureRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.DepartureRecord, error)
	Update(ctx context.Context, record *model.DepartureRecord) error
	UpdateVerification(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountByPair counts records across all allocations of one pair; the
	// last-record rollback decision depends on it.
	CountByPair(ctx context.Context, pairID uuid.UUID) (int64, error)
	CountByActivity(ctx context.Context, activityID uuid.UUID) (int64, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID, page, limit int) ([]model.DepartureRecord, int64, error)
}

type departureRepository struct {
	db *gorm.DB
}

func NewDepartureRepository(db *gorm.DB) DepartureRepository {
	return &departureRepository{db: db}
}

func (r *departureRepository) Create(ctx context.Context, record *model.DepartureRecord) error {
	return GetDB(ctx, r.db).Create(record).Error
}

func (r *departureRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.DepartureRecord, error) {
	var record model.DepartureRecord
	if err := GetDB(ctx, r.db).
		Preload("Allocation").
		Preload("Allocation.Vehicle").
		Preload("Submitter").
		First(&record, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *departureRepository) Update(ctx context.Context, record *model.DepartureRecord) error {
	return GetDB(ctx, r.db).Save(record).Error
}

func (r *departureRepository) UpdateVerification(ctx context.Context, id uuid.UUID, status string) error {
	res := GetDB(ctx, r.db).
		Model(&model.DepartureRecord{}).
		Where("id = ?", id).
		Update("verification_status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *departureRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.DepartureRecord{}, "id = ?", id).Error
}

func (r *departureRepository) CountByPair(ctx context.Context, pairID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.DepartureRecord{}).
		Joins("JOIN vehicle_allocations ON vehicle_allocations.id = departure_records.allocation_id").
		Where("vehicle_allocations.pair_id = ?", pairID).
		Count(&count).Error
	return count, err
}

func (r *departureRepository) CountByActivity(ctx context.Context, activityID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).
		Model(&model.DepartureRecord{}).
		Joins("JOIN vehicle_allocations ON vehicle_allocations.id = departure_records.allocation_id").
		Joins("JOIN activity_transporters ON activity_transporters.id = vehicle_allocations.pair_id").
		Where("activity_transporters.activity_id = ?", activityID).
		Count(&count).Error
	return count, err
}

func (r *departureRepository) ListByActivity(ctx context.Context, activityID uuid.UUID, page, limit int) ([]model.DepartureRecord, int64, error) {
	var records []model.DepartureRecord
	var total int64

	db := GetDB(ctx, r.db).
		Model(&model.DepartureRecord{}).
		Joins("JOIN vehicle_allocations ON vehicle_allocations.id = departure_records.allocation_id").
		Joins("JOIN activity_transporters ON activity_transporters.id = vehicle_allocations.pair_id").
		Where("activity_transporters.activity_id = ?", activityID)

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Allocation").
		Preload("Allocation.Pair").
		Preload("Allocation.Vehicle").
		Preload("Submitter").
		Order("departure_records.created_at DESC").
		Offset(offset).Limit(limit).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
