package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PairRepository interface {
	// GetOrCreate materializes the (activity, transporter) pair if it does
	// not exist yet. Safe under concurrent invocation: insert conflicts on
	// the unique key are swallowed and the winning row is re-read.
	GetOrCreate(ctx context.Context, activityID, transporterID uuid.UUID) (*model.ActivityTransporter, error)
	Find(ctx context.Context, activityID, transporterID uuid.UUID) (*model.ActivityTransporter, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.ActivityTransporter, error)
	ListByActivity(ctx context.Context, activityID uuid.UUID) ([]model.ActivityTransporter, error)
	// TransitionStatus performs a conditional update and reports whether
	// this call actually flipped the row. Concurrent duplicates observe
	// zero rows affected instead of double-firing side effects.
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type pairRepository struct {
	db *gorm.DB
}

func NewPairRepository(db *gorm.DB) PairRepository {
	return &pairRepository{db: db}
}

func (r *pairRepository) GetOrCreate(ctx context.Context, activityID, transporterID uuid.UUID) (*model.ActivityTransporter, error) {
	pair := model.ActivityTransporter{
		ActivityID:    activityID,
		TransporterID: transporterID,
		Status:        model.StatusWaiting,
	}
	err := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "activity_id"}, {Name: "transporter_id"}},
			DoNothing: true,
		}).
		Create(&pair).Error
	if err != nil {
		return nil, err
	}
	// Re-read: on conflict the insert returns no row, and even on success
	// the re-read keeps both code paths identical.
	return r.Find(ctx, activityID, transporterID)
}

func (r *pairRepository) Find(ctx context.Context, activityID, transporterID uuid.UUID) (*model.ActivityTransporter, error) {
	var pair model.ActivityTransporter
	if err := GetDB(ctx, r.db).
		First(&pair, "activity_id = ? AND transporter_id = ?", activityID, transporterID).Error; err != nil {
		return nil, err
	}
	return &pair, nil
}

func (r *pairRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.ActivityTransporter, error) {
	var pair model.ActivityTransporter
	if err := GetDB(ctx, r.db).Preload("Transporter").First(&pair, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pair, nil
}

func (r *pairRepository) ListByActivity(ctx context.Context, activityID uuid.UUID) ([]model.ActivityTransporter, error) {
	var pairs []model.ActivityTransporter
	if err := GetDB(ctx, r.db).
		Preload("Transporter").
		Preload("Allocations").
		Preload("Allocations.Vehicle").
		Where("activity_id = ?", activityID).
		Order("created_at asc").
		Find(&pairs).Error; err != nil {
		return nil, err
	}
	return pairs, nil
}

func (r *pairRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to string) (bool, error) {
	res := GetDB(ctx, r.db).
		Model(&model.ActivityTransporter{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return res.RowsAffected > 0, res.Error
}

func (r *pairRepository) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).
		Model(&model.ActivityTransporter{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *pairRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.ActivityTransporter{}, "id = ?", id).Error
}
