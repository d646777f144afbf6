package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository interface {
	Create(ctx context.Context, activity *model.Activity) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Activity, error)
	FindByPONumber(ctx context.Context, po string) (*model.Activity, error)
	// LockByID reads the activity under FOR UPDATE so that departure edits
	// and completion toggles on the same Activity cannot interleave.
	LockByID(ctx context.Context, id uuid.UUID) (*model.Activity, error)
	Update(ctx context.Context, activity *model.Activity) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, page, limit int, search string) ([]model.Activity, int64, error)
}

type activityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &activityRepository{db: db}
}

func (r *activityRepository) Create(ctx context.Context, activity *model.Activity) error {
	return GetDB(ctx, r.db).Create(activity).Error
}

func (r *activityRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var activity model.Activity
	if err := GetDB(ctx, r.db).First(&activity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) FindByPONumber(ctx context.Context, po string) (*model.Activity, error) {
	var activity model.Activity
	if err := GetDB(ctx, r.db).First(&activity, "po_number = ?", po).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) LockByID(ctx context.Context, id uuid.UUID) (*model.Activity, error) {
	var activity model.Activity
	if err := GetDB(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&activity, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &activity, nil
}

func (r *activityRepository) Update(ctx context.Context, activity *model.Activity) error {
	return GetDB(ctx, r.db).Save(activity).Error
}

func (r *activityRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	return GetDB(ctx, r.db).Model(&model.Activity{}).Where("id = ?", id).Update("status", status).Error
}

func (r *activityRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Delete(&model.Activity{}, "id = ?", id).Error
}

func (r *activityRepository) List(ctx context.Context, page, limit int, search string) ([]model.Activity, int64, error) {
	var activities []model.Activity
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Activity{})
	if search != "" {
		db = db.Where("po_number ILIKE ? OR vendor ILIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Transporters").
		Preload("Transporters.Transporter").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}
