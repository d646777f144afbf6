package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TransporterRepository interface {
	Create(ctx context.Context, transporter *model.Transporter) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Transporter, error)
	List(ctx context.Context) ([]model.Transporter, error)
}

type transporterRepository struct {
	db *gorm.DB
}

func NewTransporterRepository(db *gorm.DB) TransporterRepository {
	return &transporterRepository{db: db}
}

func (r *transporterRepository) Create(ctx context.Context, transporter *model.Transporter) error {
	return GetDB(ctx, r.db).Create(transporter).Error
}

func (r *transporterRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Transporter, error) {
	var transporter model.Transporter
	if err := GetDB(ctx, r.db).First(&transporter, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &transporter, nil
}

func (r *transporterRepository) List(ctx context.Context) ([]model.Transporter, error) {
	var transporters []model.Transporter
	if err := GetDB(ctx, r.db).Order("name asc").Find(&transporters).Error; err != nil {
		return nil, err
	}
	return transporters, nil
}
