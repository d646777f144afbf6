package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	// FindByPlate resolves a plate against the global registry; plates are
	// unique across all transporters.
	FindByPlate(ctx context.Context, plate string) (*model.Vehicle, error)
	ListByTransporter(ctx context.Context, transporterID uuid.UUID) ([]model.Vehicle, error)
}

type vehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	return GetDB(ctx, r.db).Create(vehicle).Error
}

func (r *vehicleRepository) FindByPlate(ctx context.Context, plate string) (*model.Vehicle, error) {
	var vehicle model.Vehicle
	if err := GetDB(ctx, r.db).First(&vehicle, "plate_number = ?", plate).Error; err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) ListByTransporter(ctx context.Context, transporterID uuid.UUID) ([]model.Vehicle, error) {
	var vehicles []model.Vehicle
	if err := GetDB(ctx, r.db).
		Where("transporter_id = ?", transporterID).
		Order("plate_number asc").
		Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}
