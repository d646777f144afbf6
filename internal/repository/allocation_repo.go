package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AllocationRepository interface {
	// GetOrCreate is the manual-entry path: an absent allocation is created
	// on demand. Duplicate rows for the same (pair, vehicle) are prevented
	// by the unique key, conflicts resolved by re-read.
	GetOrCreate(ctx context.Context, pairID, vehicleID uuid.UUID) (*model.VehicleAllocation, error)
	Find(ctx context.Context, pairID, vehicleID uuid.UUID) (*model.VehicleAllocation, error)
}

type allocationRepository struct {
	db *gorm.DB
}

func NewAllocationRepository(db *gorm.DB) AllocationRepository {
	return &allocationRepository{db: db}
}

func (r *allocationRepository) GetOrCreate(ctx context.Context, pairID, vehicleID uuid.UUID) (*model.VehicleAllocation, error) {
	alloc := model.VehicleAllocation{PairID: pairID, VehicleID: vehicleID}
	err := GetDB(ctx, r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_id"}, {Name: "vehicle_id"}},
			DoNothing: true,
		}).
		Create(&alloc).Error
	if err != nil {
		return nil, err
	}
	return r.Find(ctx, pairID, vehicleID)
}

func (r *allocationRepository) Find(ctx context.Context, pairID, vehicleID uuid.UUID) (*model.VehicleAllocation, error) {
	var alloc model.VehicleAllocation
	if err := GetDB(ctx, r.db).
		First(&alloc, "pair_id = ? AND vehicle_id = ?", pairID, vehicleID).Error; err != nil {
		return nil, err
	}
	return &alloc, nil
}
