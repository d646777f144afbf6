package service

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DTOs
type CreateTransporterRequest struct {
	Code string `json:"code" binding:"required"`
	Name string `json:"name" binding:"required"`
}

type RegisterVehicleRequest struct {
	TransporterID string `json:"transporter_id" binding:"required"`
	PlateNumber   string `json:"plate_number" binding:"required"`
}

type TransporterResponse struct {
	ID       string   `json:"id"`
	Code     string   `json:"code"`
	Name     string   `json:"name"`
	Vehicles []string `json:"vehicles,omitempty"`
}

// TransporterService maintains the reference data the departure engine
// resolves against: the transporter registry and each transporter's
// vehicle catalog.
type TransporterService interface {
	List(ctx context.Context) ([]TransporterResponse, error)
	Create(ctx context.Context, req CreateTransporterRequest) (TransporterResponse, error)
	RegisterVehicle(ctx context.Context, req RegisterVehicleRequest) (TransporterResponse, error)
}

type transporterService struct {
	transporterRepo repository.TransporterRepository
	vehicleRepo     repository.VehicleRepository
	logger          *zap.Logger
}

func NewTransporterService(
	transporterRepo repository.TransporterRepository,
	vehicleRepo repository.VehicleRepository,
	logger *zap.Logger,
) TransporterService {
	return &transporterService{
		transporterRepo: transporterRepo,
		vehicleRepo:     vehicleRepo,
		logger:          logger,
	}
}

func (s *transporterService) List(ctx context.Context) ([]TransporterResponse, error) {
	transporters, err := s.transporterRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list transporters: %w", err)
	}

	res := make([]TransporterResponse, 0, len(transporters))
	for _, t := range transporters {
		vehicles, err := s.vehicleRepo.ListByTransporter(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list vehicles: %w", err)
		}
		plates := make([]string, 0, len(vehicles))
		for _, v := range vehicles {
			plates = append(plates, v.PlateNumber)
		}
		res = append(res, TransporterResponse{
			ID:       t.ID.String(),
			Code:     t.Code,
			Name:     t.Name,
			Vehicles: plates,
		})
	}
	return res, nil
}

func (s *transporterService) Create(ctx context.Context, req CreateTransporterRequest) (TransporterResponse, error) {
	transporter := model.Transporter{Code: req.Code, Name: req.Name}
	if err := s.transporterRepo.Create(ctx, &transporter); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return TransporterResponse{}, rejectf(CodeInvalidInput, CategoryInput, "transporter code %s already exists", req.Code)
		}
		return TransporterResponse{}, fmt.Errorf("failed to create transporter: %w", err)
	}

	s.logger.Info("transporter registered",
		zap.String("transporter_id", transporter.ID.String()),
		zap.String("code", transporter.Code))
	return TransporterResponse{
		ID:   transporter.ID.String(),
		Code: transporter.Code,
		Name: transporter.Name,
	}, nil
}

// RegisterVehicle adds one truck to a transporter's catalog. Plates are
// unique across the whole registry, not per transporter.
func (s *transporterService) RegisterVehicle(ctx context.Context, req RegisterVehicleRequest) (TransporterResponse, error) {
	transporterID, err := uuid.Parse(req.TransporterID)
	if err != nil {
		return TransporterResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid transporter_id")
	}

	transporter, err := s.transporterRepo.FindByID(ctx, transporterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TransporterResponse{}, reject(CodeNotFound, CategoryReferential, "transporter not found")
		}
		return TransporterResponse{}, fmt.Errorf("failed to load transporter: %w", err)
	}

	vehicle := model.Vehicle{TransporterID: transporterID, PlateNumber: req.PlateNumber}
	if err := s.vehicleRepo.Create(ctx, &vehicle); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return TransporterResponse{}, rejectf(CodeInvalidInput, CategoryInput, "plate %s is already registered", req.PlateNumber)
		}
		return TransporterResponse{}, fmt.Errorf("failed to register vehicle: %w", err)
	}

	vehicles, err := s.vehicleRepo.ListByTransporter(ctx, transporterID)
	if err != nil {
		return TransporterResponse{}, fmt.Errorf("failed to list vehicles: %w", err)
	}
	plates := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		plates = append(plates, v.PlateNumber)
	}

	return TransporterResponse{
		ID:       transporter.ID.String(),
		Code:     transporter.Code,
		Name:     transporter.Name,
		Vehicles: plates,
	}, nil
}
