package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DTOs
type CreateActivityRequest struct {
	PONumber  string `json:"po_number" binding:"required"`
	Vendor    string `json:"vendor" binding:"required"`
	Material  string `json:"material" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"` // tonnes, decimal string
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type UpdateActivityRequest struct {
	Vendor    string `json:"vendor" binding:"required"`
	Material  string `json:"material" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

type AllocateVehiclesRequest struct {
	ActivityID    string   `json:"activity_id" binding:"required"`
	TransporterID string   `json:"transporter_id" binding:"required"`
	PlateNumbers  []string `json:"plate_numbers" binding:"required,min=1"`
}

type ActivityResponse struct {
	ID        string `json:"id"`
	PONumber  string `json:"po_number"`
	Vendor    string `json:"vendor"`
	Material  string `json:"material"`
	Quantity  string `json:"quantity"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Status    string `json:"status"`

	Transporters []TransporterSummary `json:"transporters,omitempty"`
}

type TransporterSummary struct {
	PairID        string   `json:"pair_id"`
	TransporterID string   `json:"transporter_id"`
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	Vehicles      []string `json:"vehicles"`
}

type ActivityService interface {
	// CheckPO is the field pre-flight: activity header plus the eligible
	// (non-completed) transporters and their allocated vehicles.
	CheckPO(ctx context.Context, poNumber string, now time.Time) (ActivityResponse, error)
	Create(ctx context.Context, personID uuid.UUID, req CreateActivityRequest) (ActivityResponse, error)
	Update(ctx context.Context, personID uuid.UUID, id string, req UpdateActivityRequest) (ActivityResponse, error)
	List(ctx context.Context, page, limit int, search string) ([]ActivityResponse, int64, error)
	// ToggleCompletion flips the Activity between Completed and its
	// inferred prior status (OnProgress when departures exist, else
	// Waiting). Serialized against departure edits via the activity lock.
	ToggleCompletion(ctx context.Context, personID uuid.UUID, id string) (string, error)
	// TogglePairCompletion force-completes or reopens one transporter pair.
	TogglePairCompletion(ctx context.Context, personID uuid.UUID, activityID, transporterID string) (string, error)
	Delete(ctx context.Context, personID uuid.UUID, id string) error
	AllocateVehicles(ctx context.Context, personID uuid.UUID, req AllocateVehiclesRequest) (int, error)
}

type activityService struct {
	activityRepo   repository.ActivityRepository
	pairRepo       repository.PairRepository
	vehicleRepo    repository.VehicleRepository
	allocationRepo repository.AllocationRepository
	departureRepo  repository.DepartureRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	logger         *zap.Logger
}

func NewActivityService(
	activityRepo repository.ActivityRepository,
	pairRepo repository.PairRepository,
	vehicleRepo repository.VehicleRepository,
	allocationRepo repository.AllocationRepository,
	departureRepo repository.DepartureRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) ActivityService {
	return &activityService{
		activityRepo:   activityRepo,
		pairRepo:       pairRepo,
		vehicleRepo:    vehicleRepo,
		allocationRepo: allocationRepo,
		departureRepo:  departureRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		logger:         logger,
	}
}

func (s *activityService) CheckPO(ctx context.Context, poNumber string, now time.Time) (ActivityResponse, error) {
	activity, err := s.activityRepo.FindByPONumber(ctx, poNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ActivityResponse{}, rejectf(CodeNotFound, CategoryReferential, "no activity for PO %s", poNumber)
		}
		return ActivityResponse{}, fmt.Errorf("failed to load activity: %w", err)
	}

	if err := checkDateRange(activity, now); err != nil {
		return ActivityResponse{}, err
	}

	pairs, err := s.pairRepo.ListByActivity(ctx, activity.ID)
	if err != nil {
		return ActivityResponse{}, fmt.Errorf("failed to load transporter pairs: %w", err)
	}
	if allCompleted(pairs) {
		return ActivityResponse{}, reject(CodeActivityClosed, CategoryState, "every transporter under this activity is completed")
	}

	res := toActivityResponse(activity)
	for _, p := range pairs {
		if p.Status == model.StatusCompleted {
			continue
		}
		summary := TransporterSummary{
			PairID:        p.ID.String(),
			TransporterID: p.TransporterID.String(),
			Status:        p.Status,
			Vehicles:      make([]string, 0, len(p.Allocations)),
		}
		if p.Transporter != nil {
			summary.Name = p.Transporter.Name
		}
		for _, a := range p.Allocations {
			if a.Vehicle != nil {
				summary.Vehicles = append(summary.Vehicles, a.Vehicle.PlateNumber)
			}
		}
		res.Transporters = append(res.Transporters, summary)
	}
	return res, nil
}

func (s *activityService) Create(ctx context.Context, personID uuid.UUID, req CreateActivityRequest) (ActivityResponse, error) {
	quantity, start, end, err := parseActivityFields(req.Quantity, req.StartDate, req.EndDate)
	if err != nil {
		return ActivityResponse{}, err
	}

	activity := model.Activity{
		PONumber:  req.PONumber,
		Vendor:    req.Vendor,
		Material:  req.Material,
		Quantity:  quantity,
		StartDate: start,
		EndDate:   end,
		Status:    model.StatusWaiting,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if txErr := s.activityRepo.Create(txCtx, &activity); txErr != nil {
			if errors.Is(txErr, gorm.ErrDuplicatedKey) {
				return rejectf(CodeInvalidInput, CategoryInput, "PO %s already exists", req.PONumber)
			}
			return fmt.Errorf("failed to create activity: %w", txErr)
		}
		return s.logAudit(txCtx, personID, model.ActionCreateActivity, activity.ID.String(), activity.PONumber, map[string]interface{}{
			"po_number": req.PONumber,
			"vendor":    req.Vendor,
			"material":  req.Material,
			"quantity":  req.Quantity,
		})
	})
	if err != nil {
		return ActivityResponse{}, err
	}

	return toActivityResponse(&activity), nil
}

func (s *activityService) Update(ctx context.Context, personID uuid.UUID, id string, req UpdateActivityRequest) (ActivityResponse, error) {
	activityID, err := uuid.Parse(id)
	if err != nil {
		return ActivityResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid activity id")
	}
	quantity, start, end, err := parseActivityFields(req.Quantity, req.StartDate, req.EndDate)
	if err != nil {
		return ActivityResponse{}, err
	}

	var activity *model.Activity
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		activity, err = s.activityRepo.LockByID(txCtx, activityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject(CodeNotFound, CategoryReferential, "activity not found")
			}
			return fmt.Errorf("failed to load activity: %w", err)
		}
		if activity.Status == model.StatusCompleted {
			return reject(CodeActivityClosed, CategoryState, "completed activity cannot be edited")
		}

		activity.Vendor = req.Vendor
		activity.Material = req.Material
		activity.Quantity = quantity
		activity.StartDate = start
		activity.EndDate = end
		if err := s.activityRepo.Update(txCtx, activity); err != nil {
			return fmt.Errorf("failed to update activity: %w", err)
		}
		return s.logAudit(txCtx, personID, model.ActionUpdateActivity, activity.ID.String(), activity.PONumber, map[string]interface{}{
			"vendor":   req.Vendor,
			"material": req.Material,
			"quantity": req.Quantity,
		})
	})
	if err != nil {
		return ActivityResponse{}, err
	}

	return toActivityResponse(activity), nil
}

func (s *activityService) List(ctx context.Context, page, limit int, search string) ([]ActivityResponse, int64, error) {
	activities, total, err := s.activityRepo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ActivityResponse, 0, len(activities))
	for i := range activities {
		item := toActivityResponse(&activities[i])
		for _, p := range activities[i].Transporters {
			summary := TransporterSummary{
				PairID:        p.ID.String(),
				TransporterID: p.TransporterID.String(),
				Status:        p.Status,
			}
			if p.Transporter != nil {
				summary.Name = p.Transporter.Name
			}
			item.Transporters = append(item.Transporters, summary)
		}
		res = append(res, item)
	}
	return res, total, nil
}

func (s *activityService) ToggleCompletion(ctx context.Context, personID uuid.UUID, id string) (string, error) {
	activityID, err := uuid.Parse(id)
	if err != nil {
		return "", reject(CodeInvalidInput, CategoryInput, "invalid activity id")
	}

	var newStatus string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// The lock excludes a concurrent departure edit on this Activity.
		activity, err := s.activityRepo.LockByID(txCtx, activityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject(CodeNotFound, CategoryReferential, "activity not found")
			}
			return fmt.Errorf("failed to lock activity: %w", err)
		}

		if activity.Status == model.StatusCompleted {
			// Reopen: infer the prior status from departure history.
			count, err := s.departureRepo.CountByActivity(txCtx, activityID)
			if err != nil {
				return fmt.Errorf("failed to count departures: %w", err)
			}
			newStatus = model.StatusWaiting
			if count > 0 {
				newStatus = model.StatusOnProgress
			}
		} else {
			newStatus = model.StatusCompleted
		}

		if err := s.activityRepo.UpdateStatus(txCtx, activityID, newStatus); err != nil {
			return fmt.Errorf("failed to update activity status: %w", err)
		}
		return s.logAudit(txCtx, personID, model.ActionToggleActivity, activityID.String(), activity.PONumber, map[string]interface{}{
			"status": newStatus,
		})
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("activity completion toggled",
		zap.String("activity_id", activityID.String()),
		zap.String("status", newStatus))
	return newStatus, nil
}

func (s *activityService) TogglePairCompletion(ctx context.Context, personID uuid.UUID, activityID, transporterID string) (string, error) {
	aid, err := uuid.Parse(activityID)
	if err != nil {
		return "", reject(CodeInvalidInput, CategoryInput, "invalid activity id")
	}
	tid, err := uuid.Parse(transporterID)
	if err != nil {
		return "", reject(CodeInvalidInput, CategoryInput, "invalid transporter id")
	}

	var newStatus string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		pair, err := s.pairRepo.Find(txCtx, aid, tid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject(CodeNotFound, CategoryReferential, "transporter pair not found")
			}
			return fmt.Errorf("failed to load pair: %w", err)
		}

		action := model.ActionCompletePair
		if pair.Status == model.StatusCompleted {
			// Reopen from departure history, mirroring the activity toggle.
			count, err := s.departureRepo.CountByPair(txCtx, pair.ID)
			if err != nil {
				return fmt.Errorf("failed to count departures: %w", err)
			}
			newStatus = model.StatusWaiting
			if count > 0 {
				newStatus = model.StatusOnProgress
			}
			action = model.ActionReopenPair
		} else {
			newStatus = model.StatusCompleted
		}

		if err := s.pairRepo.SetStatus(txCtx, pair.ID, newStatus); err != nil {
			return fmt.Errorf("failed to update pair status: %w", err)
		}
		return s.logAudit(txCtx, personID, action, pair.ID.String(), "", map[string]interface{}{
			"status": newStatus,
		})
	})
	if err != nil {
		return "", err
	}
	return newStatus, nil
}

func (s *activityService) Delete(ctx context.Context, personID uuid.UUID, id string) error {
	activityID, err := uuid.Parse(id)
	if err != nil {
		return reject(CodeInvalidInput, CategoryInput, "invalid activity id")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		activity, err := s.activityRepo.LockByID(txCtx, activityID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject(CodeNotFound, CategoryReferential, "activity not found")
			}
			return fmt.Errorf("failed to lock activity: %w", err)
		}

		pairs, err := s.pairRepo.ListByActivity(txCtx, activityID)
		if err != nil {
			return fmt.Errorf("failed to load transporter pairs: %w", err)
		}

		active := 0
		for _, p := range pairs {
			if p.Status != model.StatusWaiting {
				active++
				continue
			}
			count, err := s.departureRepo.CountByPair(txCtx, p.ID)
			if err != nil {
				return fmt.Errorf("failed to count departures: %w", err)
			}
			if count > 0 {
				active++
			}
		}
		if active > 0 {
			r := rejectf(CodeHasActiveTransporters, CategoryState, "%d transporter(s) have departures or progressed status", active)
			r.Detail = map[string]interface{}{"transporter_count": active}
			return r
		}

		for _, p := range pairs {
			if err := s.pairRepo.Delete(txCtx, p.ID); err != nil {
				return fmt.Errorf("failed to delete transporter pair: %w", err)
			}
		}
		if err := s.activityRepo.Delete(txCtx, activityID); err != nil {
			return fmt.Errorf("failed to delete activity: %w", err)
		}
		return s.logAudit(txCtx, personID, model.ActionDeleteActivity, activityID.String(), activity.PONumber, map[string]interface{}{
			"deleted": true,
		})
	})
}

// AllocateVehicles is the admin bulk-add path: allocates each named plate
// to the (activity, transporter) pair, materializing the pair if needed.
// Already-allocated plates are skipped. Returns the number added.
func (s *activityService) AllocateVehicles(ctx context.Context, personID uuid.UUID, req AllocateVehiclesRequest) (int, error) {
	activityID, err := uuid.Parse(req.ActivityID)
	if err != nil {
		return 0, reject(CodeInvalidInput, CategoryInput, "invalid activity_id")
	}
	transporterID, err := uuid.Parse(req.TransporterID)
	if err != nil {
		return 0, reject(CodeInvalidInput, CategoryInput, "invalid transporter_id")
	}

	added := 0
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.activityRepo.FindByID(txCtx, activityID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject(CodeNotFound, CategoryReferential, "activity not found")
			}
			return fmt.Errorf("failed to load activity: %w", err)
		}

		pair, err := s.pairRepo.GetOrCreate(txCtx, activityID, transporterID)
		if err != nil {
			return fmt.Errorf("failed to materialize transporter pair: %w", err)
		}

		for _, plate := range req.PlateNumbers {
			vehicle, err := s.vehicleRepo.FindByPlate(txCtx, plate)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return rejectf(CodeUnknownVehicle, CategoryReferential, "plate %s is not registered", plate)
				}
				return fmt.Errorf("failed to resolve plate: %w", err)
			}
			if _, err := s.allocationRepo.Find(txCtx, pair.ID, vehicle.ID); err == nil {
				continue // already allocated
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to check allocation: %w", err)
			}
			if _, err := s.allocationRepo.GetOrCreate(txCtx, pair.ID, vehicle.ID); err != nil {
				return fmt.Errorf("failed to create allocation: %w", err)
			}
			added++
		}

		return s.logAudit(txCtx, personID, model.ActionCreateAllocation, pair.ID.String(), "", map[string]interface{}{
			"plates": req.PlateNumbers,
			"added":  added,
		})
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// --- helpers ---

func (s *activityService) logAudit(ctx context.Context, personID uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	return logAuditEntry(ctx, s.auditRepo, personID, action, entityID, entityName, details)
}

func toActivityResponse(a *model.Activity) ActivityResponse {
	return ActivityResponse{
		ID:        a.ID.String(),
		PONumber:  a.PONumber,
		Vendor:    a.Vendor,
		Material:  a.Material,
		Quantity:  a.Quantity.String(),
		StartDate: a.StartDate.Format("2006-01-02"),
		EndDate:   a.EndDate.Format("2006-01-02"),
		Status:    a.Status,
	}
}

func parseActivityFields(quantity, startDate, endDate string) (decimal.Decimal, time.Time, time.Time, error) {
	qty, err := decimal.NewFromString(quantity)
	if err != nil || qty.IsNegative() {
		return decimal.Zero, time.Time{}, time.Time{}, reject(CodeInvalidInput, CategoryInput, "invalid quantity")
	}
	start, err := time.Parse("2006-01-02", startDate)
	if err != nil {
		return decimal.Zero, time.Time{}, time.Time{}, reject(CodeInvalidInput, CategoryInput, "invalid start_date, expected YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", endDate)
	if err != nil {
		return decimal.Zero, time.Time{}, time.Time{}, reject(CodeInvalidInput, CategoryInput, "invalid end_date, expected YYYY-MM-DD")
	}
	if end.Before(start) {
		return decimal.Zero, time.Time{}, time.Time{}, reject(CodeInvalidInput, CategoryInput, "end_date precedes start_date")
	}
	return qty, start, end, nil
}
