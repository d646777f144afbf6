package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/storage"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DTOs
type SubmitDepartureRequest struct {
	ActivityID    string `json:"activity_id" binding:"required"`
	TransporterID string `json:"transporter_id" binding:"required"`
	PlateNumber   string `json:"plate_number" binding:"required"`
	DeliveryNote  string `json:"delivery_note" binding:"required"`
	Remarks       string `json:"remarks"`
	// Manual path only: the field path derives both from the server clock.
	Shift string `json:"shift"`
	Date  string `json:"date"` // YYYY-MM-DD
}

type EditDepartureRequest struct {
	TransporterID string `json:"transporter_id" binding:"required"`
	PlateNumber   string `json:"plate_number" binding:"required"`
	Shift         string `json:"shift" binding:"required,oneof=SHIFT_1 SHIFT_2 SHIFT_3"`
	Date          string `json:"date" binding:"required"`
	DeliveryNote  string `json:"delivery_note" binding:"required"`
	Remarks       string `json:"remarks"`
}

// EvidencePair carries the two mandatory photos of the field path.
type EvidencePair struct {
	Front    []byte
	FrontExt string
	Rear     []byte
	RearExt  string
}

type DepartureResponse struct {
	ID                 string `json:"id"`
	ActivityID         string `json:"activity_id"`
	TransporterID      string `json:"transporter_id"`
	PlateNumber        string `json:"plate_number"`
	Shift              string `json:"shift"`
	Date               string `json:"date"`
	DeliveryNote       string `json:"delivery_note"`
	Remarks            string `json:"remarks"`
	EvidenceFront      string `json:"evidence_front,omitempty"`
	EvidenceRear       string `json:"evidence_rear,omitempty"`
	VerificationStatus string `json:"verification_status"`
	SubmittedBy        string `json:"submitted_by"`
}

// gateSet selects which validation gates run for a submission path. The
// field and manual paths share one pipeline and one commit routine.
type gateSet struct {
	dateRange    bool
	completion   bool
	shiftGate    bool
	evidence     bool // both photos mandatory
	autoAllocate bool // create the allocation on demand if absent
}

var (
	fieldGates  = gateSet{dateRange: true, completion: true, shiftGate: true, evidence: true}
	manualGates = gateSet{autoAllocate: true}
)

type DepartureService interface {
	SubmitField(ctx context.Context, personID uuid.UUID, now time.Time, req SubmitDepartureRequest, evidence EvidencePair) (DepartureResponse, error)
	SubmitManual(ctx context.Context, personID uuid.UUID, req SubmitDepartureRequest, evidence *EvidencePair) (DepartureResponse, error)
	Edit(ctx context.Context, personID uuid.UUID, recordID string, req EditDepartureRequest) (DepartureResponse, error)
	Delete(ctx context.Context, personID uuid.UUID, recordID string) error
	ListByActivity(ctx context.Context, activityID string, page, limit int) ([]DepartureResponse, int64, error)
}

type departureService struct {
	activityRepo   repository.ActivityRepository
	pairRepo       repository.PairRepository
	vehicleRepo    repository.VehicleRepository
	allocationRepo repository.AllocationRepository
	departureRepo  repository.DepartureRepository
	auditRepo      repository.AuditRepository
	txManager      repository.TransactionManager
	schedules      ScheduleService
	evidence       storage.EvidenceStore
	hub            *ws.Hub
	logger         *zap.Logger
}

func NewDepartureService(
	activityRepo repository.ActivityRepository,
	pairRepo repository.PairRepository,
	vehicleRepo repository.VehicleRepository,
	allocationRepo repository.AllocationRepository,
	departureRepo repository.DepartureRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	schedules ScheduleService,
	evidence storage.EvidenceStore,
	hub *ws.Hub,
	logger *zap.Logger,
) DepartureService {
	return &departureService{
		activityRepo:   activityRepo,
		pairRepo:       pairRepo,
		vehicleRepo:    vehicleRepo,
		allocationRepo: allocationRepo,
		departureRepo:  departureRepo,
		auditRepo:      auditRepo,
		txManager:      txManager,
		schedules:      schedules,
		evidence:       evidence,
		hub:            hub,
		logger:         logger,
	}
}

func (s *departureService) SubmitField(ctx context.Context, personID uuid.UUID, now time.Time, req SubmitDepartureRequest, evidence EvidencePair) (DepartureResponse, error) {
	return s.submit(ctx, personID, now, req, &evidence, fieldGates)
}

func (s *departureService) SubmitManual(ctx context.Context, personID uuid.UUID, req SubmitDepartureRequest, evidence *EvidencePair) (DepartureResponse, error) {
	return s.submit(ctx, personID, time.Now(), req, evidence, manualGates)
}

// submit runs the validation pipeline and commits the departure. Gate
// order follows the field workflow: date range, completion, transporter
// state, shift, evidence, allocation, commit.
func (s *departureService) submit(ctx context.Context, personID uuid.UUID, now time.Time, req SubmitDepartureRequest, evidence *EvidencePair, gates gateSet) (DepartureResponse, error) {
	activityID, err := uuid.Parse(req.ActivityID)
	if err != nil {
		return DepartureResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid activity_id")
	}
	transporterID, err := uuid.Parse(req.TransporterID)
	if err != nil {
		return DepartureResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid transporter_id")
	}

	activity, err := s.activityRepo.FindByID(ctx, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DepartureResponse{}, reject(CodeNotFound, CategoryReferential, "activity not found")
		}
		return DepartureResponse{}, fmt.Errorf("failed to load activity: %w", err)
	}

	if gates.dateRange {
		if err := checkDateRange(activity, now); err != nil {
			return DepartureResponse{}, err
		}
	}

	pairs, err := s.pairRepo.ListByActivity(ctx, activityID)
	if err != nil {
		return DepartureResponse{}, fmt.Errorf("failed to load transporter pairs: %w", err)
	}

	if gates.completion && allCompleted(pairs) {
		return DepartureResponse{}, reject(CodeActivityClosed, CategoryState, "every transporter under this activity is completed")
	}

	// A completed pair accepts no further departures on either path.
	for _, p := range pairs {
		if p.TransporterID == transporterID && p.Status == model.StatusCompleted {
			return DepartureResponse{}, reject(CodeTransporterClosed, CategoryState, "transporter is completed for this activity")
		}
	}

	shift := req.Shift
	departureDate := now
	if gates.shiftGate {
		// No backdating on the field path: a submitted date must be today.
		if req.Date != "" && req.Date != now.Format("2006-01-02") {
			return DepartureResponse{}, reject(CodeInvalidInput, CategoryInput, "departure date must be the current date")
		}
		shift, err = s.schedules.ResolveCurrentShift(ctx, personID, now)
		if err != nil {
			return DepartureResponse{}, err
		}
	} else {
		if shift == "" {
			return DepartureResponse{}, reject(CodeInvalidInput, CategoryInput, "shift is required on manual entry")
		}
		if req.Date != "" {
			departureDate, err = time.Parse("2006-01-02", req.Date)
			if err != nil {
				return DepartureResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid date, expected YYYY-MM-DD")
			}
		}
	}

	if gates.evidence && (evidence == nil || len(evidence.Front) == 0 || len(evidence.Rear) == 0) {
		return DepartureResponse{}, reject(CodeMissingEvidence, CategoryInput, "both evidence photos are required")
	}

	vehicle, err := s.vehicleRepo.FindByPlate(ctx, req.PlateNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DepartureResponse{}, rejectf(CodeUnknownVehicle, CategoryReferential, "plate %s is not registered", req.PlateNumber)
		}
		return DepartureResponse{}, fmt.Errorf("failed to resolve plate: %w", err)
	}

	// Evidence is written before the transaction; a failed commit retracts
	// the blobs so neither side ends up orphaned.
	var frontKey, rearKey string
	if evidence != nil && len(evidence.Front) > 0 {
		if frontKey, err = s.evidence.Save(evidence.Front, evidence.FrontExt); err != nil {
			return DepartureResponse{}, fmt.Errorf("failed to store evidence: %w", err)
		}
	}
	if evidence != nil && len(evidence.Rear) > 0 {
		if rearKey, err = s.evidence.Save(evidence.Rear, evidence.RearExt); err != nil {
			s.retractEvidence(frontKey)
			return DepartureResponse{}, fmt.Errorf("failed to store evidence: %w", err)
		}
	}

	record := model.DepartureRecord{
		SubmittedBy:        personID,
		Shift:              shift,
		DepartureDate:      dateOnly(departureDate),
		DeliveryNote:       req.DeliveryNote,
		Remarks:            req.Remarks,
		EvidenceFront:      frontKey,
		EvidenceRear:       rearKey,
		VerificationStatus: model.VerificationValid,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		pair, txErr := s.pairRepo.GetOrCreate(txCtx, activityID, transporterID)
		if txErr != nil {
			return fmt.Errorf("failed to materialize transporter pair: %w", txErr)
		}

		var alloc *model.VehicleAllocation
		if gates.autoAllocate {
			alloc, txErr = s.allocationRepo.GetOrCreate(txCtx, pair.ID, vehicle.ID)
		} else {
			alloc, txErr = s.allocationRepo.Find(txCtx, pair.ID, vehicle.ID)
			if errors.Is(txErr, gorm.ErrRecordNotFound) {
				return rejectf(CodeVehicleNotAllocated, CategoryReferential, "vehicle %s is not allocated to this transporter", req.PlateNumber)
			}
		}
		if txErr != nil {
			return fmt.Errorf("failed to resolve allocation: %w", txErr)
		}

		record.AllocationID = alloc.ID
		if txErr = s.departureRepo.Create(txCtx, &record); txErr != nil {
			return fmt.Errorf("failed to create departure record: %w", txErr)
		}

		// Conditional transition: N concurrent first-departures flip the
		// pair exactly once, the rest are no-ops.
		if _, txErr = s.pairRepo.TransitionStatus(txCtx, pair.ID, model.StatusWaiting, model.StatusOnProgress); txErr != nil {
			return fmt.Errorf("failed to transition pair status: %w", txErr)
		}

		action := model.ActionCreateDeparture
		if gates.autoAllocate {
			action = model.ActionCreateDepartureMan
		}
		return s.logAudit(txCtx, personID, action, record.ID.String(), activity.PONumber, map[string]interface{}{
			"po_number": activity.PONumber,
			"plate":     req.PlateNumber,
			"shift":     shift,
			"note":      req.DeliveryNote,
		})
	})
	if err != nil {
		s.retractEvidence(frontKey, rearKey)
		return DepartureResponse{}, err
	}

	s.logger.Info("departure recorded",
		zap.String("departure_id", record.ID.String()),
		zap.String("po_number", activity.PONumber),
		zap.String("plate", req.PlateNumber),
		zap.String("shift", shift))
	s.broadcast("departure_created", record.ID, activity.PONumber, req.PlateNumber)

	return DepartureResponse{
		ID:                 record.ID.String(),
		ActivityID:         activityID.String(),
		TransporterID:      transporterID.String(),
		PlateNumber:        req.PlateNumber,
		Shift:              record.Shift,
		Date:               record.DepartureDate.Format("2006-01-02"),
		DeliveryNote:       record.DeliveryNote,
		Remarks:            record.Remarks,
		EvidenceFront:      record.EvidenceFront,
		EvidenceRear:       record.EvidenceRear,
		VerificationStatus: record.VerificationStatus,
		SubmittedBy:        personID.String(),
	}, nil
}

// Edit re-resolves the vehicle and allocation of an existing record,
// re-parenting it when the transporter or vehicle changed. Temporal gates
// are not re-validated; the recorded shift and date stay authoritative.
func (s *departureService) Edit(ctx context.Context, personID uuid.UUID, recordID string, req EditDepartureRequest) (DepartureResponse, error) {
	id, err := uuid.Parse(recordID)
	if err != nil {
		return DepartureResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid departure id")
	}
	transporterID, err := uuid.Parse(req.TransporterID)
	if err != nil {
		return DepartureResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid transporter_id")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return DepartureResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid date, expected YYYY-MM-DD")
	}

	var record *model.DepartureRecord
	var activityID uuid.UUID
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		record, err = s.departureRepo.FindByID(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject(CodeNotFound, CategoryReferential, "departure record not found")
			}
			return fmt.Errorf("failed to load departure record: %w", err)
		}

		oldPair, err := s.pairRepo.FindByID(txCtx, record.Allocation.PairID)
		if err != nil {
			return fmt.Errorf("failed to load current pair: %w", err)
		}
		activityID = oldPair.ActivityID

		// Serialize against completion toggles on the same Activity.
		if _, err = s.activityRepo.LockByID(txCtx, activityID); err != nil {
			return fmt.Errorf("failed to lock activity: %w", err)
		}

		vehicle, err := s.vehicleRepo.FindByPlate(txCtx, req.PlateNumber)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return rejectf(CodeUnknownVehicle, CategoryReferential, "plate %s is not registered", req.PlateNumber)
			}
			return fmt.Errorf("failed to resolve plate: %w", err)
		}

		newPair, err := s.pairRepo.Find(txCtx, activityID, transporterID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return rejectf(CodeVehicleNotAllocated, CategoryReferential, "vehicle %s is not allocated to this transporter", req.PlateNumber)
			}
			return fmt.Errorf("failed to load target pair: %w", err)
		}

		alloc, err := s.allocationRepo.Find(txCtx, newPair.ID, vehicle.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return rejectf(CodeVehicleNotAllocated, CategoryReferential, "vehicle %s is not allocated to this transporter", req.PlateNumber)
			}
			return fmt.Errorf("failed to resolve allocation: %w", err)
		}

		record.AllocationID = alloc.ID
		record.Shift = req.Shift
		record.DepartureDate = dateOnly(date)
		record.DeliveryNote = req.DeliveryNote
		record.Remarks = req.Remarks
		if err := s.departureRepo.Update(txCtx, record); err != nil {
			return fmt.Errorf("failed to update departure record: %w", err)
		}

		if oldPair.ID != newPair.ID {
			remaining, err := s.departureRepo.CountByPair(txCtx, oldPair.ID)
			if err != nil {
				return fmt.Errorf("failed to count remaining departures: %w", err)
			}
			if remaining == 0 {
				if _, err := s.pairRepo.TransitionStatus(txCtx, oldPair.ID, model.StatusOnProgress, model.StatusWaiting); err != nil {
					return fmt.Errorf("failed to roll back pair status: %w", err)
				}
			}
		}
		if err := s.pairRepo.SetStatus(txCtx, newPair.ID, model.StatusOnProgress); err != nil {
			return fmt.Errorf("failed to force pair status: %w", err)
		}

		return s.logAudit(txCtx, personID, model.ActionUpdateDeparture, record.ID.String(), req.PlateNumber, map[string]interface{}{
			"plate": req.PlateNumber,
			"shift": req.Shift,
			"date":  req.Date,
		})
	})
	if err != nil {
		return DepartureResponse{}, err
	}

	return DepartureResponse{
		ID:                 record.ID.String(),
		ActivityID:         activityID.String(),
		TransporterID:      transporterID.String(),
		PlateNumber:        req.PlateNumber,
		Shift:              record.Shift,
		Date:               record.DepartureDate.Format("2006-01-02"),
		DeliveryNote:       record.DeliveryNote,
		Remarks:            record.Remarks,
		EvidenceFront:      record.EvidenceFront,
		EvidenceRear:       record.EvidenceRear,
		VerificationStatus: record.VerificationStatus,
		SubmittedBy:        record.SubmittedBy.String(),
	}, nil
}

// Delete removes a departure; removing the pair's last record rolls the
// pair back to Waiting.
func (s *departureService) Delete(ctx context.Context, personID uuid.UUID, recordID string) error {
	id, err := uuid.Parse(recordID)
	if err != nil {
		return reject(CodeInvalidInput, CategoryInput, "invalid departure id")
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		record, err := s.departureRepo.FindByID(txCtx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return reject(CodeNotFound, CategoryReferential, "departure record not found")
			}
			return fmt.Errorf("failed to load departure record: %w", err)
		}
		pairID := record.Allocation.PairID

		if err := s.departureRepo.Delete(txCtx, id); err != nil {
			return fmt.Errorf("failed to delete departure record: %w", err)
		}

		remaining, err := s.departureRepo.CountByPair(txCtx, pairID)
		if err != nil {
			return fmt.Errorf("failed to count remaining departures: %w", err)
		}
		if remaining == 0 {
			if _, err := s.pairRepo.TransitionStatus(txCtx, pairID, model.StatusOnProgress, model.StatusWaiting); err != nil {
				return fmt.Errorf("failed to roll back pair status: %w", err)
			}
		}

		return s.logAudit(txCtx, personID, model.ActionDeleteDeparture, id.String(), record.DeliveryNote, map[string]interface{}{
			"deleted": true,
		})
	})
}

func (s *departureService) ListByActivity(ctx context.Context, activityID string, page, limit int) ([]DepartureResponse, int64, error) {
	id, err := uuid.Parse(activityID)
	if err != nil {
		return nil, 0, reject(CodeInvalidInput, CategoryInput, "invalid activity id")
	}

	records, total, err := s.departureRepo.ListByActivity(ctx, id, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]DepartureResponse, 0, len(records))
	for _, r := range records {
		item := DepartureResponse{
			ID:                 r.ID.String(),
			ActivityID:         activityID,
			Shift:              r.Shift,
			Date:               r.DepartureDate.Format("2006-01-02"),
			DeliveryNote:       r.DeliveryNote,
			Remarks:            r.Remarks,
			EvidenceFront:      r.EvidenceFront,
			EvidenceRear:       r.EvidenceRear,
			VerificationStatus: r.VerificationStatus,
			SubmittedBy:        r.SubmittedBy.String(),
		}
		if r.Allocation != nil {
			if r.Allocation.Pair != nil {
				item.TransporterID = r.Allocation.Pair.TransporterID.String()
			}
			if r.Allocation.Vehicle != nil {
				item.PlateNumber = r.Allocation.Vehicle.PlateNumber
			}
		}
		res = append(res, item)
	}
	return res, total, nil
}

// --- helpers ---

func checkDateRange(activity *model.Activity, now time.Time) error {
	today := dateOnly(now)
	if today.Before(dateOnly(activity.StartDate)) {
		return rejectf(CodeTooEarly, CategoryTemporal, "activity starts %s", activity.StartDate.Format("2006-01-02"))
	}
	if today.After(dateOnly(activity.EndDate)) {
		return rejectf(CodeTooLate, CategoryTemporal, "activity ended %s", activity.EndDate.Format("2006-01-02"))
	}
	return nil
}

// allCompleted reports whether the activity is closed: at least one pair
// exists and none of them accepts further departures.
func allCompleted(pairs []model.ActivityTransporter) bool {
	if len(pairs) == 0 {
		return false
	}
	for _, p := range pairs {
		if p.Status != model.StatusCompleted {
			return false
		}
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func (s *departureService) retractEvidence(keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.evidence.Remove(key); err != nil {
			s.logger.Warn("failed to retract evidence blob", zap.String("key", key), zap.Error(err))
		}
	}
}

func (s *departureService) logAudit(ctx context.Context, personID uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	return logAuditEntry(ctx, s.auditRepo, personID, action, entityID, entityName, details)
}

func (s *departureService) broadcast(event string, recordID uuid.UUID, poNumber, plate string) {
	if s.hub == nil {
		return
	}
	payload, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data": map[string]interface{}{
			"departure_id": recordID.String(),
			"po_number":    poNumber,
			"plate":        plate,
		},
	})
	if err != nil {
		return
	}
	s.hub.Broadcast <- payload
}
