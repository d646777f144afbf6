package service

import (
	"context"
	"errors"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DTOs
type VerifyItem struct {
	RecordID string `json:"record_id" binding:"required"`
	Status   string `json:"status" binding:"required,oneof=VALID REJECTED"`
	Remarks  string `json:"remarks"`
}

type VerifyBatchRequest struct {
	Items []VerifyItem `json:"items" binding:"required,min=1,dive"`
}

type VerifyItemResult struct {
	RecordID string `json:"record_id"`
	OK       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// VerificationService applies batched post-hoc corrections to departure
// verification statuses. Items are independent: one failure never rolls
// back the others, and every failure is reported per item. Activity and
// transporter statuses are never touched here.
type VerificationService interface {
	VerifyBatch(ctx context.Context, personID uuid.UUID, req VerifyBatchRequest) []VerifyItemResult
}

type verificationService struct {
	departureRepo repository.DepartureRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
	logger        *zap.Logger
}

func NewVerificationService(
	departureRepo repository.DepartureRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	logger *zap.Logger,
) VerificationService {
	return &verificationService{
		departureRepo: departureRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
		logger:        logger,
	}
}

func (s *verificationService) VerifyBatch(ctx context.Context, personID uuid.UUID, req VerifyBatchRequest) []VerifyItemResult {
	results := make([]VerifyItemResult, 0, len(req.Items))
	for _, item := range req.Items {
		results = append(results, s.applyOne(ctx, personID, item))
	}
	return results
}

// applyOne updates one record in its own transaction so the status change
// and its audit row land together.
func (s *verificationService) applyOne(ctx context.Context, personID uuid.UUID, item VerifyItem) VerifyItemResult {
	result := VerifyItemResult{RecordID: item.RecordID}

	id, err := uuid.Parse(item.RecordID)
	if err != nil {
		result.Error = "invalid record id"
		return result
	}
	if item.Status != model.VerificationValid && item.Status != model.VerificationRejected {
		result.Error = "invalid verification status"
		return result
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.departureRepo.UpdateVerification(txCtx, id, item.Status); err != nil {
			return err
		}
		return logAuditEntry(txCtx, s.auditRepo, personID, model.ActionVerifyDeparture, item.RecordID, "", map[string]interface{}{
			"status":  item.Status,
			"remarks": item.Remarks,
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result.Error = "departure record not found"
		} else {
			s.logger.Warn("verification item failed",
				zap.String("record_id", item.RecordID), zap.Error(err))
			result.Error = err.Error()
		}
		return result
	}

	result.OK = true
	return result
}
