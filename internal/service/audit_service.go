package service

import (
	"context"
	"encoding/json"

	"backend/internal/repository"

	"go.uber.org/zap"
)

// DTO
type AuditLogResponse struct {
	ID         string                 `json:"id"`
	UserID     string                 `json:"user_id,omitempty"`
	Username   string                 `json:"username,omitempty"`
	Action     string                 `json:"action"`
	EntityID   string                 `json:"entity_id"`
	EntityName string                 `json:"entity_name,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	CreatedAt  string                 `json:"created_at"`
}

// AuditService is the read surface over the audit trail; writes happen
// inside the mutating services' transactions.
type AuditService interface {
	List(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error)
}

type auditService struct {
	auditRepo repository.AuditRepository
	logger    *zap.Logger
}

func NewAuditService(auditRepo repository.AuditRepository, logger *zap.Logger) AuditService {
	return &auditService{auditRepo: auditRepo, logger: logger}
}

func (s *auditService) List(ctx context.Context, action string, page, limit int) ([]AuditLogResponse, int64, error) {
	logs, total, err := s.auditRepo.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]AuditLogResponse, 0, len(logs))
	for _, entry := range logs {
		item := AuditLogResponse{
			ID:         entry.ID.String(),
			Action:     entry.Action,
			EntityID:   entry.EntityID,
			EntityName: entry.EntityName,
			CreatedAt:  entry.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if entry.UserID != nil {
			item.UserID = entry.UserID.String()
		}
		if entry.User != nil {
			item.Username = entry.User.Username
		}
		if entry.Details != "" {
			var details map[string]interface{}
			if err := json.Unmarshal([]byte(entry.Details), &details); err == nil {
				item.Details = details
			}
		}
		res = append(res, item)
	}
	return res, total, nil
}
