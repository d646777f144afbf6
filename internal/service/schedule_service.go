package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DTOs
type CreateScheduleRequest struct {
	PersonID string `json:"person_id" binding:"required"`
	Date     string `json:"date" binding:"required"` // YYYY-MM-DD
	Shift    string `json:"shift" binding:"required,oneof=SHIFT_1 SHIFT_2 SHIFT_3 OFF"`
}

type ScheduleResponse struct {
	ID       string `json:"id"`
	PersonID string `json:"person_id"`
	Person   string `json:"person,omitempty"`
	Date     string `json:"date"`
	Shift    string `json:"shift"`
}

type ScheduleService interface {
	// ResolveCurrentShift gates a field submission: the person must hold an
	// assignment for now's date matching the shift window containing now.
	// Returns the matched shift identifier.
	ResolveCurrentShift(ctx context.Context, personID uuid.UUID, now time.Time) (string, error)
	CreateAssignment(ctx context.Context, req CreateScheduleRequest) (ScheduleResponse, error)
	ListByDate(ctx context.Context, date time.Time, page, limit int) ([]ScheduleResponse, int64, error)
}

type scheduleService struct {
	scheduleRepo repository.ScheduleRepository
	logger       *zap.Logger
}

func NewScheduleService(scheduleRepo repository.ScheduleRepository, logger *zap.Logger) ScheduleService {
	return &scheduleService{scheduleRepo: scheduleRepo, logger: logger}
}

func (s *scheduleService) ResolveCurrentShift(ctx context.Context, personID uuid.UUID, now time.Time) (string, error) {
	assignments, err := s.scheduleRepo.ListForPersonDate(ctx, personID, now)
	if err != nil {
		return "", fmt.Errorf("failed to look up schedule: %w", err)
	}

	if len(assignments) == 0 {
		return "", reject(CodeNoSchedule, CategoryTemporal, "no shift schedule for today")
	}

	// An OFF row blocks the whole day, even when another window would match.
	for _, a := range assignments {
		if a.Shift == model.ShiftOff {
			return "", reject(CodeNoSchedule, CategoryTemporal, "scheduled off duty today")
		}
	}

	current := ResolveShift(now.Hour())
	assigned := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.Shift == current {
			return current, nil
		}
		assigned = append(assigned, a.Shift)
	}

	s.logger.Debug("shift gate mismatch",
		zap.String("person_id", personID.String()),
		zap.String("current_shift", current),
		zap.Strings("assigned", assigned))

	r := rejectf(CodeShiftMismatch, CategoryTemporal,
		"current shift %s does not match assigned %s", current, strings.Join(assigned, ", "))
	r.Detail = map[string]interface{}{"assigned_shifts": assigned, "current_shift": current}
	return "", r
}

func (s *scheduleService) CreateAssignment(ctx context.Context, req CreateScheduleRequest) (ScheduleResponse, error) {
	personID, err := uuid.Parse(req.PersonID)
	if err != nil {
		return ScheduleResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid person_id")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return ScheduleResponse{}, reject(CodeInvalidInput, CategoryInput, "invalid date, expected YYYY-MM-DD")
	}

	assignment := model.ScheduleAssignment{
		PersonID: personID,
		Date:     date,
		Shift:    req.Shift,
	}
	if err := s.scheduleRepo.Create(ctx, &assignment); err != nil {
		return ScheduleResponse{}, fmt.Errorf("failed to create schedule assignment: %w", err)
	}

	return ScheduleResponse{
		ID:       assignment.ID.String(),
		PersonID: assignment.PersonID.String(),
		Date:     assignment.Date.Format("2006-01-02"),
		Shift:    assignment.Shift,
	}, nil
}

func (s *scheduleService) ListByDate(ctx context.Context, date time.Time, page, limit int) ([]ScheduleResponse, int64, error) {
	assignments, total, err := s.scheduleRepo.ListByDate(ctx, date, page, limit)
	if err != nil {
		return nil, 0, err
	}

	res := make([]ScheduleResponse, 0, len(assignments))
	for _, a := range assignments {
		item := ScheduleResponse{
			ID:       a.ID.String(),
			PersonID: a.PersonID.String(),
			Date:     a.Date.Format("2006-01-02"),
			Shift:    a.Shift,
		}
		if a.Person != nil {
			item.Person = a.Person.FullName
		}
		res = append(res, item)
	}
	return res, total, nil
}
