package handler

import (
	"net/http"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	scheduleService service.ScheduleService
}

func NewScheduleHandler(scheduleService service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService}
}

func (h *ScheduleHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/schedules", middleware.RequireRole(model.RoleAdmin, model.RoleChecker), h.ListSchedules)
		api.POST("/schedules", middleware.RequireRole(model.RoleAdmin), h.CreateSchedule)
	}
}

// ListSchedules returns shift assignments for one date
// @Summary      List schedule assignments
// @Tags         schedules
// @Security     BearerAuth
// @Produce      json
// @Param        date   query     string  false  "Date (YYYY-MM-DD, default today)"
// @Param        page   query     int     false  "Page number (default 1)"
// @Param        limit  query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/schedules [get]
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	date := time.Now()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD"))
			return
		}
		date = parsed
	}
	params := pagination.Parse(c)

	schedules, total, err := h.scheduleService.ListByDate(c.Request.Context(), date, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"schedules": schedules,
		"meta":      params.Meta(total),
	}))
}

// CreateSchedule records one (person, date, shift) assignment
// @Summary      Create schedule assignment
// @Tags         schedules
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateScheduleRequest  true  "Create Schedule Payload"
// @Success      201      {object}  response.Response{data=service.ScheduleResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/schedules [post]
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	res, err := h.scheduleService.CreateAssignment(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}
