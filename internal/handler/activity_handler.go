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

type ActivityHandler struct {
	activityService service.ActivityService
}

func NewActivityHandler(activityService service.ActivityService) *ActivityHandler {
	return &ActivityHandler{activityService: activityService}
}

func (h *ActivityHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/activities", middleware.RequireRole(model.RoleAdmin, model.RoleChecker), h.ListActivities)
		api.POST("/activities", middleware.RequireRole(model.RoleAdmin), h.CreateActivity)
		api.PUT("/activities/:id", middleware.RequireRole(model.RoleAdmin), h.UpdateActivity)
		api.DELETE("/activities/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteActivity)
		api.POST("/activities/:id/toggle-complete", middleware.RequireRole(model.RoleAdmin), h.ToggleCompletion)
		api.POST("/activities/:id/transporters/:tid/toggle-complete", middleware.RequireRole(model.RoleAdmin), h.TogglePairCompletion)
		api.GET("/activities/check/:po", middleware.RequireRole(model.RoleAdmin, model.RoleChecker, model.RoleField), h.CheckPO)
		api.POST("/allocations", middleware.RequireRole(model.RoleAdmin), h.AllocateVehicles)
	}
}

// CheckPO is the field pre-flight before submitting a departure
// @Summary      Check purchase order
// @Description  Returns the activity header with its eligible (non-completed) transporters and their allocated vehicles
// @Tags         activities
// @Security     BearerAuth
// @Produce      json
// @Param        po   path      string  true  "PO number"
// @Success      200  {object}  response.Response{data=service.ActivityResponse}
// @Failure      404  {object}  response.Response
// @Failure      422  {object}  response.Response
// @Router       /api/activities/check/{po} [get]
func (h *ActivityHandler) CheckPO(c *gin.Context) {
	res, err := h.activityService.CheckPO(c.Request.Context(), c.Param("po"), time.Now())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ListActivities returns paginated activities with transporter summaries
// @Summary      List activities
// @Tags         activities
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        search  query     string  false  "Search by PO number or vendor"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/activities [get]
func (h *ActivityHandler) ListActivities(c *gin.Context) {
	params := pagination.Parse(c)
	search := c.Query("search")

	activities, total, err := h.activityService.List(c.Request.Context(), params.Page, params.Limit, search)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"activities": activities,
		"meta":       params.Meta(total),
	}))
}

// CreateActivity registers a new purchase order
// @Summary      Create activity
// @Tags         activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateActivityRequest  true  "Create Activity Payload"
// @Success      201      {object}  response.Response{data=service.ActivityResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/activities [post]
func (h *ActivityHandler) CreateActivity(c *gin.Context) {
	var req service.CreateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	res, err := h.activityService.Create(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// UpdateActivity edits the header fields of a non-completed activity
// @Summary      Update activity
// @Tags         activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                         true  "Activity ID"
// @Param        payload  body      service.UpdateActivityRequest  true  "Update Activity Payload"
// @Success      200      {object}  response.Response{data=service.ActivityResponse}
// @Failure      400      {object}  response.Response
// @Failure      422      {object}  response.Response
// @Router       /api/activities/{id} [put]
func (h *ActivityHandler) UpdateActivity(c *gin.Context) {
	var req service.UpdateActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	res, err := h.activityService.Update(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// ToggleCompletion flips an activity between Completed and its inferred prior status
// @Summary      Toggle activity completion
// @Tags         activities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Activity ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/activities/{id}/toggle-complete [post]
func (h *ActivityHandler) ToggleCompletion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.activityService.ToggleCompletion(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]string{"status": status}))
}

// TogglePairCompletion force-completes or reopens one transporter pair
// @Summary      Toggle transporter completion
// @Tags         activities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Activity ID"
// @Param        tid  path      string  true  "Transporter ID"
// @Success      200  {object}  response.Response{data=object}
// @Failure      404  {object}  response.Response
// @Router       /api/activities/{id}/transporters/{tid}/toggle-complete [post]
func (h *ActivityHandler) TogglePairCompletion(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	status, err := h.activityService.TogglePairCompletion(c.Request.Context(), userID, c.Param("id"), c.Param("tid"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]string{"status": status}))
}

// DeleteActivity removes an activity without departures or progressed transporters
// @Summary      Delete activity
// @Tags         activities
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Activity ID"
// @Success      200  {object}  response.Response
// @Failure      409  {object}  response.Response
// @Router       /api/activities/{id} [delete]
func (h *ActivityHandler) DeleteActivity(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.activityService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Activity deleted successfully"))
}

// AllocateVehicles bulk-allocates vehicles to an activity/transporter pair
// @Summary      Allocate vehicles
// @Tags         activities
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.AllocateVehiclesRequest  true  "Allocation Payload"
// @Success      201      {object}  response.Response{data=object}
// @Failure      422      {object}  response.Response
// @Router       /api/allocations [post]
func (h *ActivityHandler) AllocateVehicles(c *gin.Context) {
	var req service.AllocateVehiclesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	added, err := h.activityService.AllocateVehicles(c.Request.Context(), userID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, map[string]int{"allocated": added}))
}
