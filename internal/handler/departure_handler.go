package handler

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/pagination"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type DepartureHandler struct {
	departureService service.DepartureService
}

func NewDepartureHandler(departureService service.DepartureService) *DepartureHandler {
	return &DepartureHandler{departureService: departureService}
}

func (h *DepartureHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/departures", middleware.RequireRole(model.RoleField, model.RoleAdmin), h.SubmitDeparture)
		api.POST("/departures/manual", middleware.RequireRole(model.RoleAdmin), h.SubmitManual)
		api.PUT("/departures/:id", middleware.RequireRole(model.RoleAdmin, model.RoleChecker), h.EditDeparture)
		api.DELETE("/departures/:id", middleware.RequireRole(model.RoleAdmin), h.DeleteDeparture)
		api.GET("/departures", middleware.RequireRole(model.RoleAdmin, model.RoleChecker), h.ListDepartures)
	}
}

// SubmitDeparture records a field departure with full gating
// @Summary      Submit departure (field)
// @Description  Validates date range, completion state, shift schedule and vehicle allocation, then records the departure. Multipart: form fields plus photo_front and photo_rear.
// @Tags         departures
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        activity_id    formData  string  true   "Activity ID"
// @Param        transporter_id formData  string  true   "Transporter ID"
// @Param        plate_number   formData  string  true   "Vehicle plate"
// @Param        delivery_note  formData  string  true   "Delivery note serial"
// @Param        remarks        formData  string  false  "Remarks"
// @Param        photo_front    formData  file    true   "Front evidence photo"
// @Param        photo_rear     formData  file    true   "Rear evidence photo"
// @Success      201  {object}  response.Response{data=service.DepartureResponse}
// @Failure      422  {object}  response.Response
// @Router       /api/departures [post]
func (h *DepartureHandler) SubmitDeparture(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	req := service.SubmitDepartureRequest{
		ActivityID:    c.PostForm("activity_id"),
		TransporterID: c.PostForm("transporter_id"),
		PlateNumber:   c.PostForm("plate_number"),
		DeliveryNote:  c.PostForm("delivery_note"),
		Remarks:       c.PostForm("remarks"),
		Date:          c.PostForm("date"),
	}
	if req.ActivityID == "" || req.TransporterID == "" || req.PlateNumber == "" || req.DeliveryNote == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Missing required form fields"))
		return
	}

	var evidence service.EvidencePair
	if file, err := c.FormFile("photo_front"); err == nil {
		evidence.Front, evidence.FrontExt = readUpload(file)
	}
	if file, err := c.FormFile("photo_rear"); err == nil {
		evidence.Rear, evidence.RearExt = readUpload(file)
	}

	res, err := h.departureService.SubmitField(c.Request.Context(), userID, time.Now(), req, evidence)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// SubmitManual records a backdated departure without date/shift gating
// @Summary      Submit departure (manual entry)
// @Description  Administrator path: explicit shift and date, evidence optional, allocation created on demand
// @Tags         departures
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.SubmitDepartureRequest  true  "Manual Departure Payload"
// @Success      201      {object}  response.Response{data=service.DepartureResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/departures/manual [post]
func (h *DepartureHandler) SubmitManual(c *gin.Context) {
	var req service.SubmitDepartureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	res, err := h.departureService.SubmitManual(c.Request.Context(), userID, req, nil)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, res))
}

// EditDeparture re-resolves vehicle and allocation for an existing record
// @Summary      Edit departure
// @Tags         departures
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Departure ID"
// @Param        payload  body      service.EditDepartureRequest true  "Edit Departure Payload"
// @Success      200      {object}  response.Response{data=service.DepartureResponse}
// @Failure      422      {object}  response.Response
// @Router       /api/departures/{id} [put]
func (h *DepartureHandler) EditDeparture(c *gin.Context) {
	var req service.EditDepartureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	res, err := h.departureService.Edit(c.Request.Context(), userID, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, res))
}

// DeleteDeparture removes a record, rolling the pair back if it was the last
// @Summary      Delete departure
// @Tags         departures
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Departure ID"
// @Success      200  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/departures/{id} [delete]
func (h *DepartureHandler) DeleteDeparture(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.departureService.Delete(c.Request.Context(), userID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Departure deleted successfully"))
}

// ListDepartures returns paginated departures of one activity
// @Summary      List departures
// @Tags         departures
// @Security     BearerAuth
// @Produce      json
// @Param        activity_id  query     string  true   "Activity ID"
// @Param        page         query     int     false  "Page number (default 1)"
// @Param        limit        query     int     false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      400  {object}  response.Response
// @Router       /api/departures [get]
func (h *DepartureHandler) ListDepartures(c *gin.Context) {
	activityID := c.Query("activity_id")
	if activityID == "" {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "activity_id is required"))
		return
	}
	params := pagination.Parse(c)

	departures, total, err := h.departureService.ListByActivity(c.Request.Context(), activityID, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"departures": departures,
		"meta":       params.Meta(total),
	}))
}

// readUpload loads one multipart file into memory; oversized blobs are
// rejected later by the evidence store.
func readUpload(header *multipart.FileHeader) ([]byte, string) {
	file, err := header.Open()
	if err != nil {
		return nil, ""
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, ""
	}
	return data, filepath.Ext(header.Filename)
}
