package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type TransporterHandler struct {
	transporterService service.TransporterService
}

func NewTransporterHandler(transporterService service.TransporterService) *TransporterHandler {
	return &TransporterHandler{transporterService: transporterService}
}

func (h *TransporterHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.GET("/transporters", middleware.RequireRole(model.RoleAdmin, model.RoleChecker), h.ListTransporters)
		api.POST("/transporters", middleware.RequireRole(model.RoleAdmin), h.CreateTransporter)
		api.POST("/vehicles", middleware.RequireRole(model.RoleAdmin), h.RegisterVehicle)
	}
}

// ListTransporters returns the transporter registry with vehicle catalogs
// @Summary      List transporters
// @Tags         transporters
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  response.Response{data=[]service.TransporterResponse}
// @Failure      500  {object}  response.Response
// @Router       /api/transporters [get]
func (h *TransporterHandler) ListTransporters(c *gin.Context) {
	transporters, err := h.transporterService.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, response.Success(http.StatusOK, transporters))
}

// CreateTransporter registers a new transporter company
// @Summary      Create transporter
// @Tags         transporters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreateTransporterRequest  true  "Create Transporter Payload"
// @Success      201      {object}  response.Response{data=service.TransporterResponse}
// @Failure      400      {object}  response.Response
// @Router       /api/transporters [post]
func (h *TransporterHandler) CreateTransporter(c *gin.Context) {
	var req service.CreateTransporterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	transporter, err := h.transporterService.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, transporter))
}

// RegisterVehicle adds a truck to a transporter's catalog
// @Summary      Register vehicle
// @Tags         transporters
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.RegisterVehicleRequest  true  "Register Vehicle Payload"
// @Success      201      {object}  response.Response{data=service.TransporterResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/vehicles [post]
func (h *TransporterHandler) RegisterVehicle(c *gin.Context) {
	var req service.RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, err.Error()))
		return
	}

	transporter, err := h.transporterService.RegisterVehicle(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, transporter))
}
