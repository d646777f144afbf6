package handler

import (
	"net/http"

	"backend/internal/middleware"
	"backend/internal/model"
	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
)

type VerificationHandler struct {
	verificationService service.VerificationService
}

func NewVerificationHandler(verificationService service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

func (h *VerificationHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/api")
	{
		api.POST("/verifications", middleware.RequireRole(model.RoleAdmin, model.RoleChecker), h.VerifyBatch)
	}
}

// VerifyBatch applies staged verification-status changes per item
// @Summary      Verify departures (batch)
// @Description  Applies each staged Valid/Rejected change independently; partial success is reported per item
// @Tags         verification
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.VerifyBatchRequest  true  "Verification Batch Payload"
// @Success      200      {object}  response.Response{data=[]service.VerifyItemResult}
// @Failure      400      {object}  response.Response
// @Router       /api/verifications [post]
func (h *VerificationHandler) VerifyBatch(c *gin.Context) {
	var req service.VerifyBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	results := h.verificationService.VerifyBatch(c.Request.Context(), userID, req)
	c.JSON(http.StatusOK, response.Success(http.StatusOK, results))
}
