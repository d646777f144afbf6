package handler

import (
	"net/http"

	"backend/internal/service"
	"backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError maps engine errors to HTTP. Gate rejections keep their
// machine code in the envelope; anything else is a plain 500.
func respondError(c *gin.Context, err error) {
	if r, ok := service.AsRejection(err); ok {
		status := http.StatusUnprocessableEntity
		switch {
		case r.Code == service.CodeNotFound:
			status = http.StatusNotFound
		case r.Code == service.CodeHasActiveTransporters:
			status = http.StatusConflict
		case r.Category == service.CategoryInput:
			status = http.StatusBadRequest
		}
		c.JSON(status, response.Rejected(status, r.Code, r.Message, r.Detail))
		return
	}
	c.JSON(http.StatusInternalServerError, response.Error(http.StatusInternalServerError, err.Error()))
}

// currentUserID reads the authenticated person set by the auth middleware.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, "Missing or invalid user identity"))
		return uuid.Nil, false
	}
	return id, true
}
