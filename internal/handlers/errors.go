// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/munidigital/ventanilla-backend/internal/services"
	"github.com/munidigital/ventanilla-backend/internal/utils"
)

// handleServiceError maps service sentinel errors onto HTTP responses.
// Validation errors carry field detail; everything unrecognized is a 500
// with the message withheld from the client.
func handleServiceError(c *gin.Context, err error) {
	if validationErrors := utils.GetValidationErrors(err); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	switch {
	case errors.Is(err, services.ErrNotFound):
		utils.ErrorResponse(c, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, services.ErrInvalidRut):
		utils.BadRequestResponse(c, err.Error(), nil)
	case errors.Is(err, services.ErrQuotaExceeded):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrAlreadyProcessed):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.ConflictResponse(c, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		utils.UnauthorizedResponse(c, err.Error())
	case errors.Is(err, services.ErrAccountDisabled):
		utils.ForbiddenResponse(c, err.Error())
	case errors.Is(err, services.ErrInvalidResetToken):
		utils.BadRequestResponse(c, err.Error(), nil)
	default:
		utils.InternalErrorResponse(c, "An unexpected error occurred")
	}
}
