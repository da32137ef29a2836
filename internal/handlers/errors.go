package handlers

import (
	"context"
	"errors"
	"net/http"

	"bootcamp-cert-minter/internal/apperr"
	"bootcamp-cert-minter/internal/models"

	"github.com/gin-gonic/gin"
)

// StatusFor maps a pipeline error to the HTTP status returned to the operator.
func StatusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidInput:
		return http.StatusBadRequest
	case apperr.CodeImageDecode, apperr.CodeTextOverflow:
		return http.StatusUnprocessableEntity
	case apperr.CodePinFailed, apperr.CodeSubmissionRejected, apperr.CodeFetchFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	c.Error(err)
	c.JSON(StatusFor(err), models.ErrorResponse{
		Error:   string(apperr.CodeOf(err)),
		Message: err.Error(),
	})
}
