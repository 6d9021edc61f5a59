package handlers

import (
	"errors"
	"net/http"

	"github.com/Jengeka/bingwa-sokoni/internal/repositories"
	"github.com/Jengeka/bingwa-sokoni/internal/services"
	"github.com/gin-gonic/gin"
)

// respondError maps the service error taxonomy to HTTP status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case services.IsValidation(err):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrAccountNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrAccountExists):
		status = http.StatusConflict
	case errors.Is(err, services.ErrInsufficientPoints):
		status = http.StatusConflict
	case errors.Is(err, services.ErrGatewayUnavailable), errors.Is(err, services.ErrGatewayRejected):
		status = http.StatusBadGateway
	case errors.Is(err, repositories.ErrConflict):
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
