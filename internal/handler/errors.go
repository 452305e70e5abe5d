package handler

import (
	"errors"
	"net/http"

	"github.com/cleberrangel/pert-estimator-api/internal/logger"
	"github.com/cleberrangel/pert-estimator-api/internal/model"
	"github.com/gin-gonic/gin"
)

// statusFor mapeia erros de domínio para status HTTP
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrTaskNotFound), errors.Is(err, model.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnknownAction),
		errors.Is(err, model.ErrUnknownField),
		errors.Is(err, model.ErrUnsupportedLanguage),
		errors.Is(err, model.ErrUnsupportedFormat),
		errors.Is(err, model.ErrInvalidPercentile):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError escreve a resposta de erro padrão
func respondError(c *gin.Context, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error().Err(err).Msg(message)
	}
	c.JSON(status, model.ErrorResponse{
		Success: false,
		Error:   message,
		Details: err.Error(),
	})
}
