package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/subtrackr/subtrackr/internal/errors"
)

type errorResponse struct {
	Message string `json:"message"`
}

// handleError maps application error categories onto HTTP status codes.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "internal server error"

	var httpErr *echo.HTTPError
	var enhanced *errors.EnhancedError
	switch {
	case errors.As(err, &httpErr):
		status = httpErr.Code
		if m, ok := httpErr.Message.(string); ok {
			message = m
		}
	case errors.As(err, &enhanced):
		switch enhanced.Category {
		case errors.CategoryNotFound:
			status = http.StatusNotFound
		case errors.CategoryValidation:
			status = http.StatusBadRequest
		case errors.CategoryConflict:
			status = http.StatusConflict
		default:
			status = http.StatusInternalServerError
		}
		message = enhanced.Error()
	}

	if status == http.StatusInternalServerError {
		s.log.Error("unhandled request error", "error", err, "path", c.Path())
		// do not leak internals
		message = "internal server error"
	}

	if writeErr := c.JSON(status, errorResponse{Message: message}); writeErr != nil {
		s.log.Error("failed to write error response", "error", writeErr)
	}
}

func badRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}
