package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"pet-tracker/server/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

// ErrorHandler maps domain errors to the HTTP taxonomy: Unauthorized -> 401,
// NotFound -> 404, InvalidInput -> 400. Anything else is a 500; the cause is
// logged server-side and never leaked to the client.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var status int
	var message string

	var httpErr *echo.HTTPError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
		message = err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.As(err, &httpErr):
		status = httpErr.Code
		message = http.StatusText(status)
	default:
		status = http.StatusInternalServerError
		message = "internal error"
		log.Printf("request failed: %v", err)
	}

	if err := c.JSON(status, errorResponse{Error: message}); err != nil {
		log.Printf("error response write failed: %v", err)
	}
}
