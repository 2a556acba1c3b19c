package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"restaurant-platform/internal/apperr"
)

// failJSON writes the uniform failure body: {success:false, error}.
func failJSON(c echo.Context, status int, msg string) error {
	return c.JSON(status, map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

// failError maps the error taxonomy to HTTP statuses. Signature
// mismatches and precondition failures are client errors; missing server
// configuration is a 500 that never names the missing secret.
func failError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, apperr.ErrVerificationFailed),
		errors.Is(err, apperr.ErrValidation):
		return failJSON(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrVersionConflict),
		errors.Is(err, apperr.ErrDuplicateKey):
		return failJSON(c, http.StatusConflict, err.Error())
	case errors.Is(err, apperr.ErrOrderNotFound),
		errors.Is(err, apperr.ErrPaymentNotFound),
		errors.Is(err, apperr.ErrSubscriptionNotFound):
		return failJSON(c, http.StatusNotFound, err.Error())
	case errors.Is(err, apperr.ErrConfiguration):
		return failJSON(c, http.StatusInternalServerError, "Server configuration error")
	default:
		return failJSON(c, http.StatusInternalServerError, err.Error())
	}
}
