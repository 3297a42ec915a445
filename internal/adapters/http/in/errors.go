package in

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/msdcl/payment-ledger-system-sub000/internal/apperr"
)

// responseError is the JSON shape every error response takes.
type responseError struct {
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// WithError type-switches a domain error into the matching HTTP status
// and response body. Anything it doesn't recognize is treated as an
// opaque internal error: its message is never echoed back to the
// caller, and neither WithError nor the handlers log it.
func WithError(c *fiber.Ctx, err error) error {
	var (
		notFound   apperr.NotFoundError
		validation apperr.ValidationError
		transition apperr.InvalidTransitionError
		ledgerErr  apperr.LedgerError
		conflict   apperr.ConflictError
	)

	switch {
	case errors.As(err, &notFound):
		return status(c, fiber.StatusNotFound, "not_found", "Entity Not Found", notFound.Error())
	case errors.As(err, &validation):
		return status(c, fiber.StatusBadRequest, "validation_error", "Bad Request", validation.Error())
	case errors.As(err, &transition):
		return status(c, fiber.StatusUnprocessableEntity, "invalid_transition", "Unprocessable Entity", transition.Error())
	case errors.As(err, &ledgerErr):
		return status(c, fiber.StatusUnprocessableEntity, "ledger_error", "Unprocessable Entity", ledgerErr.Error())
	case errors.As(err, &conflict):
		return status(c, fiber.StatusConflict, "conflict", "Conflict", conflict.Error())
	case errors.Is(err, apperr.ErrMissingDedupKey):
		return status(c, fiber.StatusBadRequest, "missing_dedup_key", "Bad Request", "Idempotency-Key header is required")
	default:
		return status(c, fiber.StatusInternalServerError, "internal_error", "Internal Server Error", "an unexpected error occurred")
	}
}

func status(c *fiber.Ctx, code int, errCode, title, message string) error {
	return c.Status(code).JSON(responseError{Code: errCode, Title: title, Message: message})
}
