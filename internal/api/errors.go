package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/passbi_fleet/internal/calc"
	"github.com/passbi/passbi_fleet/internal/lineimport"
	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/passbi/passbi_fleet/internal/planner"
	"github.com/passbi/passbi_fleet/internal/store"
	"github.com/rs/zerolog"
)

// badRequest marks malformed request input
type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	var (
		scheduleErr *models.InvalidScheduleError
		missingData *models.MissingDataError
		missingKeys *models.MissingParamsError
		invalidKeys *models.InvalidParamsError
		lineErr     *calc.LineError
		fiberErr    *fiber.Error
		reqErr      *badRequest
	)

	switch {
	case errors.As(err, &scheduleErr),
		errors.As(err, &missingData),
		errors.As(err, &missingKeys),
		errors.As(err, &invalidKeys),
		errors.As(err, &lineErr),
		errors.Is(err, models.ErrInvalidCalendar),
		errors.Is(err, models.ErrInvalidLine),
		errors.Is(err, calc.ErrEmptyCalendar),
		errors.Is(err, calc.ErrDuplicateLine),
		errors.Is(err, lineimport.ErrNoDocuments):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNotFound), errors.Is(err, planner.ErrNoResult):
		return fiber.StatusNotFound
	case errors.Is(err, planner.ErrIncompleteInputs):
		return fiber.StatusConflict
	case errors.As(err, &reqErr):
		return fiber.StatusBadRequest
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	}
	return fiber.StatusInternalServerError
}

// errorHandler renders every error returned by a handler as {"error": ...}
func errorHandler(log zerolog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := statusFor(err)
		if code >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			return c.Status(code).JSON(fiber.Map{
				"error": "internal server error",
			})
		}
		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
