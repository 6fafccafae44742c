package api

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/passbi/passbi_fleet/internal/planner"
	"github.com/rs/zerolog"
)

// HealthCheck checks one dependency
type HealthCheck func(ctx context.Context) error

// Handler serves the planning API on top of a planner.Service
type Handler struct {
	svc    *planner.Service
	checks map[string]HealthCheck
	log    zerolog.Logger
}

// NewHandler creates a Handler. checks are reported by /health.
func NewHandler(svc *planner.Service, checks map[string]HealthCheck, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, checks: checks, log: log}
}

// ChangeResponse reports the outcome of an input change
type ChangeResponse struct {
	Stored        bool                  `json:"stored"`
	Calculated    bool                  `json:"calculated"`
	RunID         *uuid.UUID            `json:"run_id,omitempty"`
	ComputedAt    *time.Time            `json:"computed_at,omitempty"`
	NetworkTotals *models.NetworkTotals `json:"network_totals,omitempty"`
}

// NetworkResponse is the network summary of the current calculation
type NetworkResponse struct {
	RunID         uuid.UUID            `json:"run_id"`
	ComputedAt    time.Time            `json:"computed_at"`
	NetworkTotals models.NetworkTotals `json:"network_totals"`
}

// Health handles GET /health
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
	defer cancel()

	status := "healthy"
	httpStatus := fiber.StatusOK
	checks := fiber.Map{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = "unhealthy"
			httpStatus = fiber.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	result := "none"
	if snap, err := h.svc.Current(); err == nil {
		result = snap.ComputedAt.Format(time.RFC3339)
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":          status,
		"checks":          checks,
		"last_calculated": result,
	})
}

// Calculate handles POST /v1/calculate, an ad-hoc calculation that
// leaves the stored inputs untouched
func (h *Handler) Calculate(c *fiber.Ctx) error {
	var in planner.Input
	if err := decodeBody(c, &in); err != nil {
		return err
	}

	result, err := h.svc.Calculate(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

// Results handles GET /v1/results
func (h *Handler) Results(c *fiber.Ctx) error {
	snap, err := h.svc.Current()
	if err != nil {
		return err
	}
	return c.JSON(snap)
}

// Network handles GET /v1/network
func (h *Handler) Network(c *fiber.Ctx) error {
	snap, err := h.svc.Current()
	if err != nil {
		return err
	}
	return c.JSON(NetworkResponse{
		RunID:         snap.RunID,
		ComputedAt:    snap.ComputedAt,
		NetworkTotals: snap.Data.NetworkTotals,
	})
}

// Recalculate handles POST /v1/recalculate
func (h *Handler) Recalculate(c *fiber.Ctx) error {
	snap, err := h.svc.Recalculate(c.UserContext())
	if err != nil {
		return err
	}
	return changeResponse(c, snap)
}

// GetParams handles GET /v1/params
func (h *Handler) GetParams(c *fiber.Ctx) error {
	_, params, _, err := h.svc.Inputs(c.UserContext())
	if err != nil {
		return err
	}
	if params == nil {
		return fiber.NewError(fiber.StatusNotFound, "params not set")
	}
	return c.JSON(params)
}

// PutParams handles PUT /v1/params
func (h *Handler) PutParams(c *fiber.Ctx) error {
	var params models.GlobalParams
	if err := decodeBody(c, &params); err != nil {
		return err
	}

	snap, err := h.svc.UpdateParams(c.UserContext(), params)
	if err != nil {
		return err
	}
	return changeResponse(c, snap)
}

// GetCalendar handles GET /v1/calendar
func (h *Handler) GetCalendar(c *fiber.Ctx) error {
	_, _, calendar, err := h.svc.Inputs(c.UserContext())
	if err != nil {
		return err
	}
	if len(calendar) == 0 {
		return fiber.NewError(fiber.StatusNotFound, "calendar not set")
	}
	return c.JSON(calendar)
}

// PutCalendar handles PUT /v1/calendar
func (h *Handler) PutCalendar(c *fiber.Ctx) error {
	var calendar models.CalendarData
	if err := decodeBody(c, &calendar); err != nil {
		return err
	}

	snap, err := h.svc.UpdateCalendar(c.UserContext(), calendar)
	if err != nil {
		return err
	}
	return changeResponse(c, snap)
}

// decodeBody unmarshals a JSON body. Typed domain errors raised while
// decoding (missing params) pass through; anything else is a bad request.
func decodeBody(c *fiber.Ctx, v any) error {
	body := c.Body()
	if len(body) == 0 {
		return &badRequest{err: errors.New("request body is required")}
	}
	if err := json.Unmarshal(body, v); err != nil {
		var missing *models.MissingParamsError
		if errors.As(err, &missing) {
			return err
		}
		return &badRequest{err: err}
	}
	return nil
}

// changeResponse renders a stored change; a nil snapshot means the change
// was stored while the inputs are still incomplete
func changeResponse(c *fiber.Ctx, snap *planner.Snapshot) error {
	if snap == nil {
		return c.Status(fiber.StatusAccepted).JSON(ChangeResponse{Stored: true})
	}
	return c.JSON(ChangeResponse{
		Stored:        true,
		Calculated:    true,
		RunID:         &snap.RunID,
		ComputedAt:    &snap.ComputedAt,
		NetworkTotals: &snap.Data.NetworkTotals,
	})
}
