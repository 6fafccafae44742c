package api

import (
	"fmt"
	"sort"

	"github.com/gofiber/fiber/v2"
	"github.com/passbi/passbi_fleet/internal/lineimport"
	"github.com/passbi/passbi_fleet/internal/models"
)

// LineSummary is the list view of a calculated line
type LineSummary struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Category    string                `json:"category"`
	Origin      string                `json:"origin"`
	Destination string                `json:"destination"`
	LengthKm    float64               `json:"length_km"`
	DepotProche models.NearestDepot   `json:"depot_proche"`
	TenYearAvg  models.TenYearAverage `json:"ten_year_avg"`
}

// ImportResponse reports a line archive import
type ImportResponse struct {
	ChangeResponse
	Imported int `json:"imported"`
	Dropped  int `json:"dropped"`
}

// ListLines handles GET /v1/lines
func (h *Handler) ListLines(c *fiber.Ctx) error {
	snap, err := h.svc.Current()
	if err != nil {
		return err
	}

	category := c.Query("category")
	lines := make([]LineSummary, 0, len(snap.Data.Lines))
	for _, l := range snap.Data.Lines {
		if category != "" && l.Category != category {
			continue
		}
		lines = append(lines, LineSummary{
			ID:          l.ID,
			Name:        l.Name,
			Category:    l.Category,
			Origin:      l.Origin,
			Destination: l.Destination,
			LengthKm:    l.LengthKm,
			DepotProche: l.DepotProche,
			TenYearAvg:  l.TenYearAvg,
		})
	}

	return c.JSON(fiber.Map{
		"run_id": snap.RunID,
		"count":  len(lines),
		"lines":  lines,
	})
}

// GetLine handles GET /v1/lines/:id
func (h *Handler) GetLine(c *fiber.Ctx) error {
	line, err := h.currentLine(c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(line)
}

// LineDaily handles GET /v1/lines/:id/daily?season=Hiver&day_type=LaV
func (h *Handler) LineDaily(c *fiber.Ctx) error {
	season, err := models.ParseSeason(c.Query("season"))
	if err != nil {
		return &badRequest{err: err}
	}
	dayType, err := models.ParseDayType(c.Query("day_type"))
	if err != nil {
		return &badRequest{err: err}
	}

	line, err := h.currentLine(c.Params("id"))
	if err != nil {
		return err
	}

	metrics := line.Daily.Get(season, dayType)
	if metrics == nil {
		return fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("line %s has no schedule for %s/%s", line.ID, season, dayType))
	}

	return c.JSON(fiber.Map{
		"line_id":  line.ID,
		"season":   season,
		"day_type": dayType,
		"schedule": line.Schedules.Get(season, dayType),
		"metrics":  metrics,
	})
}

// PutLine handles PUT /v1/lines/:id
func (h *Handler) PutLine(c *fiber.Ctx) error {
	var line models.BusLineData
	if err := decodeBody(c, &line); err != nil {
		return err
	}

	id := c.Params("id")
	if line.ID == "" {
		line.ID = id
	}
	if line.ID != id {
		return &badRequest{err: fmt.Errorf("body id %q does not match path id %q", line.ID, id)}
	}

	snap, err := h.svc.UpsertLine(c.UserContext(), line)
	if err != nil {
		return err
	}
	return changeResponse(c, snap)
}

// DeleteLine handles DELETE /v1/lines/:id
func (h *Handler) DeleteLine(c *fiber.Ctx) error {
	snap, err := h.svc.DeleteLine(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return changeResponse(c, snap)
}

// ImportLines handles POST /v1/lines/import with a multipart "archive"
// field holding a ZIP of line documents. mode=replace (default) swaps the
// line set; mode=merge upserts the imported lines into it.
func (h *Handler) ImportLines(c *fiber.Ctx) error {
	mode := c.Query("mode", "replace")
	if mode != "replace" && mode != "merge" {
		return &badRequest{err: fmt.Errorf("unknown import mode: %s", mode)}
	}

	fh, err := c.FormFile("archive")
	if err != nil {
		return &badRequest{err: fmt.Errorf("archive file is required: %w", err)}
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	docs, err := lineimport.ParseArchiveReader(f, fh.Size)
	if err != nil {
		return &badRequest{err: err}
	}

	ctx := c.UserContext()
	existing, params, _, err := h.svc.Inputs(ctx)
	if err != nil {
		return err
	}

	opts := lineimport.Options{}
	if params != nil {
		opts.CommercialSpeedKmh = params.VCommercial
	}
	imported, dropped := lineimport.ToBusLines(docs, opts, h.log)
	if len(imported) == 0 {
		return lineimport.ErrNoDocuments
	}

	lines := imported
	if mode == "merge" {
		lines = mergeLines(existing, imported)
	}

	snap, err := h.svc.ReplaceLines(ctx, lines)
	if err != nil {
		return err
	}

	h.log.Info().Str("mode", mode).Int("imported", len(imported)).Int("dropped", dropped).Msg("line archive imported")

	resp := ImportResponse{Imported: len(imported), Dropped: dropped}
	resp.Stored = true
	status := fiber.StatusAccepted
	if snap != nil {
		status = fiber.StatusOK
		resp.Calculated = true
		resp.RunID = &snap.RunID
		resp.ComputedAt = &snap.ComputedAt
		resp.NetworkTotals = &snap.Data.NetworkTotals
	}
	return c.Status(status).JSON(resp)
}

func (h *Handler) currentLine(id string) (*models.CalculatedLineData, error) {
	snap, err := h.svc.Current()
	if err != nil {
		return nil, err
	}
	line, ok := snap.Data.Line(id)
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("line %s not found", id))
	}
	return line, nil
}

// mergeLines overlays imported lines on the existing set by id
func mergeLines(existing, imported []models.BusLineData) []models.BusLineData {
	byID := make(map[string]models.BusLineData, len(existing)+len(imported))
	for _, l := range existing {
		byID[l.ID] = l
	}
	for _, l := range imported {
		byID[l.ID] = l
	}

	merged := make([]models.BusLineData, 0, len(byID))
	for _, l := range byID {
		merged = append(merged, l)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ID < merged[j].ID })
	return merged
}
