package calc

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func networkFixture() ([]models.BusLineData, models.CalendarData) {
	lines := []models.BusLineData{
		fullLine("A01", scenarioSchedule()),
		peakLine("B02", 10),
		withSchedule(scenarioLine("C03"), models.SeasonHiver, models.DayLaV, scenarioSchedule()),
	}
	calendar := models.CalendarData{}
	for y := 2025; y <= 2034; y++ {
		calendar[y] = typicalYear()
	}
	return lines, calendar
}

func TestCalculator_Calculate(t *testing.T) {
	lines, calendar := networkFixture()
	c := New(Options{Workers: 2}, testLogger())

	result, err := c.Calculate(lines, testParams(), calendar)
	require.NoError(t, err)
	require.Len(t, result.Lines, 3)

	for i, line := range result.Lines {
		assert.Equal(t, lines[i].ID, line.ID, "order follows input")
		assert.Equal(t, testParams().C, line.Capacity)
		assert.Len(t, line.AnnualForecast, 10)
	}
	assert.Equal(t, "Origine", result.Lines[0].DepotProche.Location)

	var sum float64
	for _, line := range result.Lines {
		sum += line.TenYearAvg.Voyages
	}
	assert.InDelta(t, sum, result.NetworkTotals.TotalVoyagesAn, 1e-6)
}

func TestCalculator_DeterministicAcrossWorkers(t *testing.T) {
	lines, calendar := networkFixture()

	serial, err := New(Options{Workers: 1}, testLogger()).Calculate(lines, testParams(), calendar)
	require.NoError(t, err)
	parallel, err := New(Options{Workers: 8}, testLogger()).Calculate(lines, testParams(), calendar)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestCalculator_DoesNotMutateInputs(t *testing.T) {
	lines, calendar := networkFixture()
	before, err := json.Marshal(struct {
		L []models.BusLineData
		C models.CalendarData
	}{lines, calendar})
	require.NoError(t, err)

	_, err = New(Options{}, testLogger()).Calculate(lines, testParams(), calendar)
	require.NoError(t, err)

	after, err := json.Marshal(struct {
		L []models.BusLineData
		C models.CalendarData
	}{lines, calendar})
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestCalculator_FailsAtomically(t *testing.T) {
	lines, calendar := networkFixture()

	bad := scenarioSchedule()
	bad.FrequencyPeakMin = 0
	lines[1] = withSchedule(lines[1], models.SeasonEte, models.DayS, bad)
	lines[2] = scenarioLine("C03") // no schedules at all

	result, err := New(Options{}, testLogger()).Calculate(lines, testParams(), calendar)
	require.Error(t, err)
	assert.Nil(t, result)

	var invalid *models.InvalidScheduleError
	assert.True(t, errors.As(err, &invalid))
	assert.ErrorIs(t, err, ErrNoSchedules)
	assert.Contains(t, err.Error(), "B02 Ete/S")
	assert.Contains(t, err.Error(), "C03")
}

func TestCalculator_InputValidation(t *testing.T) {
	lines, calendar := networkFixture()
	c := New(Options{}, testLogger())

	t.Run("Invalid params", func(t *testing.T) {
		p := testParams()
		p.VHLP = 0
		_, err := c.Calculate(lines, p, calendar)
		var invalid *models.InvalidParamsError
		require.True(t, errors.As(err, &invalid))
		assert.Contains(t, err.Error(), "v_hlp")
	})

	t.Run("Empty calendar", func(t *testing.T) {
		_, err := c.Calculate(lines, testParams(), models.CalendarData{})
		assert.ErrorIs(t, err, ErrEmptyCalendar)
	})

	t.Run("Negative day count", func(t *testing.T) {
		_, err := c.Calculate(lines, testParams(), singleSlotCalendar(2025, models.SeasonEte, models.DayS, -1))
		assert.Error(t, err)
	})

	t.Run("Duplicate line id", func(t *testing.T) {
		dup := append([]models.BusLineData{}, lines...)
		dup = append(dup, lines[0])
		_, err := c.Calculate(dup, testParams(), calendar)
		assert.ErrorIs(t, err, ErrDuplicateLine)
	})

	t.Run("No lines", func(t *testing.T) {
		result, err := c.Calculate(nil, testParams(), calendar)
		require.NoError(t, err)
		assert.Empty(t, result.Lines)
		assert.Equal(t, 0, result.NetworkTotals.TotalFleet)
	})
}

func TestCalculator_Strict(t *testing.T) {
	line := withSchedule(scenarioLine("A01"), models.SeasonHiver, models.DayLaV, scenarioSchedule())
	calendar := models.CalendarData{2025: typicalYear()}

	_, err := New(Options{}, testLogger()).Calculate([]models.BusLineData{line}, testParams(), calendar)
	require.NoError(t, err)

	_, err = New(Options{Strict: true}, testLogger()).Calculate([]models.BusLineData{line}, testParams(), calendar)
	var missing *models.MissingDataError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "A01", missing.LineID)
}
