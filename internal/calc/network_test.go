package calc

import (
	"math"
	"testing"

	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// peakLine runs every slot at 3 buses except (Hiver, LaV), whose fleet
// follows peakHeadway
func peakLine(id string, peakHeadway float64) models.BusLineData {
	base := scenarioSchedule()
	base.FrequencyPeakMin = 30
	line := fullLine(id, base)

	winter := scenarioSchedule()
	winter.FrequencyPeakMin = peakHeadway
	return withSchedule(line, models.SeasonHiver, models.DayLaV, winter)
}

func TestAggregateNetwork_PeakFleet(t *testing.T) {
	calendar := models.CalendarData{2025: typicalYear()}
	c := New(Options{}, testLogger())

	a := peakLine("A", 15) // ceil(70/15) = 5
	b := peakLine("B", 10) // ceil(70/10) = 7

	result, err := c.Calculate([]models.BusLineData{a, b}, testParams(), calendar)
	require.NoError(t, err)

	require.Equal(t, 5, result.Lines[0].Daily.Get(models.SeasonHiver, models.DayLaV).BusMax)
	require.Equal(t, 7, result.Lines[1].Daily.Get(models.SeasonHiver, models.DayLaV).BusMax)

	totals := result.NetworkTotals
	assert.Equal(t, 12, totals.PeakBusDemand)
	assert.Equal(t, int(math.Ceil(12*(1+testParams().Gamma))), totals.TotalFleet)
	assert.Equal(t, models.SlotKey{Season: models.SeasonHiver, DayType: models.DayLaV}, totals.PeakSlot)
	assert.Equal(t, 50.0-14, totals.FleetMargin)
}

func TestAggregateNetwork_DifferentPeakSlots(t *testing.T) {
	base := scenarioSchedule()
	base.FrequencyPeakMin = 30 // 3 buses
	busy := scenarioSchedule()
	busy.FrequencyPeakMin = 10 // 7 buses

	a := withSchedule(fullLine("A", base), models.SeasonHiver, models.DayLaV, busy)
	b := withSchedule(fullLine("B", base), models.SeasonEte, models.DayS, busy)

	result, err := New(Options{}, testLogger()).Calculate([]models.BusLineData{a, b}, testParams(), models.CalendarData{2025: typicalYear()})
	require.NoError(t, err)

	// lines peak in different slots, so simultaneous demand is 7+3
	assert.Equal(t, 10, result.NetworkTotals.PeakBusDemand)
	assert.Equal(t, 11, result.NetworkTotals.TotalFleet)
	assert.Equal(t, models.SlotKey{Season: models.SeasonHiver, DayType: models.DayLaV}, result.NetworkTotals.PeakSlot)
}

func TestAggregateNetwork_FlowTotals(t *testing.T) {
	p := testParams()
	lines := []models.CalculatedLineData{
		{TenYearAvg: models.TenYearAverage{Voyages: 1000, KmTotal: 5000, HTotal: 300}},
		{TenYearAvg: models.TenYearAverage{Voyages: 500, KmTotal: 2500, HTotal: 100}},
	}

	totals := AggregateNetwork(lines, p, models.CalendarData{2025: typicalYear()})
	assert.Equal(t, 1500.0, totals.TotalVoyagesAn)
	assert.Equal(t, 7500.0, totals.TotalKmAn)
	assert.Equal(t, 400.0, totals.TotalHeuresAn)
	assert.InDelta(t, 440.0, totals.TotalHeuresConduiteAn, 1e-9)
	assert.Equal(t, 0, totals.TotalFleet)
	assert.Equal(t, models.SlotKey{}, totals.PeakSlot)
	assert.Equal(t, p.TotalBusesAvailable, totals.FleetMargin)
}

func TestAggregateNetwork_Empty(t *testing.T) {
	totals := AggregateNetwork(nil, testParams(), nil)
	assert.Equal(t, 0, totals.TotalFleet)
	assert.Equal(t, 0.0, totals.TotalKmAn)
}

func TestAggregateNetwork_SkipsUncountedSlots(t *testing.T) {
	base := scenarioSchedule()
	base.FrequencyPeakMin = 30 // 3 buses
	busy := scenarioSchedule()
	busy.FrequencyPeakMin = 5 // 14 buses

	line := fullLine("A", base)
	line = withSchedule(line, models.SeasonRamadan, models.DayDF, busy)

	var year models.CalendarYear
	year.Set(models.SeasonHiver, models.DayLaV, 200)
	calendar := models.CalendarData{2025: year, 2026: year}

	result, err := New(Options{}, testLogger()).Calculate([]models.BusLineData{line}, testParams(), calendar)
	require.NoError(t, err)

	require.Equal(t, 14, result.Lines[0].Daily.Get(models.SeasonRamadan, models.DayDF).BusMax)
	// Ramadan/DF never runs, so only the winter weekday demand sizes the fleet
	assert.Equal(t, 3, result.NetworkTotals.PeakBusDemand)
	assert.Equal(t, 4, result.NetworkTotals.TotalFleet)
	assert.Equal(t, models.SlotKey{Season: models.SeasonHiver, DayType: models.DayLaV}, result.NetworkTotals.PeakSlot)
	assert.LessOrEqual(t, result.Lines[0].TenYearAvg.ParcAffecte, result.NetworkTotals.TotalFleet)
}
