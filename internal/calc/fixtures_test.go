package calc

import (
	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/rs/zerolog"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testParams() models.GlobalParams {
	return models.GlobalParams{
		TTD:                 10,
		VHLP:                25,
		VTech:               20,
		VCommercial:         18,
		RFMDS:               0.05,
		RACC:                0.01,
		Alpha:               1.1,
		Beta:                0.12,
		Gamma:               0.1,
		HPoste:              7.5,
		C:                   100,
		TotalBusesAvailable: 50,
		AlphaDuty:           1.2,
		W:                   1.4,
	}
}

// scenarioSchedule is a 06:00-23:00 service with one two-hour peak
func scenarioSchedule() models.Schedule {
	return models.Schedule{
		ServiceStartH:       6,
		ServiceEndH:         23,
		TimeAllerMin:        30,
		TimeRetourMin:       30,
		PeakPeriods:         []models.PeakPeriod{{StartH: 7, EndH: 9}},
		FrequencyPeakMin:    15,
		FrequencyOffpeakMin: 30,
	}
}

func scenarioLine(id string) models.BusLineData {
	return models.BusLineData{
		ID:                     id,
		Name:                   "Line " + id,
		Category:               "Ligne Basique (B)",
		Origin:                 "Gare Routière",
		Destination:            "Douar Dlam",
		LengthKm:               10,
		BusLengthM:             12,
		DistOriginDepotKm:      4,
		DistDestinationDepotKm: 6,
	}
}

// withSchedule returns a copy of line with s set on one slot
func withSchedule(line models.BusLineData, season models.Season, dt models.DayType, s models.Schedule) models.BusLineData {
	sc := s
	line.Schedules.Set(season, dt, &sc)
	return line
}

// fullLine schedules every slot with s
func fullLine(id string, s models.Schedule) models.BusLineData {
	line := scenarioLine(id)
	for _, season := range models.Seasons() {
		for _, dt := range models.DayTypes() {
			line = withSchedule(line, season, dt, s)
		}
	}
	return line
}

func singleSlotCalendar(year int, season models.Season, dt models.DayType, days int) models.CalendarData {
	var y models.CalendarYear
	y.Set(season, dt, days)
	return models.CalendarData{year: y}
}

func typicalYear() models.CalendarYear {
	var y models.CalendarYear
	y.Set(models.SeasonHiver, models.DayLaV, 150)
	y.Set(models.SeasonHiver, models.DayS, 30)
	y.Set(models.SeasonHiver, models.DayDF, 35)
	y.Set(models.SeasonEte, models.DayLaV, 80)
	y.Set(models.SeasonEte, models.DayS, 16)
	y.Set(models.SeasonEte, models.DayDF, 24)
	y.Set(models.SeasonRamadan, models.DayLaV, 20)
	y.Set(models.SeasonRamadan, models.DayS, 4)
	y.Set(models.SeasonRamadan, models.DayDF, 6)
	return y
}
