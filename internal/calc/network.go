package calc

import (
	"github.com/passbi/passbi_fleet/internal/models"
	"gonum.org/v1/gonum/floats"
)

// AggregateNetwork combines calculated lines into network totals.
//
// Fleet is sized on simultaneous demand: bus_max is summed across lines
// for each (season, day type) slot and the largest slot sum, scaled by the
// vehicle reserve, is the network fleet. All lines share one calendar so
// a slot's demand is concurrent by construction. Slots the calendar never
// counts over the horizon carry no demand. Flow totals are the sum of the
// lines' horizon averages.
func AggregateNetwork(lines []models.CalculatedLineData, p models.GlobalParams, calendar models.CalendarData) models.NetworkTotals {
	counted := calendar.Totals()

	var keys []models.SlotKey
	demand := make([]float64, 0, 9)
	for _, season := range models.Seasons() {
		for _, dt := range models.DayTypes() {
			sum := 0
			if counted.Get(season, dt) > 0 {
				for _, line := range lines {
					if m := line.Daily.Get(season, dt); m != nil {
						sum += m.BusMax
					}
				}
			}
			keys = append(keys, models.SlotKey{Season: season, DayType: dt})
			demand = append(demand, float64(sum))
		}
	}

	peakIdx := floats.MaxIdx(demand)
	peak := int(demand[peakIdx])

	voyages := make([]float64, len(lines))
	km := make([]float64, len(lines))
	hours := make([]float64, len(lines))
	paid := make([]float64, len(lines))
	for i, line := range lines {
		voyages[i] = line.TenYearAvg.Voyages
		km[i] = line.TenYearAvg.KmTotal
		hours[i] = line.TenYearAvg.HTotal
		paid[i] = line.TenYearAvg.HTotal * p.Alpha
	}

	totals := models.NetworkTotals{
		TotalFleet:            ceilCount(float64(peak) * (1 + p.Gamma)),
		PeakBusDemand:         peak,
		TotalVoyagesAn:        floats.Sum(voyages),
		TotalKmAn:             floats.Sum(km),
		TotalHeuresAn:         floats.Sum(hours),
		TotalHeuresConduiteAn: floats.Sum(paid),
		TotalBusesAvailable:   p.TotalBusesAvailable,
	}
	if peak > 0 {
		totals.PeakSlot = keys[peakIdx]
	}
	totals.FleetMargin = p.TotalBusesAvailable - float64(totals.TotalFleet)
	return totals
}
