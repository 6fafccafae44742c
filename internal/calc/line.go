package calc

import (
	"github.com/passbi/passbi_fleet/internal/models"
)

// LineForecast is the calendar projection of one line
type LineForecast struct {
	AnnualForecast map[int]models.AnnualMetrics
	TenYearAvg     models.TenYearAverage
}

// AggregateLine replays the daily metrics of a line over the calendar.
// Flows are weighted by day counts and fleet is the maximum over the
// day types that occur in the year. The horizon summary keeps the worst
// year's fleet and averages flows over the calendar years.
func AggregateLine(daily models.Slots[*models.DailyMetrics], calendar models.CalendarData, line models.BusLineData) (LineForecast, error) {
	years := calendar.Years()
	if len(years) == 0 {
		return LineForecast{}, &LineError{LineID: line.ID, Err: ErrEmptyCalendar}
	}

	forecast := LineForecast{AnnualForecast: make(map[int]models.AnnualMetrics, len(years))}
	var avg meanSet

	for _, year := range years {
		counts := calendar[year]
		var a models.AnnualMetrics

		daily.Each(func(season models.Season, dt models.DayType, m *models.DailyMetrics) {
			n := counts.Get(season, dt)
			if n <= 0 || m == nil {
				return
			}
			days := float64(n)
			a.VoyagesAn += m.TripsTotal * days
			a.KmComAn += m.KmCom * days
			a.KmHLPAn += m.KmHLP * days
			a.KmTechAn += m.KmTech * days
			a.HCommercialAn += m.HCharge * days
			a.HTechniqueAn += (m.HHLP + m.HTech) * days
			a.HPayeesAn += m.HPayees * days
			a.ServiceDaysAn += n
			a.ParcAffecteAn = max(a.ParcAffecteAn, m.ParcAffecte)
			a.BusMaxAn = max(a.BusMaxAn, m.BusMax)
		})
		a.KmTotalAn = a.KmComAn + a.KmHLPAn + a.KmTechAn
		a.HTotalAn = a.HCommercialAn + a.HTechniqueAn

		forecast.AnnualForecast[year] = a
		forecast.TenYearAvg.ParcAffecte = max(forecast.TenYearAvg.ParcAffecte, a.ParcAffecteAn)
		forecast.TenYearAvg.BusMax = max(forecast.TenYearAvg.BusMax, a.BusMaxAn)
		avg.add(a)
	}

	avg.fill(&forecast.TenYearAvg)
	return forecast, nil
}

// meanSet keeps running means of the annual flow quantities. The
// incremental form returns a horizon of identical years unchanged.
type meanSet struct {
	n           int
	voyages     float64
	kmCom       float64
	kmHLP       float64
	kmTech      float64
	kmTotal     float64
	hCommercial float64
	hTechnique  float64
	hTotal      float64
	hPayees     float64
}

func (s *meanSet) add(a models.AnnualMetrics) {
	s.n++
	k := float64(s.n)
	s.voyages += (a.VoyagesAn - s.voyages) / k
	s.kmCom += (a.KmComAn - s.kmCom) / k
	s.kmHLP += (a.KmHLPAn - s.kmHLP) / k
	s.kmTech += (a.KmTechAn - s.kmTech) / k
	s.kmTotal += (a.KmTotalAn - s.kmTotal) / k
	s.hCommercial += (a.HCommercialAn - s.hCommercial) / k
	s.hTechnique += (a.HTechniqueAn - s.hTechnique) / k
	s.hTotal += (a.HTotalAn - s.hTotal) / k
	s.hPayees += (a.HPayeesAn - s.hPayees) / k
}

func (s *meanSet) fill(t *models.TenYearAverage) {
	t.Voyages = s.voyages
	t.KmCom = s.kmCom
	t.KmHLP = s.kmHLP
	t.KmTech = s.kmTech
	t.KmTotal = s.kmTotal
	t.HCommercial = s.hCommercial
	t.HTechnique = s.hTechnique
	t.HTotal = s.hTotal
	t.HPayees = s.hPayees
}

// nearestDepot reports the terminus closest to the depot, preferring the
// destination on ties
func nearestDepot(line models.BusLineData) models.NearestDepot {
	if line.DistOriginDepotKm < line.DistDestinationDepotKm {
		return models.NearestDepot{Location: "Origine", Distance: line.DistOriginDepotKm}
	}
	return models.NearestDepot{Location: "Destination", Distance: line.DistDestinationDepotKm}
}

// checkCoverage reports slots where the line schedules and the calendar
// disagree: a schedule that is never replayed, or counted days the line
// does not serve.
func checkCoverage(line models.BusLineData, calendar models.CalendarData) []error {
	counted := calendar.Totals()

	var errs []error
	line.Schedules.Each(func(season models.Season, dt models.DayType, s *models.Schedule) {
		days := counted.Get(season, dt)
		switch {
		case s != nil && days == 0:
			errs = append(errs, &models.MissingDataError{LineID: line.ID, Season: season, DayType: dt, Reason: "schedule never occurs in calendar"})
		case s == nil && days > 0:
			errs = append(errs, &models.MissingDataError{LineID: line.ID, Season: season, DayType: dt, Reason: "calendar counts days without a schedule"})
		}
	})
	return errs
}
