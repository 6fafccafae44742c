package calc

import (
	"math"

	"github.com/passbi/passbi_fleet/internal/models"
)

// dutyHours is the length of a crew duty used to count duties per day
const dutyHours = 7.0

// ceilRelTol is the relative distance to an integer treated as float
// error when rounding a count up, so 10 buses with a 10% reserve make 11
// and not 12
const ceilRelTol = 1e-12

func ceilCount(x float64) int {
	if r := math.Round(x); math.Abs(x-r) <= ceilRelTol*math.Max(1, math.Abs(x)) {
		return int(r)
	}
	return int(math.Ceil(x))
}

// ComputeDaily derives the operating metrics of one schedule slot.
// It returns an *models.InvalidScheduleError when the schedule is malformed.
func ComputeDaily(s models.Schedule, line models.BusLineData, p models.GlobalParams) (models.DailyMetrics, error) {
	if err := s.Validate(); err != nil {
		return models.DailyMetrics{}, err
	}

	var m models.DailyMetrics

	// Cycle time and fleet
	m.TC = s.TimeAllerMin + s.TimeRetourMin + p.TTD
	m.BusPeak = ceilCount(m.TC / s.FrequencyPeakMin)
	m.BusOffpeak = ceilCount(m.TC / s.FrequencyOffpeakMin)
	m.BusMax = max(m.BusPeak, m.BusOffpeak, 1)
	m.ParcAffecte = ceilCount(float64(m.BusMax) * (1 + p.Gamma))

	// Trips
	m.ServiceMinutes = (s.ServiceEndH - s.ServiceStartH) * 60
	for _, peak := range s.PeakPeriods {
		m.PeakMinutes += (peak.EndH - peak.StartH) * 60
	}
	offpeakMinutes := m.ServiceMinutes - m.PeakMinutes
	if m.PeakMinutes > 0 {
		m.TripsPeak = m.PeakMinutes / s.FrequencyPeakMin
	}
	if offpeakMinutes > 0 {
		m.TripsOffpeak = offpeakMinutes / s.FrequencyOffpeakMin
	}
	m.TripsAB = m.TripsPeak + m.TripsOffpeak
	m.TripsTotal = 2 * m.TripsAB

	// Kilometers
	m.KmCom = 2 * line.LengthKm * m.TripsAB
	delta := (line.DistOriginDepotKm + line.DistDestinationDepotKm) / 2
	m.KmHLP = delta * 2 * float64(m.BusMax)
	m.KmTech = m.KmCom * (p.RFMDS + p.RACC)
	m.KmTotal = m.KmCom + m.KmHLP + m.KmTech

	// Hours
	m.HCharge = (s.TimeAllerMin + s.TimeRetourMin) * m.TripsAB / 60
	m.HHLP = m.KmHLP / p.VHLP
	m.HTech = m.KmTech / p.VTech
	m.HTotal = m.HCharge + m.HHLP + m.HTech
	m.HPayees = m.HTotal * p.Alpha
	m.HConducteurs = m.HPayees

	// Crew
	m.ETP = m.HPayees / p.HPoste
	m.ETPRes = m.ETP * (1 + p.Beta)
	m.DutiesDay = ceilCount(m.HTotal * p.AlphaDuty / dutyHours)
	m.DriversWeek = ceilCount(float64(m.DutiesDay) * p.W)
	m.DriversWeekRes = ceilCount(float64(m.DriversWeek) * (1 + p.Beta))

	// Peak throughput
	m.OPointe = 60 / s.FrequencyPeakMin
	m.PPHPD = p.C * m.OPointe

	return m, nil
}

// ComputeLineDaily computes every scheduled slot of a line. The first
// invalid slot fails the line with a *LineError naming the slot.
func ComputeLineDaily(line models.BusLineData, p models.GlobalParams) (models.Slots[*models.DailyMetrics], error) {
	var daily models.Slots[*models.DailyMetrics]

	if err := line.Validate(); err != nil {
		return daily, &LineError{LineID: line.ID, Err: err}
	}
	if line.ScheduleCount() == 0 {
		return daily, &LineError{LineID: line.ID, Err: ErrNoSchedules}
	}

	for _, season := range models.Seasons() {
		for _, dt := range models.DayTypes() {
			s := line.Schedules.Get(season, dt)
			if s == nil {
				continue
			}
			m, err := ComputeDaily(*s, line, p)
			if err != nil {
				return models.Slots[*models.DailyMetrics]{}, &LineError{LineID: line.ID, Season: season, DayType: dt, Err: err}
			}
			daily.Set(season, dt, &m)
		}
	}
	return daily, nil
}
