package models

// DailyMetrics are the operating figures of one line for one season and day type
type DailyMetrics struct {
	TC             float64 `json:"tc"`
	ServiceMinutes float64 `json:"service_minutes"`
	PeakMinutes    float64 `json:"peak_minutes"`
	BusPeak        int     `json:"bus_peak"`
	BusOffpeak     int     `json:"bus_offpeak"`
	BusMax         int     `json:"bus_max"`
	ParcAffecte    int     `json:"parc_affecte"`
	TripsPeak      float64 `json:"trips_peak"`
	TripsOffpeak   float64 `json:"trips_offpeak"`
	TripsAB        float64 `json:"trips_ab"`
	TripsTotal     float64 `json:"trips_total"`
	KmCom          float64 `json:"km_com"`
	KmHLP          float64 `json:"km_hlp"` // deadhead
	KmTech         float64 `json:"km_tech"`
	KmTotal        float64 `json:"km_total"`
	HCharge        float64 `json:"h_charge"`
	HHLP           float64 `json:"h_hlp"`
	HTech          float64 `json:"h_tech"`
	HTotal         float64 `json:"h_total"`
	HPayees        float64 `json:"h_payees"`
	HConducteurs   float64 `json:"h_conducteurs"`
	ETP            float64 `json:"etp"`
	ETPRes         float64 `json:"etp_res"`
	DutiesDay      int     `json:"duties_day"`
	DriversWeek    int     `json:"drivers_week"`
	DriversWeekRes int     `json:"drivers_week_res"`
	OPointe        float64 `json:"o_pointe"`
	PPHPD          float64 `json:"pphpd"`
}

// AnnualMetrics are the figures of one line for one calendar year
type AnnualMetrics struct {
	ParcAffecteAn int     `json:"parc_affecte_an"`
	BusMaxAn      int     `json:"bus_max_an"`
	VoyagesAn     float64 `json:"voyages_an"`
	KmComAn       float64 `json:"km_com_an"`
	KmHLPAn       float64 `json:"km_hlp_an"`
	KmTechAn      float64 `json:"km_tech_an"`
	KmTotalAn     float64 `json:"km_total_an"`
	HCommercialAn float64 `json:"h_commercial_an"`
	HTechniqueAn  float64 `json:"h_technique_an"`
	HTotalAn      float64 `json:"h_total_an"`
	HPayeesAn     float64 `json:"h_payees_an"`
	ServiceDaysAn int     `json:"service_days_an"`
}

// TenYearAverage summarises a line over the calendar horizon. Fleet
// figures are horizon maxima, flows are means.
type TenYearAverage struct {
	ParcAffecte int     `json:"parc_affecte"`
	BusMax      int     `json:"bus_max"`
	Voyages     float64 `json:"voyages"`
	KmCom       float64 `json:"km_com"`
	KmHLP       float64 `json:"km_hlp"`
	KmTech      float64 `json:"km_tech"`
	KmTotal     float64 `json:"km_total"`
	HCommercial float64 `json:"h_commercial"`
	HTechnique  float64 `json:"h_technique"`
	HTotal      float64 `json:"h_total"`
	HPayees     float64 `json:"h_payees"`
}

// NearestDepot identifies the terminus closest to the depot
type NearestDepot struct {
	Location string  `json:"location"`
	Distance float64 `json:"distance"`
}

// CalculatedLineData is a line definition enriched with its metrics
type CalculatedLineData struct {
	BusLineData
	Capacity       float64               `json:"capacity"`
	DepotProche    NearestDepot          `json:"depot_proche"`
	Daily          Slots[*DailyMetrics]  `json:"daily"`
	AnnualForecast map[int]AnnualMetrics `json:"annual_forecast"`
	TenYearAvg     TenYearAverage        `json:"ten_year_avg"`
}

// SlotKey names one (season, day type) slot
type SlotKey struct {
	Season  Season  `json:"season"`
	DayType DayType `json:"day_type"`
}

// NetworkTotals are the network-wide figures
type NetworkTotals struct {
	TotalFleet            int     `json:"total_fleet"`
	PeakBusDemand         int     `json:"peak_bus_demand"`
	PeakSlot              SlotKey `json:"peak_slot"`
	TotalVoyagesAn        float64 `json:"total_voyages_an"`
	TotalKmAn             float64 `json:"total_km_an"`
	TotalHeuresAn         float64 `json:"total_heures_an"`
	TotalHeuresConduiteAn float64 `json:"total_heures_conduite_an"`
	TotalBusesAvailable   float64 `json:"total_buses_available"`
	FleetMargin           float64 `json:"fleet_margin"`
}

// CalculatedData is the full result of a calculation
type CalculatedData struct {
	Lines         []CalculatedLineData `json:"lines"`
	NetworkTotals NetworkTotals        `json:"network_totals"`
}

// Line returns the calculated line with the given id
func (d *CalculatedData) Line(id string) (*CalculatedLineData, bool) {
	for i := range d.Lines {
		if d.Lines[i].ID == id {
			return &d.Lines[i], true
		}
	}
	return nil, false
}
