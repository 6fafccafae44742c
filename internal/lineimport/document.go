package lineimport

// LineDocument is one line as exported by the network's line registry.
// Keys of HeuresOuverture and IntervallesMin are "<day>_<season>", e.g.
// "L-V_Hiver" or "DF_Été".
type LineDocument struct {
	ID                     string                  `json:"id"`
	Nom                    string                  `json:"nom"`
	Categorie              string                  `json:"categorie"`
	Origine                string                  `json:"origine"`
	Destination            string                  `json:"destination"`
	LongueurKm             float64                 `json:"longueur_km"`
	LongueurBusM           *float64                `json:"longueur_bus_m,omitempty"`
	DistOrigineDepotKm     *float64                `json:"dist_origine_depot_km,omitempty"`
	DistDestinationDepotKm *float64                `json:"dist_destination_depot_km,omitempty"`
	TempsAllerMin          *float64                `json:"temps_aller_min,omitempty"`
	TempsRetourMin         *float64                `json:"temps_retour_min,omitempty"`
	HeuresOuverture        map[string]ServiceHours `json:"heures_ouverture"`
	IntervallesMin         map[string]Headways     `json:"intervalles_min"`
	PeriodesPointe         map[string]PeakWindows  `json:"periodes_pointe"`
}

// ServiceHours is a service window as "HH:MM" clock strings
type ServiceHours struct {
	DebutService string `json:"debut_service"`
	FinService   string `json:"fin_service"`
}

// Headways are the peak and off-peak intervals in minutes
type Headways struct {
	Pointe float64 `json:"pointe"`
	Vallee float64 `json:"vallee"`
}

// PeakWindows are "HH:MM-HH:MM" morning and evening peaks
type PeakWindows struct {
	Matin string `json:"matin"`
	Soir  string `json:"soir"`
}
