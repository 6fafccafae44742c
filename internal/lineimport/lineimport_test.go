package lineimport

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lineL1 = `{
  "id": "L1",
  "nom": "Plateau - Parcelles",
  "categorie": "Urbaine",
  "origine": "Plateau",
  "destination": "Parcelles",
  "longueur_km": 12,
  "dist_origine_depot_km": 3,
  "heures_ouverture": {
    "L-V_Hiver": {"debut_service": "06:00", "fin_service": "22:30"},
    "DF_Été": {"debut_service": "07:00", "fin_service": "21:00"}
  },
  "intervalles_min": {
    "L-V_Hiver": {"pointe": 10, "vallee": 20},
    "DF_Été": {"pointe": 0, "vallee": 0}
  },
  "periodes_pointe": {
    "Hiver": {"matin": "07:00-09:00", "soir": "17:00-19:30"}
  }
}`

const lineArray = `[
  {"id": "L2", "nom": "Ligne 2", "longueur_km": 9, "temps_aller_min": 25,
   "heures_ouverture": {"S_Ramadan": {"debut_service": "08:00", "fin_service": "20:00"}},
   "intervalles_min": {"S_Ramadan": {"pointe": 12, "vallee": 24}}},
  {"id": "L3", "nom": "Ligne 3", "longueur_km": 6,
   "heures_ouverture": {"L-V_Hiver": {"debut_service": "06:00", "fin_service": "21:00"}},
   "intervalles_min": {"L-V_Hiver": {"pointe": 15, "vallee": 30}}}
]`

func buildArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, body := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestParseArchiveReader(t *testing.T) {
	data := buildArchive(t, map[string]string{
		"lines/l1.json":      lineL1,
		"lines/others.JSON":  lineArray,
		"README.txt":         "not a line",
		"__MACOSX/._l1.json": "junk",
	})

	docs, err := ParseArchiveReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, docs, 3)

	// members are read in name order
	assert.Equal(t, "L1", docs[0].ID)
	assert.Equal(t, "L2", docs[1].ID)
	assert.Equal(t, "L3", docs[2].ID)
}

func TestParseArchive_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lines.zip")
	require.NoError(t, os.WriteFile(path, buildArchive(t, map[string]string{"l1.json": lineL1}), 0o600))

	docs, err := ParseArchive(path)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Plateau - Parcelles", docs[0].Nom)

	_, err = ParseArchive(filepath.Join(dir, "missing.zip"))
	assert.Error(t, err)
}

func TestParseArchiveReader_Errors(t *testing.T) {
	t.Run("no json members", func(t *testing.T) {
		data := buildArchive(t, map[string]string{"notes.txt": "x"})
		_, err := ParseArchiveReader(bytes.NewReader(data), int64(len(data)))
		assert.ErrorIs(t, err, ErrNoDocuments)
	})

	t.Run("empty json members", func(t *testing.T) {
		data := buildArchive(t, map[string]string{"a.json": "  "})
		_, err := ParseArchiveReader(bytes.NewReader(data), int64(len(data)))
		assert.ErrorIs(t, err, ErrNoDocuments)
	})

	t.Run("malformed json", func(t *testing.T) {
		data := buildArchive(t, map[string]string{"bad.json": "{"})
		_, err := ParseArchiveReader(bytes.NewReader(data), int64(len(data)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.json")
	})

	t.Run("not a zip", func(t *testing.T) {
		data := []byte("plain text")
		_, err := ParseArchiveReader(bytes.NewReader(data), int64(len(data)))
		assert.Error(t, err)
	})
}

func TestParseDocuments_BOM(t *testing.T) {
	docs, err := ParseDocuments(append([]byte("\xef\xbb\xbf"), lineL1...))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "L1", docs[0].ID)
}

func TestToBusLine(t *testing.T) {
	docs, err := ParseDocuments([]byte(lineL1))
	require.NoError(t, err)

	line, err := ToBusLine(docs[0], Options{CommercialSpeedKmh: 18})
	require.NoError(t, err)

	assert.Equal(t, "L1", line.ID)
	assert.Equal(t, "Urbaine", line.Category)
	assert.Equal(t, 3.0, line.DistOriginDepotKm)
	assert.Equal(t, DefaultDestinationDepotKm, line.DistDestinationDepotKm)
	assert.Equal(t, DefaultBusLengthM, line.BusLengthM)
	assert.Equal(t, 2, line.ScheduleCount())

	winter := line.Schedules.Get(models.SeasonHiver, models.DayLaV)
	require.NotNil(t, winter)
	assert.Equal(t, 6.0, winter.ServiceStartH)
	assert.Equal(t, 22.5, winter.ServiceEndH)
	// 12 km at 18 km/h
	assert.Equal(t, 40.0, winter.TimeAllerMin)
	assert.Equal(t, 40.0, winter.TimeRetourMin)
	assert.Equal(t, 10.0, winter.FrequencyPeakMin)
	assert.Equal(t, 20.0, winter.FrequencyOffpeakMin)
	assert.Equal(t, []models.PeakPeriod{{StartH: 7, EndH: 9}, {StartH: 17, EndH: 19.5}}, winter.PeakPeriods)

	summer := line.Schedules.Get(models.SeasonEte, models.DayDF)
	require.NotNil(t, summer)
	assert.Empty(t, summer.PeakPeriods)
	assert.Equal(t, DefaultPeakHeadwayMin, summer.FrequencyPeakMin)
	assert.Equal(t, DefaultOffpeakHeadwayMin, summer.FrequencyOffpeakMin)

	assert.Nil(t, line.Schedules.Get(models.SeasonHiver, models.DayS))
}

func TestToBusLine_TravelTime(t *testing.T) {
	aller := 25.0
	doc := LineDocument{
		ID: "L", Nom: "L", LongueurKm: 9, TempsAllerMin: &aller,
		HeuresOuverture: map[string]ServiceHours{"S_Ramadan": {DebutService: "08:00", FinService: "20:00"}},
		IntervallesMin:  map[string]Headways{"S_Ramadan": {Pointe: 12, Vallee: 24}},
	}

	line, err := ToBusLine(doc, Options{})
	require.NoError(t, err)
	s := line.Schedules.Get(models.SeasonRamadan, models.DayS)
	require.NotNil(t, s)
	assert.Equal(t, 25.0, s.TimeAllerMin)
	assert.Equal(t, 25.0, s.TimeRetourMin)
	assert.Equal(t, "N/A", line.Category)

	doc.TempsAllerMin = nil
	line, err = ToBusLine(doc, Options{CommercialSpeedKmh: 20})
	require.NoError(t, err)
	assert.Equal(t, 27.0, line.Schedules.Get(models.SeasonRamadan, models.DayS).TimeAllerMin)
}

func TestToBusLine_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  LineDocument
	}{
		{name: "missing id", doc: LineDocument{Nom: "x"}},
		{name: "no schedule", doc: LineDocument{ID: "A", Nom: "x"}},
		{
			name: "unknown slot key",
			doc: LineDocument{
				ID: "A", Nom: "x",
				HeuresOuverture: map[string]ServiceHours{"Lundi_Hiver": {DebutService: "06:00", FinService: "20:00"}},
				IntervallesMin:  map[string]Headways{"Lundi_Hiver": {Pointe: 10, Vallee: 20}},
			},
		},
		{
			name: "bad clock",
			doc: LineDocument{
				ID: "A", Nom: "x",
				HeuresOuverture: map[string]ServiceHours{"L-V_Hiver": {DebutService: "6h", FinService: "20:00"}},
				IntervallesMin:  map[string]Headways{"L-V_Hiver": {Pointe: 10, Vallee: 20}},
			},
		},
		{
			name: "bad peak window",
			doc: LineDocument{
				ID: "A", Nom: "x",
				HeuresOuverture: map[string]ServiceHours{"L-V_Hiver": {DebutService: "06:00", FinService: "20:00"}},
				IntervallesMin:  map[string]Headways{"L-V_Hiver": {Pointe: 10, Vallee: 20}},
				PeriodesPointe:  map[string]PeakWindows{"Hiver": {Matin: "07:00"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ToBusLine(tt.doc, Options{})
			assert.Error(t, err)
		})
	}
}

func TestToBusLine_DuplicateSlot(t *testing.T) {
	hours := ServiceHours{DebutService: "06:00", FinService: "20:00"}

	t.Run("accented and plain season", func(t *testing.T) {
		doc := LineDocument{
			ID: "A", Nom: "x",
			HeuresOuverture: map[string]ServiceHours{"L-V_Été": hours, "L-V_Ete": hours},
			IntervallesMin:  map[string]Headways{"L-V_Été": {Pointe: 10, Vallee: 20}, "L-V_Ete": {Pointe: 30, Vallee: 60}},
		}
		// the outcome must not depend on map order
		for i := 0; i < 20; i++ {
			_, err := ToBusLine(doc, Options{})
			require.ErrorIs(t, err, ErrDuplicateSlot)
			assert.Contains(t, err.Error(), `"L-V_Ete" and "L-V_Été"`)
		}
	})

	t.Run("peak windows", func(t *testing.T) {
		doc := LineDocument{
			ID: "A", Nom: "x",
			HeuresOuverture: map[string]ServiceHours{"L-V_Été": hours},
			IntervallesMin:  map[string]Headways{"L-V_Été": {Pointe: 10, Vallee: 20}},
			PeriodesPointe:  map[string]PeakWindows{"Été": {Matin: "07:00-09:00"}, "ete": {Matin: "08:00-10:00"}},
		}
		_, err := ToBusLine(doc, Options{})
		assert.ErrorIs(t, err, ErrDuplicateSlot)
	})

	t.Run("same day type in different seasons", func(t *testing.T) {
		doc := LineDocument{
			ID: "A", Nom: "x",
			HeuresOuverture: map[string]ServiceHours{"L-V_Été": hours, "L-V_Hiver": hours},
			IntervallesMin:  map[string]Headways{"L-V_Été": {Pointe: 10, Vallee: 20}, "L-V_Hiver": {Pointe: 10, Vallee: 20}},
		}
		line, err := ToBusLine(doc, Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, line.ScheduleCount())
	})
}

func TestToBusLines_DropsDuplicatesAndInvalid(t *testing.T) {
	docs, err := ParseDocuments([]byte(lineArray))
	require.NoError(t, err)
	docs = append(docs, docs[0], LineDocument{ID: "bad"})

	lines, dropped := ToBusLines(docs, Options{}, zerolog.Nop())
	assert.Equal(t, 2, dropped)
	require.Len(t, lines, 2)
	assert.Equal(t, "L2", lines[0].ID)
	assert.Equal(t, "L3", lines[1].ID)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "06:00", want: 6},
		{in: "22:45", want: 22.75},
		{in: "7", want: 7},
		{in: "25:30", want: 25.5},
		{in: "", wantErr: true},
		{in: "ab:00", wantErr: true},
		{in: "10:75", wantErr: true},
		{in: "-1:00", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseClock(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
