package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromRecorder_ObserveCalculation(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPromRecorder(reg)
	require.NoError(t, err)

	data := &models.CalculatedData{
		Lines:         make([]models.CalculatedLineData, 3),
		NetworkTotals: models.NetworkTotals{TotalFleet: 14, PeakBusDemand: 12},
	}
	rec.ObserveCalculation(ResultSuccess, 20*time.Millisecond, data)
	rec.ObserveCalculation(ResultFailure, 5*time.Millisecond, nil)
	rec.ObserveCalculation(ResultCached, 0, data)

	expected := `
# HELP calculations_total Total number of network calculations by result
# TYPE calculations_total counter
calculations_total{result="cached"} 1
calculations_total{result="failure"} 1
calculations_total{result="success"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(rec.calculations, strings.NewReader(expected)))
	assert.Equal(t, 14.0, testutil.ToFloat64(rec.totalFleet))
	assert.Equal(t, 12.0, testutil.ToFloat64(rec.peakBusDemand))
	assert.Equal(t, 3.0, testutil.ToFloat64(rec.lines))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.duration))
}

func TestPromRecorder_FailureKeepsGauges(t *testing.T) {
	rec, err := NewPromRecorder(prometheus.NewRegistry())
	require.NoError(t, err)

	rec.ObserveCalculation(ResultSuccess, time.Millisecond, &models.CalculatedData{
		NetworkTotals: models.NetworkTotals{TotalFleet: 9},
	})
	rec.ObserveCalculation(ResultFailure, time.Millisecond, &models.CalculatedData{})

	assert.Equal(t, 9.0, testutil.ToFloat64(rec.totalFleet))
}

func TestNewPromRecorder_ReusesRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromRecorder(reg)
	require.NoError(t, err)
	second, err := NewPromRecorder(reg)
	require.NoError(t, err)

	first.ObserveCalculation(ResultFailure, time.Millisecond, nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.calculations.WithLabelValues(ResultFailure)))
}
