package metrics

import (
	"time"

	"github.com/passbi/passbi_fleet/internal/models"
	"github.com/prometheus/client_golang/prometheus"
)

// Calculation outcomes used as the result label
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultCached  = "cached"
)

// Recorder receives calculation outcomes
type Recorder interface {
	ObserveCalculation(result string, elapsed time.Duration, data *models.CalculatedData)
}

// Nop discards everything
type Nop struct{}

func (Nop) ObserveCalculation(string, time.Duration, *models.CalculatedData) {}

// PromRecorder exports calculation metrics to Prometheus
type PromRecorder struct {
	calculations  *prometheus.CounterVec
	duration      prometheus.Histogram
	totalFleet    prometheus.Gauge
	peakBusDemand prometheus.Gauge
	lines         prometheus.Gauge
}

// NewPromRecorder registers the calculation collectors on reg, or on the
// default registerer when reg is nil. Collectors that are already
// registered are reused.
func NewPromRecorder(reg prometheus.Registerer) (*PromRecorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	calculations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "calculations_total",
		Help: "Total number of network calculations by result",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "calculation_duration_seconds",
		Help:    "Wall time of a full network calculation",
		Buckets: prometheus.DefBuckets,
	})
	totalFleet := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "network_total_fleet",
		Help: "Fleet required by the last successful calculation, reserve included",
	})
	peakBusDemand := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "network_peak_bus_demand",
		Help: "Simultaneous buses in the busiest slot of the last successful calculation",
	})
	lines := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calculation_lines",
		Help: "Number of lines in the last successful calculation",
	})

	var err error
	if calculations, err = register(reg, calculations); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if totalFleet, err = register(reg, totalFleet); err != nil {
		return nil, err
	}
	if peakBusDemand, err = register(reg, peakBusDemand); err != nil {
		return nil, err
	}
	if lines, err = register(reg, lines); err != nil {
		return nil, err
	}

	return &PromRecorder{
		calculations:  calculations,
		duration:      duration,
		totalFleet:    totalFleet,
		peakBusDemand: peakBusDemand,
		lines:         lines,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// ObserveCalculation counts the outcome and, for computed results,
// updates the duration histogram and the network gauges
func (r *PromRecorder) ObserveCalculation(result string, elapsed time.Duration, data *models.CalculatedData) {
	r.calculations.WithLabelValues(result).Inc()
	if result == ResultCached {
		return
	}
	r.duration.Observe(elapsed.Seconds())
	if result != ResultSuccess || data == nil {
		return
	}
	r.totalFleet.Set(float64(data.NetworkTotals.TotalFleet))
	r.peakBusDemand.Set(float64(data.NetworkTotals.PeakBusDemand))
	r.lines.Set(float64(len(data.Lines)))
}
