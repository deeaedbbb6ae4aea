package metrics

import "github.com/prometheus/client_golang/prometheus"

// ErrorMetrics counts enhanced errors by category and component.
type ErrorMetrics struct {
	errorsTotal *prometheus.CounterVec
}

// NewErrorMetrics creates and registers error metrics.
func NewErrorMetrics(registry *prometheus.Registry) (*ErrorMetrics, error) {
	m := &ErrorMetrics{
		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trialbase_errors_total",
				Help: "Total number of errors built, by category and component",
			},
			[]string{"category", "component"},
		),
	}
	if err := registry.Register(m.errorsTotal); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordError counts one error.
func (m *ErrorMetrics) RecordError(category, component string) {
	m.errorsTotal.WithLabelValues(category, component).Inc()
}
