package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	Validations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "receipt_ocr", Name: "validations_total", Help: "Number of validity checks by result."},
		[]string{"result"},
	)
	Extractions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "receipt_ocr", Name: "extractions_total", Help: "Number of processing runs by outcome."},
		[]string{"outcome"},
	)
	FieldDefaults = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "receipt_ocr", Name: "field_defaults_total", Help: "Number of extracted fields that fell back to their default value."},
		[]string{"field"},
	)
)

// Extraction outcomes
const (
	OutcomeSuccess       = "success"
	OutcomeInvalid       = "invalid_document"
	OutcomeEmptyText     = "empty_text"
	OutcomeOCRFailed     = "ocr_failed"
	OutcomePersistFailed = "persist_failed"
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(Validations)
	reg.MustRegister(Extractions)
	reg.MustRegister(FieldDefaults)
}

// ObserveValidation counts a gate verdict
func ObserveValidation(valid bool) {
	if valid {
		Validations.WithLabelValues("valid").Inc()
		return
	}
	Validations.WithLabelValues("invalid").Inc()
}
