package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	MeasurementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growth_measurements_total",
			Help: "Measurements lifecycle counter by stage",
		},
		[]string{"stage"}, // created|sent|compensated
	)

	OutboxEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growth_outbox_events_total",
			Help: "Outbox relay counter by result",
		},
		[]string{"result"}, // published|publish_failed|cancelled
	)

	SagaRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "growth_saga_requests_total",
			Help: "SAGA request counter by outcome",
		},
		[]string{"outcome"}, // started|start_failed|applied|rejected
	)
)

func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		MeasurementsTotal,
		OutboxEventsTotal,
		SagaRequestsTotal,
	)
}
