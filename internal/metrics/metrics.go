package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the Prometheus collectors of the simulator.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	eventsEmitted *prometheus.CounterVec
	handlerPanics *prometheus.CounterVec
	eventsDropped prometheus.Counter
	callLatency   *prometheus.HistogramVec
	callErrors    *prometheus.CounterVec
	lastPrice     *prometheus.GaugeVec
	riskScore     *prometheus.GaugeVec
}

// New creates a Recorder whose collectors are registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		eventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatormarket_events_emitted_total",
				Help: "Total number of events emitted on the bus",
			},
			[]string{"event"},
		),
		handlerPanics: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatormarket_handler_panics_total",
				Help: "Total number of recovered panics in bus handlers",
			},
			[]string{"event"},
		),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "creatormarket_ws_events_dropped_total",
			Help: "Events dropped because the websocket broadcast queue was full",
		}),
		callLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "creatormarket_call_duration_seconds",
				Help:    "Duration of service calls in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		callErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "creatormarket_call_errors_total",
				Help: "Total number of failed service calls",
			},
			[]string{"operation"},
		),
		lastPrice: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "creatormarket_last_price",
				Help: "Last simulated price for an instrument",
			},
			[]string{"instrument"},
		),
		riskScore: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "creatormarket_risk_score",
				Help: "Risk score of the latest anomaly detection for an instrument",
			},
			[]string{"instrument"},
		),
	}
}

// RecordEvent records one bus emission.
func (r *Recorder) RecordEvent(event string) {
	if r == nil {
		return
	}
	r.eventsEmitted.WithLabelValues(event).Inc()
}

// RecordHandlerPanic records a recovered handler failure.
func (r *Recorder) RecordHandlerPanic(event string) {
	if r == nil {
		return
	}
	r.handlerPanics.WithLabelValues(event).Inc()
}

// RecordDropped records an event the websocket hub could not enqueue.
func (r *Recorder) RecordDropped() {
	if r == nil {
		return
	}
	r.eventsDropped.Inc()
}

// RecordCall records the latency and outcome of a service call.
func (r *Recorder) RecordCall(op string, seconds float64, err error) {
	if r == nil {
		return
	}
	r.callLatency.WithLabelValues(op).Observe(seconds)
	if err != nil {
		r.callErrors.WithLabelValues(op).Inc()
	}
}

// RecordLastPrice records the current price of an instrument.
func (r *Recorder) RecordLastPrice(instrument string, price float64) {
	if r == nil {
		return
	}
	r.lastPrice.WithLabelValues(instrument).Set(price)
}

// RecordRiskScore records the latest anomaly risk score of an instrument.
func (r *Recorder) RecordRiskScore(instrument string, score float64) {
	if r == nil {
		return
	}
	r.riskScore.WithLabelValues(instrument).Set(score)
}
