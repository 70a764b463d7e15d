package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pulsewatch"

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	ticks        *prometheus.CounterVec
	tickDuration prometheus.Histogram
	alerts       *prometheus.CounterVec
	dispatches   *prometheus.CounterVec
	normalize    *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	lastPrice    *prometheus.GaugeVec
	latency      *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Recorder{
		ticks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "monitor_ticks_total",
			Help:      "Monitoring ticks by outcome",
		}, []string{"outcome"}),
		tickDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_tick_duration_seconds",
			Help:      "Wall time of a monitoring tick",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		alerts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alerts by pipeline stage",
		}, []string{"stage"}),
		dispatches: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_total",
			Help:      "Notification deliveries by channel and result",
		}, []string{"channel", "result"}),
		normalize: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "normalize_total",
			Help:      "Prediction normalizations by outcome",
		}, []string{"outcome", "reason"}),
		errorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Errors by kind",
		}, []string{"type"}),
		lastPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_price",
			Help:      "Last observed price for a symbol",
		}, []string{"symbol"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of boundary calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (r *Recorder) RecordTick(outcome string, seconds float64) {
	r.ticks.WithLabelValues(outcome).Inc()
	r.tickDuration.Observe(seconds)
}

func (r *Recorder) RecordAlerts(stage string, n int) {
	if n > 0 {
		r.alerts.WithLabelValues(stage).Add(float64(n))
	}
}

func (r *Recorder) RecordDispatch(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.dispatches.WithLabelValues(channel, result).Inc()
}

func (r *Recorder) RecordNormalize(outcome, reason string) {
	r.normalize.WithLabelValues(outcome, reason).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) RecordTick(string, float64)      {}
func (Nop) RecordAlerts(string, int)        {}
func (Nop) RecordDispatch(string, error)    {}
func (Nop) RecordNormalize(string, string)  {}
func (Nop) RecordError(string)              {}
func (Nop) RecordLastPrice(string, float64) {}
func (Nop) RecordLatency(string, float64)   {}
