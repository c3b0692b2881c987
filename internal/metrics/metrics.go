// Package metrics exposes OTP lifecycle and delivery counters for Prometheus.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what the auth service reports to
type Recorder interface {
	RecordIssued()
	RecordVerification(ok bool)
	RecordDelivery(channel string, err error, took time.Duration)
}

// Collector implements Recorder on top of Prometheus metrics
type Collector struct {
	issued        prometheus.Counter
	verifications *prometheus.CounterVec
	deliveries    *prometheus.CounterVec
	deliveryTime  *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		issued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tijzi_otp_issued_total",
			Help: "Number of one-time codes generated",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tijzi_otp_verifications_total",
			Help: "Number of code verifications by result",
		}, []string{"result"}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tijzi_otp_deliveries_total",
			Help: "Number of code deliveries by channel and outcome",
		}, []string{"channel", "outcome"}),
		deliveryTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tijzi_otp_delivery_seconds",
			Help:    "Latency of vendor delivery calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),
	}

	reg.MustRegister(c.issued, c.verifications, c.deliveries, c.deliveryTime)
	return c
}

// RecordIssued counts a generated code
func (c *Collector) RecordIssued() {
	c.issued.Inc()
}

// RecordVerification counts a verification as "success" or "failure"
func (c *Collector) RecordVerification(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	c.verifications.WithLabelValues(result).Inc()
}

// RecordDelivery counts a delivery attempt and observes its latency
func (c *Collector) RecordDelivery(channel string, err error, took time.Duration) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	c.deliveries.WithLabelValues(channel, outcome).Inc()
	c.deliveryTime.WithLabelValues(channel).Observe(took.Seconds())
}

// Nop discards everything
type Nop struct{}

func (Nop) RecordIssued() {}
func (Nop) RecordVerification(bool) {}
func (Nop) RecordDelivery(string, error, time.Duration) {}

// Handler returns the scrape handler for gatherer
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
