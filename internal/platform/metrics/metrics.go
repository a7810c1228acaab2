package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the motion collector.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry             *prometheus.Registry
	requestsTotal        prometheus.Counter
	errorsTotal          prometheus.Counter
	samplesIngestedTotal prometheus.Counter
	noiseSamplesTotal    prometheus.Counter
	decodeFailuresTotal  prometheus.Counter
	recordingsSavedTotal *prometheus.CounterVec
	conflictsTotal       *prometheus.CounterVec
	noiseSegmentsTotal   *prometheus.CounterVec
	recordingActive      prometheus.Gauge
	bufferOccupancy      prometheus.Gauge
	noiseWindowSamples   prometheus.Gauge
}

// New creates and registers Prometheus metrics for the collector.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_requests_total",
			Help: "Total number of HTTP requests received by the status server",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		samplesIngestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_samples_ingested_total",
			Help: "Total number of sensor samples pushed into the sample buffer",
		}),
		noiseSamplesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_noise_samples_total",
			Help: "Total number of sensor samples appended to the noise window",
		}),
		decodeFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "collector_decode_failures_total",
			Help: "Total number of datagrams dropped because they could not be decoded",
		}),
		recordingsSavedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_recordings_saved_total",
			Help: "Total number of labeled recordings persisted, by action",
		}, []string{"action"}),
		conflictsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_protocol_conflicts_total",
			Help: "Total number of rejected label events, by reason",
		}, []string{"reason"}),
		noiseSegmentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "collector_noise_segments_saved_total",
			Help: "Total number of noise segments persisted at finalization, by granularity",
		}, []string{"granularity"}),
		recordingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_recording_active",
			Help: "1 while a labeled recording is active, 0 otherwise",
		}),
		bufferOccupancy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_buffer_occupancy",
			Help: "Number of samples currently held in the rolling sample buffer",
		}),
		noiseWindowSamples: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "collector_noise_window_samples",
			Help: "Number of samples accumulated in the noise window",
		}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.samplesIngestedTotal,
		m.noiseSamplesTotal,
		m.decodeFailuresTotal,
		m.recordingsSavedTotal,
		m.conflictsTotal,
		m.noiseSegmentsTotal,
		m.recordingActive,
		m.bufferOccupancy,
		m.noiseWindowSamples,
	)

	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// IncSamplesIngested increments the ingested samples counter.
func (m *Metrics) IncSamplesIngested() {
	if m == nil {
		return
	}
	m.samplesIngestedTotal.Inc()
}

// IncNoiseSamples increments the noise window append counter.
func (m *Metrics) IncNoiseSamples() {
	if m == nil {
		return
	}
	m.noiseSamplesTotal.Inc()
}

// IncDecodeFailures increments the dropped datagram counter.
func (m *Metrics) IncDecodeFailures() {
	if m == nil {
		return
	}
	m.decodeFailuresTotal.Inc()
}

// IncRecordingsSaved increments the saved recordings counter for action.
func (m *Metrics) IncRecordingsSaved(action string) {
	if m == nil {
		return
	}
	m.recordingsSavedTotal.WithLabelValues(action).Inc()
}

// IncConflicts increments the rejected label event counter for reason.
func (m *Metrics) IncConflicts(reason string) {
	if m == nil {
		return
	}
	m.conflictsTotal.WithLabelValues(reason).Inc()
}

// AddNoiseSegments adds n to the persisted noise segment counter for granularity.
func (m *Metrics) AddNoiseSegments(granularity string, n int) {
	if m == nil {
		return
	}
	m.noiseSegmentsTotal.WithLabelValues(granularity).Add(float64(n))
}

// SetRecordingActive sets the recording gauge to 1 or 0.
func (m *Metrics) SetRecordingActive(active bool) {
	if m == nil {
		return
	}
	if active {
		m.recordingActive.Set(1)
	} else {
		m.recordingActive.Set(0)
	}
}

// SetBufferOccupancy sets the sample buffer occupancy gauge.
func (m *Metrics) SetBufferOccupancy(n int) {
	if m == nil {
		return
	}
	m.bufferOccupancy.Set(float64(n))
}

// SetNoiseWindowSamples sets the noise window size gauge.
func (m *Metrics) SetNoiseWindowSamples(n int) {
	if m == nil {
		return
	}
	m.noiseWindowSamples.Set(float64(n))
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
