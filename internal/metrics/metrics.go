// Package metrics collects per-run Prometheus metrics. A CLI run has no
// scrape endpoint, so the registry is written to a textfile at exit for the
// node_exporter textfile collector.
package metrics

import (
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autocut"

type Metrics struct {
	reg *prometheus.Registry

	StageDuration   *prometheus.HistogramVec
	CommandDuration *prometheus.HistogramVec
	CommandsTotal   *prometheus.CounterVec
	APIRequests     *prometheus.CounterVec
	SegmentsTotal   *prometheus.CounterVec
	CutsTotal       prometheus.Counter
	AudioSeconds    prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of pipeline stages",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
		}, []string{"stage"}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "media_command_duration_seconds",
			Help:      "Wall time of media tool invocations",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 300, 900},
		}, []string{"kind"}),
		CommandsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_commands_total",
			Help:      "Media tool invocations by kind and result",
		}, []string{"kind", "result"}),
		APIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Remote API calls by service and result",
		}, []string{"service", "result"}),
		SegmentsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "segments_total",
			Help:      "Transcript segments produced by kind",
		}, []string{"kind"}),
		CutsTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cuts_total",
			Help:      "Validated cuts assembled",
		}),
		AudioSeconds: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audio_duration_seconds",
			Help:      "Duration of the last transcribed audio",
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// All methods below accept a nil receiver.

func (m *Metrics) ObserveStage(stage string, took time.Duration) {
	if m == nil {
		return
	}
	m.StageDuration.WithLabelValues(stage).Observe(took.Seconds())
}

// ObserveCommand labels by the first word of the stage so per-cut stages
// ("extract cut_0001") share one series.
func (m *Metrics) ObserveCommand(stage string, took time.Duration, err error) {
	if m == nil {
		return
	}
	kind, _, _ := strings.Cut(stage, " ")
	m.CommandDuration.WithLabelValues(kind).Observe(took.Seconds())
	m.CommandsTotal.WithLabelValues(kind, result(err)).Inc()
}

func (m *Metrics) ObserveAPI(service string, err error) {
	if m == nil {
		return
	}
	m.APIRequests.WithLabelValues(service, result(err)).Inc()
}

func (m *Metrics) AddSegments(kind string, n int) {
	if m == nil {
		return
	}
	m.SegmentsTotal.WithLabelValues(kind).Add(float64(n))
}

func (m *Metrics) AddCuts(n int) {
	if m == nil {
		return
	}
	m.CutsTotal.Add(float64(n))
}

func (m *Metrics) SetAudioDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.AudioSeconds.Set(d.Seconds())
}

// WriteTextfile atomically writes the registry in text exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return errors.New("metrics disabled")
	}
	return prometheus.WriteToTextfile(path, m.reg)
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
