package http

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics owns its registry so several servers can live in one process.
type Metrics struct {
	Registry *prometheus.Registry

	RoundsTotal      *prometheus.CounterVec
	JudgmentsTotal   *prometheus.CounterVec
	RefreshesTotal   *prometheus.CounterVec
	ErrorsTotal      *prometheus.CounterVec
	PlaylistLoadTime *prometheus.HistogramVec
	TracksRemaining  prometheus.Gauge
	ViewsConnected   prometheus.Gauge
}

// NewMetrics registers all collectors on a private registry.
func NewMetrics() *Metrics {
	metrics := &Metrics{
		Registry: prometheus.NewRegistry(),
		RoundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songquiz_rounds_total",
				Help: "Total number of round draws",
			},
			[]string{"status"},
		),
		JudgmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songquiz_judgments_total",
				Help: "Total number of judged guesses",
			},
			[]string{"result"},
		),
		RefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songquiz_token_refreshes_total",
				Help: "Total number of access token refresh attempts",
			},
			[]string{"trigger", "status"},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "songquiz_errors_total",
				Help: "Total number of errors",
			},
			[]string{"component", "type"},
		),
		PlaylistLoadTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "songquiz_playlist_load_duration_seconds",
				Help:    "Time spent loading a complete playlist",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		TracksRemaining: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "songquiz_tracks_remaining",
				Help: "Number of tracks that can still be drawn",
			},
		),
		ViewsConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "songquiz_views_connected",
				Help: "Number of connected WebSocket views",
			},
		),
	}

	metrics.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.RoundsTotal,
		metrics.JudgmentsTotal,
		metrics.RefreshesTotal,
		metrics.ErrorsTotal,
		metrics.PlaylistLoadTime,
		metrics.TracksRemaining,
		metrics.ViewsConnected,
	)

	return metrics
}

func (m *Metrics) RecordRound(status string) {
	m.RoundsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) RecordJudgment(result string) {
	m.JudgmentsTotal.WithLabelValues(result).Inc()
}

func (m *Metrics) RecordRefresh(trigger, status string) {
	m.RefreshesTotal.WithLabelValues(trigger, status).Inc()
}

func (m *Metrics) RecordError(component, errorType string) {
	m.ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

func (m *Metrics) RecordPlaylistLoad(status string, duration time.Duration) {
	m.PlaylistLoadTime.WithLabelValues(status).Observe(duration.Seconds())
}

func (m *Metrics) SetTracksRemaining(count int) {
	m.TracksRemaining.Set(float64(count))
}

func (m *Metrics) SetViewsConnected(count int) {
	m.ViewsConnected.Set(float64(count))
}
