// Package monitor exposes server health over prometheus.
package monitor

import (
	"expvar"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghostnet/ghostserver/logger"
)

type Metrics struct {
	OpenConnections prometheus.Gauge
	OnlineSessions  prometheus.Gauge
	RoomOccupancy   *prometheus.GaugeVec
	FramesReceived  prometheus.Counter
	DispatchLatency prometheus.Histogram
}

func newMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "open_connections",
			Help:      "Number of open client connections",
		}),
		OnlineSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_sessions",
			Help:      "Number of authenticated sessions",
		}),
		RoomOccupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "room_occupancy",
			Help:      "Members per room",
		}, []string{"room"}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Total number of frames received",
		}),
		DispatchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_latency_seconds",
			Help:      "Frame dispatch latency",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	reg.MustRegister(
		m.OpenConnections,
		m.OnlineSessions,
		m.RoomOccupancy,
		m.FramesReceived,
		m.DispatchLatency,
	)
	return m
}

// Monitor owns a private prometheus registry so multiple instances can
// coexist in one process (tests spin up several servers).
type Monitor struct {
	metrics   *Metrics
	registry  *prometheus.Registry
	startTime time.Time
}

func NewMonitor(namespace string) *Monitor {
	registry := prometheus.NewRegistry()
	return &Monitor{
		metrics:   newMetrics(namespace, registry),
		registry:  registry,
		startTime: time.Now(),
	}
}

// StartServer serves /metrics and /debug/vars on addr in the background.
// Call once per process: the uptime expvar is global.
func (m *Monitor) StartServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())

	expvar.Publish("uptime", expvar.Func(func() interface{} {
		return m.Uptime().Seconds()
	}))

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Log.Errorw("metrics server stopped", "error", err)
		}
	}()
}

func (m *Monitor) IncConnections() {
	m.metrics.OpenConnections.Inc()
}

func (m *Monitor) DecConnections() {
	m.metrics.OpenConnections.Dec()
}

func (m *Monitor) IncSessions() {
	m.metrics.OnlineSessions.Inc()
}

func (m *Monitor) DecSessions() {
	m.metrics.OnlineSessions.Dec()
}

func (m *Monitor) SetRoomOccupancy(room string, count int) {
	m.metrics.RoomOccupancy.WithLabelValues(room).Set(float64(count))
}

func (m *Monitor) IncFrames() {
	m.metrics.FramesReceived.Inc()
}

func (m *Monitor) ObserveDispatch(d time.Duration) {
	m.metrics.DispatchLatency.Observe(d.Seconds())
}

// Uptime reports how long the monitor has been alive.
func (m *Monitor) Uptime() time.Duration {
	return time.Since(m.startTime)
}
