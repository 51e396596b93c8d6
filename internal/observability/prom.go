package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// Record store
	StoreOpDuration  *prometheus.HistogramVec
	StoreErrorsTotal *prometheus.CounterVec

	// Notification hub
	HubConnections  prometheus.Gauge
	HubEventsTotal  *prometheus.CounterVec
	HubDroppedTotal *prometheus.CounterVec
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskhive",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskhive",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "taskhive",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		StoreOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "taskhive",
				Subsystem: "store",
				Name:      "op_duration_seconds",
				Help:      "Record store operation latency by collection and op.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.5, 1},
			},
			[]string{"collection", "op", "status"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskhive",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Record store errors by collection and class.",
			},
			[]string{"collection", "class"},
		),
		HubConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "taskhive",
				Subsystem: "hub",
				Name:      "connections",
				Help:      "Currently connected websocket clients.",
			},
		),
		HubEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskhive",
				Subsystem: "hub",
				Name:      "events_published_total",
				Help:      "Events delivered to connected clients by type.",
			},
			[]string{"event"},
		),
		HubDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "taskhive",
				Subsystem: "hub",
				Name:      "events_dropped_total",
				Help:      "Events dropped because a connection's send buffer was full.",
			},
			[]string{"event"},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.StoreOpDuration, p.StoreErrorsTotal,
		p.HubConnections, p.HubEventsTotal, p.HubDroppedTotal,
	)

	return p
}

// ObserveStoreOp satisfies store.OpObserver.
func (p *Prom) ObserveStoreOp(collection, op, status string, seconds float64) {
	p.StoreOpDuration.WithLabelValues(collection, op, status).Observe(seconds)
}

func (p *Prom) IncStoreError(collection, class string) {
	p.StoreErrorsTotal.WithLabelValues(collection, class).Inc()
}

// Hub counter hooks; satisfy hub.Metrics.

func (p *Prom) HubConnected() {
	p.HubConnections.Inc()
}

func (p *Prom) HubDisconnected() {
	p.HubConnections.Dec()
}

func (p *Prom) HubPublished(event string) {
	p.HubEventsTotal.WithLabelValues(event).Inc()
}

func (p *Prom) HubDropped(event string) {
	p.HubDroppedTotal.WithLabelValues(event).Inc()
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
