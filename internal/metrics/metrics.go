// Package metrics exposes server counters in the Prometheus format.
package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/eternalApril/starlight/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "starlight"

// Metrics holds the collectors of one server instance.
// Recording methods are no-ops on a nil *Metrics
type Metrics struct {
	registry *prometheus.Registry

	commands         *prometheus.CounterVec
	connections      prometheus.Gauge
	connectionsTotal prometheus.Counter
	protocolErrors   prometheus.Counter
}

// New creates the collectors and registers them, together with keyspace
// collectors reading stats, in a private registry
func New(stats func() storage.Stats) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "total",
			Help:      "Commands executed, by command name and outcome",
		}, []string{"command", "status"}),

		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "clients",
			Name:      "connected",
			Help:      "Currently connected clients",
		}),

		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "clients",
			Name:      "accepted_total",
			Help:      "Connections accepted since start",
		}),

		protocolErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "commands",
			Name:      "protocol_errors_total",
			Help:      "Requests rejected before reaching a command",
		}),
	}

	keys := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "keyspace",
		Name:      "keys",
		Help:      "Keys held, including expired keys not read since expiring",
	}, func() float64 { return float64(stats().Keys) })

	expires := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "keyspace",
		Name:      "expires",
		Help:      "Keys with a pending expiration",
	}, func() float64 { return float64(stats().Expires) })

	evicted := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "keyspace",
		Name:      "expired_keys_total",
		Help:      "Keys removed because a read found them expired",
	}, func() float64 { return float64(stats().Evicted) })

	m.registry.MustRegister(
		m.commands,
		m.connections,
		m.connectionsTotal,
		m.protocolErrors,
		keys,
		expires,
		evicted,
	)

	return m
}

// CommandDone records one executed command
func (m *Metrics) CommandDone(name string, failed bool) {
	if m == nil {
		return
	}
	status := "ok"
	if failed {
		status = "error"
	}
	m.commands.WithLabelValues(name, status).Inc()
}

// ProtocolError records a request that never reached a command
func (m *Metrics) ProtocolError() {
	if m == nil {
		return
	}
	m.protocolErrors.Inc()
}

// ClientConnected records a new connection
func (m *Metrics) ClientConnected() {
	if m == nil {
		return
	}
	m.connections.Inc()
	m.connectionsTotal.Inc()
}

// ClientDisconnected records a closed connection
func (m *Metrics) ClientDisconnected() {
	if m == nil {
		return
	}
	m.connections.Dec()
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on ln until ctx is done
func (m *Metrics) Serve(ctx context.Context, ln net.Listener, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", zap.Error(err))
		}
	}()

	logger.Info("metrics listening on", zap.String("address", ln.Addr().String()))

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
