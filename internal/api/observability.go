package api

import (
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics with bounded cardinality (no per-player labels).
var (
	tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "arena_tick_duration_seconds",
		Help:    "Time spent in one simulation tick",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1},
	})

	playerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_player_count",
		Help: "Current number of players",
	})

	projectileCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_projectile_count",
		Help: "Current number of live projectiles",
	})

	pickupCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "arena_pickup_count",
		Help: "Current number of pickups on the field",
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "websocket_connections_active",
		Help: "Currently active websocket connections",
	})

	wsMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "websocket_messages_total",
		Help: "Total websocket frames written",
	})

	broadcastDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "broadcast_dropped_total",
		Help: "Frames dropped for slow clients by the backpressure guard",
	})

	connectionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "connection_rejected_total",
		Help: "Connections rejected before upgrade",
	}, []string{"reason"}) // Bounded: "total_limit", "ip_limit"
)

// RecordTick observes one tick's wall time.
func RecordTick(d time.Duration) {
	tickDuration.Observe(d.Seconds())
}

// UpdateWorldGauges refreshes entity gauges; called from the sim loop.
func UpdateWorldGauges(players, projectiles, pickups int) {
	playerCount.Set(float64(players))
	projectileCount.Set(float64(projectiles))
	pickupCount.Set(float64(pickups))
}

func updateWSConnections(count int) {
	wsConnectionsActive.Set(float64(count))
}

func recordWSMessage() {
	wsMessagesTotal.Inc()
}

func recordBroadcastDropped() {
	broadcastDroppedTotal.Inc()
}

func recordConnectionRejected(reason string) {
	connectionRejected.WithLabelValues(reason).Inc()
}

// ObservabilityConfig configures the debug server.
type ObservabilityConfig struct {
	Enabled    bool
	ListenAddr string // Keep on loopback in production
}

// DefaultObservabilityConfig returns safe defaults.
func DefaultObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		Enabled:    true,
		ListenAddr: "127.0.0.1:6060",
	}
}

// StartDebugServer starts the internal metrics/pprof server. Binds to
// loopback unless explicitly overridden via ALLOW_DEBUG_EXTERNAL.
func StartDebugServer(cfg ObservabilityConfig) {
	if !cfg.Enabled {
		log.Println("📊 debug server disabled")
		return
	}

	if cfg.ListenAddr != "127.0.0.1:6060" && cfg.ListenAddr != "localhost:6060" {
		if os.Getenv("ALLOW_DEBUG_EXTERNAL") != "true" {
			log.Println("⚠️ debug server forced to localhost")
			cfg.ListenAddr = "127.0.0.1:6060"
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	go func() {
		log.Printf("📊 debug server on %s (pprof, metrics)", cfg.ListenAddr)
		if err := http.ListenAndServe(cfg.ListenAddr, mux); err != nil {
			log.Printf("⚠️ debug server error: %v", err)
		}
	}()
}
