package coordinator

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics tracks directory state and control-plane activity.
type Metrics struct {
	NodesRegistered prometheus.Gauge
	NodesOnline     prometheus.Gauge
	FilesTracked    prometheus.Gauge
	FilesVisible    prometheus.Gauge

	OfflineTransitions *prometheus.CounterVec // by reason: timeout, signoff
	FilesEvicted       prometheus.Counter
	ReaperPasses       prometheus.Counter

	FanoutNotifications *prometheus.CounterVec // by result: delivered, failed
	FanoutDuration      prometheus.Histogram

	RPCRequests *prometheus.CounterVec // by method
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		NodesRegistered: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vmstore_nodes_registered",
			Help: "Number of node records known to the directory",
		}),
		NodesOnline: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vmstore_nodes_online",
			Help: "Number of nodes currently online",
		}),
		FilesTracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vmstore_files_tracked",
			Help: "Number of file entries held by the directory, visible or not",
		}),
		FilesVisible: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vmstore_files_visible",
			Help: "Number of files with at least one online owner",
		}),
		OfflineTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vmstore_offline_transitions_total",
			Help: "Node transitions to offline",
		}, []string{"reason"}),
		FilesEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "vmstore_files_evicted_total",
			Help: "File entries evicted because no owner was online",
		}),
		ReaperPasses: factory.NewCounter(prometheus.CounterOpts{
			Name: "vmstore_reaper_passes_total",
			Help: "Completed liveness reaper passes",
		}),
		FanoutNotifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vmstore_fanout_notifications_total",
			Help: "Duplicate notifications sent to peers",
		}, []string{"result"}),
		FanoutDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vmstore_fanout_duration_seconds",
			Help:    "Wall time of one announcement fan-out",
			Buckets: prometheus.DefBuckets,
		}),
		RPCRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vmstore_rpc_requests_total",
			Help: "Directory RPCs received",
		}, []string{"method"}),
	}
}

// MetricsHandler serves the given registry in the Prometheus text format.
func MetricsHandler(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}
