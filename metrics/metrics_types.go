package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds all controller metrics. Recording methods are no-ops on a
// nil *Registry so callers can run without metrics.
type Registry struct {
	// Topology Metrics
	TopologyNodesTotal   prometheus.Gauge
	TopologyLinksTotal   prometheus.Gauge
	LinkUtilization      *prometheus.GaugeVec
	LinkUtilizationRatio *prometheus.GaugeVec
	LinkAvailable        *prometheus.GaugeVec
	LinkStateChanges     *prometheus.CounterVec

	// Routing Metrics
	PathComputationsTotal *prometheus.CounterVec
	PathHops              prometheus.Histogram

	// Flow Metrics
	FlowsAdmittedTotal    *prometheus.CounterVec
	FlowsRejectedTotal    *prometheus.CounterVec
	FlowAdmissionDuration prometheus.Histogram
	ActiveFlows           prometheus.Gauge
	FlowTableEntries      prometheus.Gauge

	// API Metrics
	GRPCRequestsTotal   *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	TasksProcessedTotal *prometheus.CounterVec

	// Host Metrics
	HostCPUPercent    prometheus.Gauge
	HostMemoryPercent prometheus.Gauge
	HostLoad1         prometheus.Gauge

	registry *prometheus.Registry
}

var (
	defaultRegistry *Registry
	once            sync.Once
)

// DefaultRegistry returns the process-wide metrics registry
func DefaultRegistry() *Registry {
	once.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// NewRegistry creates a registry with all metrics initialized
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
	}

	r.initTopologyMetrics()
	r.initRoutingMetrics()
	r.initFlowMetrics()
	r.initAPIMetrics()
	r.initHostMetrics()

	return r
}

func (r *Registry) GetPrometheusRegistry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
