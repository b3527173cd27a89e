package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initTopologyMetrics() {
	r.TopologyNodesTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sdn_topology_nodes_total",
			Help: "Number of registered nodes",
		},
	)

	r.TopologyLinksTotal = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sdn_topology_links_total",
			Help: "Number of links, available or not",
		},
	)

	r.LinkUtilization = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sdn_link_utilization",
			Help: "Cumulative bandwidth assigned to a link",
		},
		[]string{"link"},
	)

	r.LinkUtilizationRatio = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sdn_link_utilization_ratio",
			Help: "Link utilization divided by declared bandwidth",
		},
		[]string{"link"},
	)

	r.LinkAvailable = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sdn_link_available",
			Help: "1 when the link is available, 0 when failed",
		},
		[]string{"link"},
	)

	r.LinkStateChanges = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdn_link_state_changes_total",
			Help: "Link fail/restore requests",
		},
		[]string{"action"},
	)
}

func (r *Registry) initRoutingMetrics() {
	r.PathComputationsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdn_path_computations_total",
			Help: "Path computations by priority class and result",
		},
		[]string{"class", "result"},
	)

	r.PathHops = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sdn_path_hops",
			Help:    "Hop count of admitted primary paths",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10, 15, 20},
		},
	)
}

func (r *Registry) initFlowMetrics() {
	r.FlowsAdmittedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdn_flows_admitted_total",
			Help: "Admitted flows by priority class",
		},
		[]string{"class"},
	)

	r.FlowsRejectedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdn_flows_rejected_total",
			Help: "Rejected flow requests by reason",
		},
		[]string{"reason"},
	)

	r.FlowAdmissionDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sdn_flow_admission_duration_seconds",
			Help:    "Time spent admitting a flow, path computation included",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	r.ActiveFlows = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sdn_active_flows",
			Help: "Number of active flows",
		},
	)

	r.FlowTableEntries = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sdn_flow_table_entries",
			Help: "Flow table entries over all switches",
		},
	)
}

func (r *Registry) initAPIMetrics() {
	r.GRPCRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdn_grpc_requests_total",
			Help: "gRPC requests by method and status code",
		},
		[]string{"method", "code"},
	)

	r.HTTPRequestsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdn_http_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "path", "status"},
	)

	r.HTTPRequestDuration = promauto.With(r.registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sdn_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	r.TasksProcessedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "sdn_tasks_processed_total",
			Help: "etcd tasks by type and final status",
		},
		[]string{"type", "status"},
	)
}

func (r *Registry) initHostMetrics() {
	r.HostCPUPercent = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sdn_host_cpu_percent",
			Help: "Controller host CPU usage",
		},
	)

	r.HostMemoryPercent = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sdn_host_memory_percent",
			Help: "Controller host memory usage",
		},
	)

	r.HostLoad1 = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "sdn_host_load1",
			Help: "Controller host one minute load average",
		},
	)
}
