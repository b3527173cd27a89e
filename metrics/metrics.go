package metrics

import (
	"fmt"
	"time"
)

// LinkLabel names a link by its endpoints as stored
func LinkLabel(a, b string) string {
	return fmt.Sprintf("%s-%s", a, b)
}

// UpdateTopology sets node and link totals
func (r *Registry) UpdateTopology(nodes, links int) {
	if r == nil {
		return
	}
	r.TopologyNodesTotal.Set(float64(nodes))
	r.TopologyLinksTotal.Set(float64(links))
}

// RecordLink publishes the current state of one link
func (r *Registry) RecordLink(a, b string, bandwidth, utilization float64, available bool) {
	if r == nil {
		return
	}
	label := LinkLabel(a, b)
	r.LinkUtilization.WithLabelValues(label).Set(utilization)
	if bandwidth > 0 {
		r.LinkUtilizationRatio.WithLabelValues(label).Set(utilization / bandwidth)
	} else {
		r.LinkUtilizationRatio.WithLabelValues(label).Set(0)
	}
	if available {
		r.LinkAvailable.WithLabelValues(label).Set(1)
	} else {
		r.LinkAvailable.WithLabelValues(label).Set(0)
	}
}

// RecordLinkStateChange counts a fail or restore request
func (r *Registry) RecordLinkStateChange(action string) {
	if r == nil {
		return
	}
	r.LinkStateChanges.WithLabelValues(action).Inc()
}

// RecordPathComputation counts a path query; found is false for "no path"
func (r *Registry) RecordPathComputation(class string, found bool) {
	if r == nil {
		return
	}
	result := "found"
	if !found {
		result = "no_path"
	}
	r.PathComputationsTotal.WithLabelValues(class, result).Inc()
}

// RecordFlowAdmitted records an admitted flow and its primary path length
func (r *Registry) RecordFlowAdmitted(class string, hops int, duration time.Duration) {
	if r == nil {
		return
	}
	r.FlowsAdmittedTotal.WithLabelValues(class).Inc()
	r.PathHops.Observe(float64(hops))
	r.FlowAdmissionDuration.Observe(duration.Seconds())
}

// RecordFlowRejected records a refused flow request
func (r *Registry) RecordFlowRejected(reason string, duration time.Duration) {
	if r == nil {
		return
	}
	r.FlowsRejectedTotal.WithLabelValues(reason).Inc()
	r.FlowAdmissionDuration.Observe(duration.Seconds())
}

// UpdateFlowState sets the active flow and flow table gauges
func (r *Registry) UpdateFlowState(activeFlows, flowTableEntries int) {
	if r == nil {
		return
	}
	r.ActiveFlows.Set(float64(activeFlows))
	r.FlowTableEntries.Set(float64(flowTableEntries))
}

// RecordGRPCRequest counts a unary gRPC call
func (r *Registry) RecordGRPCRequest(method, code string) {
	if r == nil {
		return
	}
	r.GRPCRequestsTotal.WithLabelValues(method, code).Inc()
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordTask counts a processed etcd task
func (r *Registry) RecordTask(taskType, status string) {
	if r == nil {
		return
	}
	r.TasksProcessedTotal.WithLabelValues(taskType, status).Inc()
}

// UpdateHostStatus publishes controller host resource usage
func (r *Registry) UpdateHostStatus(cpuPercent, memoryPercent, load1 float64) {
	if r == nil {
		return
	}
	r.HostCPUPercent.Set(cpuPercent)
	r.HostMemoryPercent.Set(memoryPercent)
	r.HostLoad1.Set(load1)
}
