package controller

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"sdncontrol/flow_admission"
	"sdncontrol/flow_table"
	"sdncontrol/metrics"
	"sdncontrol/routing"
	"sdncontrol/topology"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultFlowBandwidth = 10.0
	DefaultPriority      = 0
)

var ErrInvalidBandwidth = errors.New("flow bandwidth must not be negative")

// Options tunes a Controller. Zero values pick the defaults.
type Options struct {
	LinkBandwidth    float64
	FlowBandwidth    float64
	LoadBalancePaths int
	Metrics          *metrics.Registry
	Pool             *ants.Pool
}

// Controller owns the topology, flow tables and active flows. Mutations take
// the exclusive lock so path computation and admission see one consistent
// topology; queries take the shared lock and return copies.
type Controller struct {
	topology  *topology.TopologyManager
	paths     *routing.PathComputer
	flowTable *flow_table.FlowTable
	flows     *flow_admission.ActiveFlows
	admitter  *flow_admission.Admitter

	linkBandwidth float64
	flowBandwidth float64
	metrics       *metrics.Registry
	pool          *ants.Pool

	mutex sync.RWMutex
}

func NewController(opts Options) (*Controller, error) {
	paths, err := routing.NewPathComputer(opts.LoadBalancePaths)
	if err != nil {
		return nil, fmt.Errorf("failed to create path computer: %w", err)
	}

	linkBandwidth := opts.LinkBandwidth
	if linkBandwidth <= 0 {
		linkBandwidth = topology.DefaultLinkBandwidth
	}
	flowBandwidth := opts.FlowBandwidth
	if flowBandwidth <= 0 {
		flowBandwidth = DefaultFlowBandwidth
	}

	tm := topology.NewTopologyManager()
	ft := flow_table.NewFlowTable()
	flows := flow_admission.NewActiveFlows()

	c := &Controller{
		topology:      tm,
		paths:         paths,
		flowTable:     ft,
		flows:         flows,
		admitter:      flow_admission.NewAdmitter(paths, tm, ft, flows),
		linkBandwidth: linkBandwidth,
		flowBandwidth: flowBandwidth,
		metrics:       opts.Metrics,
		pool:          opts.Pool,
	}

	log.Infof("NewController: linkBandwidth=%.2f, flowBandwidth=%.2f, metrics=%v, pool=%v",
		linkBandwidth, flowBandwidth, opts.Metrics != nil, opts.Pool != nil)
	return c, nil
}

func (c *Controller) DefaultLinkBandwidth() float64 { return c.linkBandwidth }

func (c *Controller) DefaultFlowBandwidth() float64 { return c.flowBandwidth }

func (c *Controller) AddNode(id string, nodeType topology.NodeType) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.topology.AddNode(id, nodeType)
	c.metrics.UpdateTopology(c.topology.NodeCount(), c.topology.LinkCount())
}

// AddLink creates or overwrites a link. A non-positive bandwidth uses the
// configured default.
func (c *Controller) AddLink(a, b string, bandwidth float64) {
	if bandwidth <= 0 {
		bandwidth = c.linkBandwidth
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.topology.AddLink(a, b, bandwidth)
	c.metrics.UpdateTopology(c.topology.NodeCount(), c.topology.LinkCount())
	c.recordLink(a, b)
}

// RemoveLink marks a link as failed; unknown links are ignored
func (c *Controller) RemoveLink(a, b string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.metrics.RecordLinkStateChange("fail")
	if c.topology.RemoveLink(a, b) {
		c.recordLink(a, b)
	}
}

// RestoreLink marks a link as available again; unknown links are ignored
func (c *Controller) RestoreLink(a, b string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.metrics.RecordLinkStateChange("restore")
	if c.topology.RestoreLink(a, b) {
		c.recordLink(a, b)
	}
}

// LoadTopology applies a topology description in one step
func (c *Controller) LoadTopology(desc *topology.Description) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	desc.Apply(c.topology, c.linkBandwidth)
	c.metrics.UpdateTopology(c.topology.NodeCount(), c.topology.LinkCount())
	for _, link := range c.topology.Links() {
		c.metrics.RecordLink(link.A, link.B, link.Bandwidth, link.Utilization, link.Available)
	}
}

// ComputePaths returns routes over the current live topology without
// admitting anything. An empty result means no path.
func (c *Controller) ComputePaths(src, dst string, priority int) [][]string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	paths := c.paths.ComputePaths(c.topology.LiveSubgraph(), src, dst, priority)
	c.metrics.RecordPathComputation(routing.ClassOf(priority).String(), len(paths) > 0)
	return paths
}

// InjectFlow routes and installs a flow and returns its id. The bandwidth is
// charged as given; callers without one pass DefaultFlowBandwidth().
// flow_admission.ErrNoPathAvailable is returned when src and dst are
// disconnected and ErrInvalidBandwidth for a negative bandwidth. Nothing is
// changed in either case.
func (c *Controller) InjectFlow(src, dst string, priority int, bandwidth float64) (string, error) {
	flow, err := c.Admit(src, dst, priority, bandwidth)
	if err != nil {
		return "", err
	}
	return flow.ID, nil
}

// Admit is InjectFlow returning the whole flow record
func (c *Controller) Admit(src, dst string, priority int, bandwidth float64) (flow_admission.ActiveFlow, error) {
	if bandwidth < 0 {
		return flow_admission.ActiveFlow{}, fmt.Errorf("%w: %.2f", ErrInvalidBandwidth, bandwidth)
	}
	start := time.Now()
	class := routing.ClassOf(priority).String()

	c.mutex.Lock()
	defer c.mutex.Unlock()

	flow, err := c.admitter.Admit(c.topology.LiveSubgraph(), flow_admission.FlowRequest{
		Src:       src,
		Dst:       dst,
		Priority:  priority,
		Bandwidth: bandwidth,
	})
	if err != nil {
		if errors.Is(err, flow_admission.ErrNoPathAvailable) {
			c.metrics.RecordPathComputation(class, false)
			c.metrics.RecordFlowRejected("no_path", time.Since(start))
		}
		return flow_admission.ActiveFlow{}, err
	}

	c.metrics.RecordPathComputation(class, true)
	c.metrics.RecordFlowAdmitted(class, len(flow.PrimaryPath)-1, time.Since(start))
	c.metrics.UpdateFlowState(c.flows.Len(), c.flowTable.EntryCount())
	for i := 0; i+1 < len(flow.PrimaryPath); i++ {
		c.recordLink(flow.PrimaryPath[i], flow.PrimaryPath[i+1])
	}
	return flow, nil
}

// recordLink publishes one link to metrics. Caller holds the lock.
func (c *Controller) recordLink(a, b string) {
	if c.metrics == nil {
		return
	}
	if link, exists := c.topology.Link(a, b); exists {
		c.metrics.RecordLink(link.A, link.B, link.Bandwidth, link.Utilization, link.Available)
	}
}

func (c *Controller) Nodes() []topology.Node {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.topology.Nodes()
}

func (c *Controller) Node(id string) (topology.Node, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.topology.Node(id)
}

func (c *Controller) Links() []topology.Link {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.topology.Links()
}

func (c *Controller) Link(a, b string) (topology.Link, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.topology.Link(a, b)
}

// ActiveFlows returns all admitted flows in admission order
func (c *Controller) ActiveFlows() []flow_admission.ActiveFlow {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.flows.List()
}

func (c *Controller) Flow(id string) (flow_admission.ActiveFlow, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.flows.Get(id)
}

// FlowTable returns a copy of every installed entry, keyed by switch then flow
func (c *Controller) FlowTable() map[string]map[string]flow_table.Action {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.flowTable.Dump()
}

// SwitchFlowTable returns the entries installed on one switch
func (c *Controller) SwitchFlowTable(switchID string) map[string]flow_table.Action {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.flowTable.Lookup(switchID)
}

// Snapshot returns the live subgraph as it is now
func (c *Controller) Snapshot() *topology.Snapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.topology.LiveSubgraph()
}

// PreviewRoutes computes routes between every pair of nodes of nodeType on one
// snapshot. An empty nodeType covers all nodes.
func (c *Controller) PreviewRoutes(priority int, nodeType topology.NodeType) []routing.RoutePreview {
	c.mutex.RLock()
	snapshot := c.topology.LiveSubgraph()
	pairs := routing.NodePairs(c.topology.Nodes(), nodeType)
	c.mutex.RUnlock()

	return c.paths.PreviewRoutes(c.pool, snapshot, pairs, priority)
}

// Stats summarizes controller state
type Stats struct {
	Nodes            int `json:"nodes"`
	Links            int `json:"links"`
	LiveLinks        int `json:"live_links"`
	ActiveFlows      int `json:"active_flows"`
	FlowTableEntries int `json:"flow_table_entries"`
}

func (c *Controller) Stats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return Stats{
		Nodes:            c.topology.NodeCount(),
		Links:            c.topology.LinkCount(),
		LiveLinks:        c.topology.LiveSubgraph().LinkCount(),
		ActiveFlows:      c.flows.Len(),
		FlowTableEntries: c.flowTable.EntryCount(),
	}
}
