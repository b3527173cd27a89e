package http_api

import (
	"net/http"
	"strconv"

	"sdncontrol/collector"
	"sdncontrol/controller"
	"sdncontrol/flow_admission"
	"sdncontrol/flow_table"
	"sdncontrol/routing"
	"sdncontrol/topology"

	"github.com/gin-gonic/gin"
)

// Reader is the read-only controller surface served over HTTP
type Reader interface {
	Nodes() []topology.Node
	Links() []topology.Link
	ActiveFlows() []flow_admission.ActiveFlow
	Flow(id string) (flow_admission.ActiveFlow, bool)
	FlowTable() map[string]map[string]flow_table.Action
	SwitchFlowTable(switchID string) map[string]flow_table.Action
	ComputePaths(src, dst string, priority int) [][]string
	PreviewRoutes(priority int, nodeType topology.NodeType) []routing.RoutePreview
	Stats() controller.Stats
}

// HostStatusSource provides the latest controller host sample
type HostStatusSource interface {
	Latest() (collector.HostStatus, bool)
}

type Handler struct {
	core   Reader
	status HostStatusSource
}

// NewHandler builds the handler; status may be nil
func NewHandler(core Reader, status HostStatusSource) *Handler {
	return &Handler{core: core, status: status}
}

func parsePriority(c *gin.Context) (int, bool) {
	raw := c.DefaultQuery("priority", "0")
	priority, err := strconv.Atoi(raw)
	if err != nil || priority < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "priority must be a non-negative integer"})
		return 0, false
	}
	return priority, true
}

func (h *Handler) listNodes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "nodes": h.core.Nodes()})
}

type linkView struct {
	topology.Link
	UtilizationRatio float64 `json:"utilization_ratio"`
}

func (h *Handler) listLinks(c *gin.Context) {
	links := h.core.Links()
	views := make([]linkView, 0, len(links))
	for _, link := range links {
		views = append(views, linkView{Link: link, UtilizationRatio: link.UtilizationRatio()})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "links": views})
}

func (h *Handler) listFlows(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "flows": h.core.ActiveFlows()})
}

func (h *Handler) getFlow(c *gin.Context) {
	flow, ok := h.core.Flow(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "flow not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "flow": flow})
}

func (h *Handler) listFlowTables(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "flow_tables": h.core.FlowTable()})
}

func (h *Handler) getFlowTable(c *gin.Context) {
	switchID := c.Param("switch")
	c.JSON(http.StatusOK, gin.H{"ok": true, "switch": switchID, "entries": h.core.SwitchFlowTable(switchID)})
}

func (h *Handler) computePaths(c *gin.Context) {
	src, dst := c.Query("src"), c.Query("dst")
	if src == "" || dst == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "src and dst are required"})
		return
	}
	priority, ok := parsePriority(c)
	if !ok {
		return
	}

	paths := h.core.ComputePaths(src, dst, priority)
	if paths == nil {
		paths = [][]string{}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "src": src, "dst": dst, "priority": priority, "paths": paths})
}

// previewRoutes pairs hosts by default. Topologies whose endpoints were added
// without a type hold only switches, so ?nodes=switch or ?nodes=all selects
// the node set.
func (h *Handler) previewRoutes(c *gin.Context) {
	priority, ok := parsePriority(c)
	if !ok {
		return
	}

	nodes := c.DefaultQuery("nodes", string(topology.NodeTypeHost))
	var nodeType topology.NodeType
	switch nodes {
	case string(topology.NodeTypeHost), string(topology.NodeTypeSwitch):
		nodeType = topology.NodeType(nodes)
	case "all":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "nodes must be host, switch or all"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "priority": priority, "nodes": nodes,
		"routes": h.core.PreviewRoutes(priority, nodeType)})
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "status": "serving"})
}

func (h *Handler) hostStatus(c *gin.Context) {
	response := gin.H{"ok": true, "controller": h.core.Stats()}
	if h.status != nil {
		if status, ok := h.status.Latest(); ok {
			response["host"] = status
		}
	}
	c.JSON(http.StatusOK, response)
}
