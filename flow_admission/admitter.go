package flow_admission

import (
	"errors"
	"fmt"
	"time"

	"sdncontrol/flow_table"
	"sdncontrol/topology"

	log "github.com/sirupsen/logrus"
)

// ErrNoPathAvailable means src and dst are disconnected in the live topology
var ErrNoPathAvailable = errors.New("no path available")

type FlowRequest struct {
	Src       string
	Dst       string
	Priority  int
	Bandwidth float64
}

// CandidateSource yields the ordered candidate paths for a request.
// The first path is the primary one.
type CandidateSource interface {
	Candidates(snapshot *topology.Snapshot, src, dst string, priority int) [][]string
}

// UtilizationRecorder receives the bandwidth consumed along a primary path
type UtilizationRecorder interface {
	AddUtilization(path []string, amount float64)
}

// Admitter installs flows: it charges the primary path, writes flow table
// entries and records the flow. It is not safe for concurrent Admit calls on
// its own; callers serialize admission.
type Admitter struct {
	paths     CandidateSource
	links     UtilizationRecorder
	flowTable *flow_table.FlowTable
	flows     *ActiveFlows
	now       func() time.Time
}

func NewAdmitter(paths CandidateSource, links UtilizationRecorder,
	flowTable *flow_table.FlowTable, flows *ActiveFlows) *Admitter {
	return &Admitter{
		paths:     paths,
		links:     links,
		flowTable: flowTable,
		flows:     flows,
		now:       time.Now,
	}
}

// FlowID formats the identifier of the n-th admitted flow
func FlowID(src, dst string, n int) string {
	return fmt.Sprintf("%s-%s-%d", src, dst, n)
}

// Admit routes req over snapshot. On ErrNoPathAvailable nothing is mutated.
func (a *Admitter) Admit(snapshot *topology.Snapshot, req FlowRequest) (ActiveFlow, error) {
	candidates := a.paths.Candidates(snapshot, req.Src, req.Dst, req.Priority)
	if len(candidates) == 0 {
		log.Warnf("Admit: no path %s->%s, priority=%d", req.Src, req.Dst, req.Priority)
		return ActiveFlow{}, fmt.Errorf("%w: %s -> %s", ErrNoPathAvailable, req.Src, req.Dst)
	}

	primary := candidates[0]
	var backup []string
	if req.Priority > 1 && len(candidates) > 1 {
		backup = candidates[1]
	}

	// Only the primary path consumes capacity.
	a.links.AddUtilization(primary, req.Bandwidth)

	flowID := FlowID(req.Src, req.Dst, a.flows.Len())

	installed := a.flowTable.InstallInterior(flowID, primary)
	if backup != nil {
		installed = append(installed, a.flowTable.InstallInterior(flowID, backup)...)
	}

	flow := ActiveFlow{
		ID:          flowID,
		Src:         req.Src,
		Dst:         req.Dst,
		PrimaryPath: primary,
		BackupPath:  backup,
		Bandwidth:   req.Bandwidth,
		Priority:    req.Priority,
		CreatedAt:   a.now(),
	}
	a.flows.Append(flow)

	log.Infof("Admit: flow=%s, primary=%v, backup=%v, bandwidth=%.2f, entries=%v",
		flowID, primary, backup, req.Bandwidth, installed)
	return flow.clone(), nil
}
