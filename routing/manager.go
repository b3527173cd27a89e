package routing

import (
	"fmt"

	"sdncontrol/routing/all_shortest"
	"sdncontrol/routing/policy"
	"sdncontrol/topology"

	log "github.com/sirupsen/logrus"
)

// PriorityClass groups flow priorities that share a selection policy
type PriorityClass int

const (
	PriorityNormal   PriorityClass = iota // 0: load balancing over equal-cost paths
	PriorityHigh                          // 1: least utilized single path
	PriorityCritical                      // >1: least utilized path plus a backup
)

func (c PriorityClass) String() string {
	switch c {
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func ClassOf(priority int) PriorityClass {
	switch {
	case priority > 1:
		return PriorityCritical
	case priority == 1:
		return PriorityHigh
	default:
		return PriorityNormal
	}
}

// PathComputer turns a live topology snapshot into candidate routes
type PathComputer struct {
	routeSelectors     map[PriorityClass]policy.PathSelector
	admissionSelectors map[PriorityClass]policy.PathSelector
}

// NewPathComputer wires the registered policies to priority classes.
// loadBalancePaths caps the number of paths returned for normal priority.
func NewPathComputer(loadBalancePaths int) (*PathComputer, error) {
	leastUtilized, err := policy.GetGlobal(policy.LeastUtilized)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s policy: %w", policy.LeastUtilized, err)
	}
	protected, err := policy.GetGlobal(policy.Protected)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s policy: %w", policy.Protected, err)
	}

	var loadBalance policy.PathSelector
	if loadBalancePaths <= 0 || loadBalancePaths == policy.DefaultLoadBalancePaths {
		loadBalance, err = policy.GetGlobal(policy.LoadBalance)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s policy: %w", policy.LoadBalance, err)
		}
	} else {
		loadBalance = policy.NewLoadBalanceSelector(loadBalancePaths)
	}

	log.Infof("NewPathComputer: normal=%s, high=%s, critical=%s (admission %s), loadBalancePaths=%d",
		policy.LoadBalance, policy.LeastUtilized, policy.LeastUtilized, policy.Protected, loadBalancePaths)

	return &PathComputer{
		routeSelectors: map[PriorityClass]policy.PathSelector{
			PriorityNormal:   loadBalance,
			PriorityHigh:     leastUtilized,
			PriorityCritical: leastUtilized,
		},
		admissionSelectors: map[PriorityClass]policy.PathSelector{
			PriorityNormal:   loadBalance,
			PriorityHigh:     leastUtilized,
			PriorityCritical: protected,
		},
	}, nil
}

// ComputePaths returns the routes for a flow of the given priority.
// Any priority above 0 gets exactly one path, the least utilized among the
// hop-count shortest ones. Priority 0 gets the first equal-cost paths in
// search order. An empty result means no route exists in the snapshot.
func (pc *PathComputer) ComputePaths(snapshot *topology.Snapshot, src, dst string, priority int) [][]string {
	return pc.selectPaths(pc.routeSelectors, snapshot, src, dst, priority)
}

// Candidates is what flow admission consumes. It matches ComputePaths except
// for critical priority, where a backup path follows the primary one.
func (pc *PathComputer) Candidates(snapshot *topology.Snapshot, src, dst string, priority int) [][]string {
	return pc.selectPaths(pc.admissionSelectors, snapshot, src, dst, priority)
}

func (pc *PathComputer) selectPaths(selectors map[PriorityClass]policy.PathSelector,
	snapshot *topology.Snapshot, src, dst string, priority int) [][]string {

	class := ClassOf(priority)
	selector := selectors[class]

	limit := 0
	if limiter, ok := selector.(policy.PathLimiter); ok {
		limit = limiter.PathLimit()
	}

	shortest := all_shortest.ShortestPaths(snapshot, src, dst, limit)
	if len(shortest) == 0 {
		log.Debugf("selectPaths: no path %s->%s in live subgraph (nodes=%d, links=%d)",
			src, dst, len(snapshot.Nodes()), snapshot.LinkCount())
		return nil
	}

	selected := selector.SelectPaths(snapshot, shortest)

	log.Debugf("selectPaths: %s->%s, priority=%d (%s), %d shortest, %d selected, hops=%d",
		src, dst, priority, class, len(shortest), len(selected), all_shortest.HopCount(shortest[0]))

	return clonePaths(selected)
}

func clonePaths(paths [][]string) [][]string {
	cloned := make([][]string, len(paths))
	for i, p := range paths {
		cloned[i] = append([]string(nil), p...)
	}
	return cloned
}
