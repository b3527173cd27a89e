package routing

import (
	"sync"

	"sdncontrol/topology"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
)

// RoutePair is a source/destination pair to preview
type RoutePair struct {
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// RoutePreview holds the paths ComputePaths would return for a pair
type RoutePreview struct {
	Src   string     `json:"src"`
	Dst   string     `json:"dst"`
	Paths [][]string `json:"paths"`
}

// HostPairs lists every ordered pair of distinct hosts
func HostPairs(nodes []topology.Node) []RoutePair {
	return NodePairs(nodes, topology.NodeTypeHost)
}

// NodePairs lists every ordered pair of distinct nodes of nodeType. An empty
// nodeType pairs all nodes, which suits topologies built without host types.
func NodePairs(nodes []topology.Node, nodeType topology.NodeType) []RoutePair {
	var ids []string
	for _, node := range nodes {
		if nodeType == "" || node.Type == nodeType {
			ids = append(ids, node.ID)
		}
	}
	if len(ids) < 2 {
		return nil
	}

	pairs := make([]RoutePair, 0, len(ids)*(len(ids)-1))
	for _, src := range ids {
		for _, dst := range ids {
			if src != dst {
				pairs = append(pairs, RoutePair{Src: src, Dst: dst})
			}
		}
	}
	return pairs
}

// PreviewRoutes computes routes for every pair on one snapshot, spreading the
// work over pool. With a nil pool, or when a task cannot be submitted, the
// pair is computed on the calling goroutine. Results keep the order of pairs.
func (pc *PathComputer) PreviewRoutes(pool *ants.Pool, snapshot *topology.Snapshot,
	pairs []RoutePair, priority int) []RoutePreview {

	previews := make([]RoutePreview, len(pairs))
	compute := func(i int) {
		pair := pairs[i]
		previews[i] = RoutePreview{
			Src:   pair.Src,
			Dst:   pair.Dst,
			Paths: pc.ComputePaths(snapshot, pair.Src, pair.Dst, priority),
		}
	}

	if pool == nil {
		for i := range pairs {
			compute(i)
		}
		return previews
	}

	var wg sync.WaitGroup
	for i := range pairs {
		wg.Add(1)
		index := i
		err := pool.Submit(func() {
			defer wg.Done()
			compute(index)
		})
		if err != nil {
			log.Warnf("PreviewRoutes: failed to submit %s->%s: %v, computing inline",
				pairs[index].Src, pairs[index].Dst, err)
			compute(index)
			wg.Done()
		}
	}
	wg.Wait()

	log.Debugf("PreviewRoutes: computed %d pairs, priority=%d", len(pairs), priority)
	return previews
}
