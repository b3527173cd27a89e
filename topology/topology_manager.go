package topology

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// TopologyManager stores the switch/host graph with per-link bandwidth,
// cumulative utilization and availability
type TopologyManager struct {
	nodes     map[string]*Node
	nodeOrder []string
	adjacency map[string][]string // neighbours in link insertion order
	links     map[LinkKey]*Link
	linkOrder []LinkKey
	mutex     sync.RWMutex
}

func NewTopologyManager() *TopologyManager {
	return &TopologyManager{
		nodes:     make(map[string]*Node),
		adjacency: make(map[string][]string),
		links:     make(map[LinkKey]*Link),
	}
}

// AddNode registers a node or overwrites the type of an existing one
func (tm *TopologyManager) AddNode(id string, nodeType NodeType) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.upsertNode(id, nodeType, true)
	log.Infof("AddNode: id=%s, type=%s", id, nodeType)
}

// upsertNode is shared by AddNode and AddLink. With overwrite false an existing
// node keeps its type. Caller holds the write lock.
func (tm *TopologyManager) upsertNode(id string, nodeType NodeType, overwrite bool) {
	if node, exists := tm.nodes[id]; exists {
		if overwrite {
			node.Type = nodeType
		}
		return
	}
	tm.nodes[id] = &Node{ID: id, Type: nodeType}
	tm.nodeOrder = append(tm.nodeOrder, id)
}

// AddLink creates or overwrites the link between a and b. Utilization is reset
// and the link is marked available. Missing endpoints are created as switches.
func (tm *TopologyManager) AddLink(a, b string, bandwidth float64) {
	if a == b {
		log.Warnf("AddLink: ignoring self-loop on %s", a)
		return
	}

	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	tm.upsertNode(a, NodeTypeSwitch, false)
	tm.upsertNode(b, NodeTypeSwitch, false)

	key := NewLinkKey(a, b)
	if link, exists := tm.links[key]; exists {
		link.Bandwidth = bandwidth
		link.Utilization = 0
		link.Available = true
		log.Infof("AddLink: overwrote %s-%s, bandwidth=%.2f", link.A, link.B, bandwidth)
		return
	}

	tm.links[key] = &Link{A: a, B: b, Bandwidth: bandwidth, Available: true}
	tm.linkOrder = append(tm.linkOrder, key)
	tm.adjacency[a] = append(tm.adjacency[a], b)
	tm.adjacency[b] = append(tm.adjacency[b], a)
	log.Infof("AddLink: %s-%s, bandwidth=%.2f", a, b, bandwidth)
}

// RemoveLink marks a link as failed. Unknown links are ignored; the return
// value only reports whether the link exists.
func (tm *TopologyManager) RemoveLink(a, b string) bool {
	return tm.setAvailable(a, b, false)
}

// RestoreLink marks a failed link as available again. Unknown links are ignored.
func (tm *TopologyManager) RestoreLink(a, b string) bool {
	return tm.setAvailable(a, b, true)
}

func (tm *TopologyManager) setAvailable(a, b string, available bool) bool {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	link, exists := tm.links[NewLinkKey(a, b)]
	if !exists {
		log.Debugf("setAvailable: no link %s-%s, nothing to do", a, b)
		return false
	}
	link.Available = available
	log.Infof("setAvailable: link %s-%s, available=%v", link.A, link.B, available)
	return true
}

// AddUtilization adds amount to every link along path. Pairs that are not
// linked are skipped.
func (tm *TopologyManager) AddUtilization(path []string, amount float64) {
	tm.mutex.Lock()
	defer tm.mutex.Unlock()

	for i := 0; i < len(path)-1; i++ {
		link, exists := tm.links[NewLinkKey(path[i], path[i+1])]
		if !exists {
			log.Warnf("AddUtilization: no link %s-%s on path %v", path[i], path[i+1], path)
			continue
		}
		link.Utilization += amount
	}
}

// PathUtilization sums the utilization of the links along path
func (tm *TopologyManager) PathUtilization(path []string) float64 {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	var total float64
	for i := 0; i < len(path)-1; i++ {
		if link, exists := tm.links[NewLinkKey(path[i], path[i+1])]; exists {
			total += link.Utilization
		}
	}
	return total
}

// LiveSubgraph returns a fresh copy of the topology restricted to available
// links and the nodes they touch
func (tm *TopologyManager) LiveSubgraph() *Snapshot {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	snapshot := newSnapshot()
	for _, id := range tm.nodeOrder {
		neighbors := make([]string, 0, len(tm.adjacency[id]))
		for _, neighbor := range tm.adjacency[id] {
			link := tm.links[NewLinkKey(id, neighbor)]
			if link == nil || !link.Available {
				continue
			}
			neighbors = append(neighbors, neighbor)
		}
		if len(neighbors) == 0 {
			continue
		}
		snapshot.addNode(id, neighbors)
	}
	for _, key := range tm.linkOrder {
		link := tm.links[key]
		if link.Available {
			snapshot.utilization[key] = link.Utilization
		}
	}
	return snapshot
}

// Nodes returns all registered nodes in registration order
func (tm *TopologyManager) Nodes() []Node {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	nodes := make([]Node, 0, len(tm.nodeOrder))
	for _, id := range tm.nodeOrder {
		nodes = append(nodes, *tm.nodes[id])
	}
	return nodes
}

// Node returns a copy of the node with the given id
func (tm *TopologyManager) Node(id string) (Node, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	node, exists := tm.nodes[id]
	if !exists {
		return Node{}, false
	}
	return *node, true
}

// Links returns copies of all links in insertion order
func (tm *TopologyManager) Links() []Link {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	links := make([]Link, 0, len(tm.linkOrder))
	for _, key := range tm.linkOrder {
		links = append(links, *tm.links[key])
	}
	return links
}

// Link returns a copy of the link between a and b in either order
func (tm *TopologyManager) Link(a, b string) (Link, bool) {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()

	link, exists := tm.links[NewLinkKey(a, b)]
	if !exists {
		return Link{}, false
	}
	return *link, true
}

func (tm *TopologyManager) NodeCount() int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return len(tm.nodes)
}

func (tm *TopologyManager) LinkCount() int {
	tm.mutex.RLock()
	defer tm.mutex.RUnlock()
	return len(tm.links)
}
