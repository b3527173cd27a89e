package topology

// Snapshot is an immutable view of the live (available-links-only) subgraph.
// It is safe to share between goroutines once built.
type Snapshot struct {
	nodes       []string
	adjacency   map[string][]string
	utilization map[LinkKey]float64
}

func newSnapshot() *Snapshot {
	return &Snapshot{
		adjacency:   make(map[string][]string),
		utilization: make(map[LinkKey]float64),
	}
}

func (s *Snapshot) addNode(id string, neighbors []string) {
	s.nodes = append(s.nodes, id)
	s.adjacency[id] = neighbors
}

// HasNode reports whether id touches at least one available link
func (s *Snapshot) HasNode(id string) bool {
	_, exists := s.adjacency[id]
	return exists
}

// Neighbors returns the live neighbours of id in insertion order.
// The returned slice must not be modified.
func (s *Snapshot) Neighbors(id string) []string {
	return s.adjacency[id]
}

// Nodes returns the ids of live nodes in registration order
func (s *Snapshot) Nodes() []string {
	nodes := make([]string, len(s.nodes))
	copy(nodes, s.nodes)
	return nodes
}

// HasLink reports whether a and b are joined by an available link
func (s *Snapshot) HasLink(a, b string) bool {
	_, exists := s.utilization[NewLinkKey(a, b)]
	return exists
}

// LinkCount returns the number of available links
func (s *Snapshot) LinkCount() int {
	return len(s.utilization)
}

// Utilization returns the utilization of the live link between a and b
func (s *Snapshot) Utilization(a, b string) (float64, bool) {
	u, exists := s.utilization[NewLinkKey(a, b)]
	return u, exists
}

// PathUtilization sums link utilization along path as seen by this snapshot
func (s *Snapshot) PathUtilization(path []string) float64 {
	var total float64
	for i := 0; i < len(path)-1; i++ {
		total += s.utilization[NewLinkKey(path[i], path[i+1])]
	}
	return total
}
