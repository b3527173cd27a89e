package topology

// NodeType tags a node as a forwarding switch or an end host
type NodeType string

const (
	NodeTypeSwitch NodeType = "switch"
	NodeTypeHost   NodeType = "host"
)

// DefaultLinkBandwidth is the declared capacity of a link added without one
const DefaultLinkBandwidth = 100.0

type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
}

// Link is an undirected connection between two nodes.
// A and B keep the endpoint order of the first insertion.
type Link struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Bandwidth   float64 `json:"bandwidth"`
	Utilization float64 `json:"utilization"`
	Available   bool    `json:"available"`
}

// LinkKey identifies a link regardless of endpoint order
type LinkKey struct {
	Low, High string
}

func NewLinkKey(a, b string) LinkKey {
	if a > b {
		a, b = b, a
	}
	return LinkKey{Low: a, High: b}
}

// UtilizationRatio returns utilization over declared bandwidth, 0 when bandwidth is not positive
func (l Link) UtilizationRatio() float64 {
	if l.Bandwidth <= 0 {
		return 0
	}
	return l.Utilization / l.Bandwidth
}
