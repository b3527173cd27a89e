package topology

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Description is the bootstrap topology read from a YAML file
type Description struct {
	Nodes []NodeDesc `yaml:"nodes"`
	Links []LinkDesc `yaml:"links"`
}

type NodeDesc struct {
	ID   string `yaml:"id"`
	Type string `yaml:"type"`
}

type LinkDesc struct {
	A         string  `yaml:"a"`
	B         string  `yaml:"b"`
	Bandwidth float64 `yaml:"bandwidth"`
}

// ReadTopologyFile parses a YAML topology description
func ReadTopologyFile(path string) (*Description, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file %s: %w", path, err)
	}
	return ParseTopology(data)
}

func ParseTopology(data []byte) (*Description, error) {
	var desc Description
	if err := yaml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("failed to parse topology description: %w", err)
	}

	for i, node := range desc.Nodes {
		if node.ID == "" {
			return nil, fmt.Errorf("node %d has an empty id", i)
		}
		switch NodeType(node.Type) {
		case "", NodeTypeSwitch, NodeTypeHost:
		default:
			return nil, fmt.Errorf("node %s has unknown type %q", node.ID, node.Type)
		}
	}
	for i, link := range desc.Links {
		if link.A == "" || link.B == "" {
			return nil, fmt.Errorf("link %d has an empty endpoint", i)
		}
		if link.Bandwidth < 0 {
			return nil, fmt.Errorf("link %s-%s has negative bandwidth %.2f", link.A, link.B, link.Bandwidth)
		}
	}
	return &desc, nil
}

// Apply registers the described nodes, then the links. Links without a
// bandwidth get defaultBandwidth.
func (d *Description) Apply(tm *TopologyManager, defaultBandwidth float64) {
	for _, node := range d.Nodes {
		nodeType := NodeType(node.Type)
		if nodeType == "" {
			nodeType = NodeTypeSwitch
		}
		tm.AddNode(node.ID, nodeType)
	}

	for _, link := range d.Links {
		bandwidth := link.Bandwidth
		if bandwidth == 0 {
			bandwidth = defaultBandwidth
		}
		tm.AddLink(link.A, link.B, bandwidth)
	}

	log.Infof("Apply: topology loaded, node num: %d, link num: %d", tm.NodeCount(), tm.LinkCount())
}
