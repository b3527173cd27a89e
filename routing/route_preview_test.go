package routing

import (
	"testing"

	"sdncontrol/topology"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPairs(t *testing.T) {
	nodes := []topology.Node{
		{ID: "h1", Type: topology.NodeTypeHost},
		{ID: "s1", Type: topology.NodeTypeSwitch},
		{ID: "h2", Type: topology.NodeTypeHost},
	}
	assert.Equal(t, []RoutePair{{Src: "h1", Dst: "h2"}, {Src: "h2", Dst: "h1"}}, HostPairs(nodes))

	assert.Empty(t, HostPairs(nodes[1:2]))
	assert.Empty(t, HostPairs(nil))
}

func TestNodePairs(t *testing.T) {
	nodes := []topology.Node{
		{ID: "a", Type: topology.NodeTypeSwitch},
		{ID: "h1", Type: topology.NodeTypeHost},
		{ID: "b", Type: topology.NodeTypeSwitch},
	}
	assert.Equal(t, []RoutePair{{Src: "a", Dst: "b"}, {Src: "b", Dst: "a"}}, NodePairs(nodes, topology.NodeTypeSwitch))
	assert.Len(t, NodePairs(nodes, ""), 6)
	assert.Empty(t, NodePairs(nodes, topology.NodeTypeHost), "a single host has no pair")
}

func TestPreviewRoutesWithPool(t *testing.T) {
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	defer pool.Release()

	pc := newPathComputer(t)
	tm := newExampleTopology()
	tm.AddNode("h3", topology.NodeTypeHost)
	snapshot := tm.LiveSubgraph()

	pairs := HostPairs(tm.Nodes())
	previews := pc.PreviewRoutes(pool, snapshot, pairs, 0)
	require.Len(t, previews, len(pairs))

	for i, preview := range previews {
		assert.Equal(t, pairs[i].Src, preview.Src)
		assert.Equal(t, pairs[i].Dst, preview.Dst)
		assert.Equal(t, pc.ComputePaths(snapshot, preview.Src, preview.Dst, 0), preview.Paths)
	}
	assert.Equal(t, [][]string{viaS2, viaS3}, previews[0].Paths)
}

func TestPreviewRoutesWithoutPool(t *testing.T) {
	pc := newPathComputer(t)
	snapshot := newExampleTopology().LiveSubgraph()

	previews := pc.PreviewRoutes(nil, snapshot, []RoutePair{{Src: "h1", Dst: "h2"}, {Src: "h1", Dst: "nope"}}, 1)
	require.Len(t, previews, 2)
	assert.Equal(t, [][]string{viaS2}, previews[0].Paths)
	assert.Empty(t, previews[1].Paths)
}

func TestPreviewRoutesReleasedPoolFallsBack(t *testing.T) {
	pool, err := ants.NewPool(1)
	require.NoError(t, err)
	pool.Release()

	pc := newPathComputer(t)
	snapshot := newExampleTopology().LiveSubgraph()

	previews := pc.PreviewRoutes(pool, snapshot, []RoutePair{{Src: "h2", Dst: "h1"}}, 0)
	require.Len(t, previews, 1)
	assert.Len(t, previews[0].Paths, 2)
}
