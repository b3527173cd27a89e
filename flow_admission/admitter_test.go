package flow_admission

import (
	"errors"
	"testing"
	"time"

	"sdncontrol/flow_table"
	"sdncontrol/routing"
	"sdncontrol/topology"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	viaS2 = []string{"h1", "s1", "s2", "s4", "h2"}
	viaS3 = []string{"h1", "s1", "s3", "s4", "h2"}
)

type admissionFixture struct {
	topology  *topology.TopologyManager
	flowTable *flow_table.FlowTable
	flows     *ActiveFlows
	admitter  *Admitter
}

func newAdmissionFixture(t *testing.T) *admissionFixture {
	t.Helper()

	tm := topology.NewTopologyManager()
	for _, id := range []string{"s1", "s2", "s3", "s4"} {
		tm.AddNode(id, topology.NodeTypeSwitch)
	}
	tm.AddNode("h1", topology.NodeTypeHost)
	tm.AddNode("h2", topology.NodeTypeHost)
	for _, link := range [][2]string{{"s1", "s2"}, {"s1", "s3"}, {"s2", "s4"}, {"s3", "s4"}, {"h1", "s1"}, {"h2", "s4"}} {
		tm.AddLink(link[0], link[1], topology.DefaultLinkBandwidth)
	}

	pc, err := routing.NewPathComputer(0)
	require.NoError(t, err)

	ft := flow_table.NewFlowTable()
	flows := NewActiveFlows()
	admitter := NewAdmitter(pc, tm, ft, flows)
	admitter.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	return &admissionFixture{topology: tm, flowTable: ft, flows: flows, admitter: admitter}
}

func (f *admissionFixture) admit(src, dst string, priority int, bandwidth float64) (ActiveFlow, error) {
	return f.admitter.Admit(f.topology.LiveSubgraph(), FlowRequest{
		Src: src, Dst: dst, Priority: priority, Bandwidth: bandwidth,
	})
}

func (f *admissionFixture) utilization(a, b string) float64 {
	link, _ := f.topology.Link(a, b)
	return link.Utilization
}

func TestAdmitNormalPriorityScenario(t *testing.T) {
	f := newAdmissionFixture(t)

	flow, err := f.admit("h1", "h2", 0, 10)
	require.NoError(t, err)

	assert.Equal(t, "h1-h2-0", flow.ID)
	assert.Len(t, flow.PrimaryPath, 5, "4-hop path")
	assert.Equal(t, viaS2, flow.PrimaryPath)
	assert.False(t, flow.HasBackup(), "priority 0 never gets a backup")

	for i := 0; i+1 < len(viaS2); i++ {
		assert.Equal(t, 10.0, f.utilization(viaS2[i], viaS2[i+1]))
	}
	assert.Zero(t, f.utilization("s1", "s3"))
	assert.Zero(t, f.utilization("s3", "s4"))

	assert.Equal(t, 3, f.flowTable.EntryCount())
	for _, switchID := range []string{"s1", "s2", "s4"} {
		action, ok := f.flowTable.Entry(switchID, flow.ID)
		require.True(t, ok, switchID)
		assert.Equal(t, flow_table.ForwardAction(viaS2), action)
	}
	_, ok := f.flowTable.Entry("h1", flow.ID)
	assert.False(t, ok, "endpoints get no entries")
}

func TestAdmitHighPriorityHasNoBackup(t *testing.T) {
	f := newAdmissionFixture(t)

	flow, err := f.admit("h1", "h2", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, viaS2, flow.PrimaryPath)
	assert.Nil(t, flow.BackupPath)
	assert.Equal(t, 3, f.flowTable.EntryCount())
}

func TestAdmitHighPriorityAvoidsLoadedPath(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.admit("h1", "h2", 1, 10)
	require.NoError(t, err)

	flow, err := f.admit("h1", "h2", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, viaS3, flow.PrimaryPath)
	assert.Equal(t, "h1-h2-1", flow.ID)
}

func TestAdmitCriticalPriorityInstallsBackup(t *testing.T) {
	f := newAdmissionFixture(t)

	flow, err := f.admit("h1", "h2", 2, 25)
	require.NoError(t, err)

	assert.Equal(t, viaS2, flow.PrimaryPath)
	assert.Equal(t, viaS3, flow.BackupPath)

	assert.Equal(t, 25.0, f.utilization("s1", "s2"))
	assert.Equal(t, 25.0, f.utilization("s2", "s4"))
	assert.Zero(t, f.utilization("s1", "s3"), "backup links are not charged")
	assert.Zero(t, f.utilization("s3", "s4"), "backup links are not charged")

	action, ok := f.flowTable.Entry("s2", flow.ID)
	require.True(t, ok)
	assert.Equal(t, viaS2, action.Path)

	action, ok = f.flowTable.Entry("s3", flow.ID)
	require.True(t, ok)
	assert.Equal(t, viaS3, action.Path)

	// s1 and s4 are interior to both paths; the backup entry is written last
	action, ok = f.flowTable.Entry("s1", flow.ID)
	require.True(t, ok)
	assert.Equal(t, viaS3, action.Path)
	assert.Equal(t, 4, f.flowTable.EntryCount())
}

func TestAdmitDisconnectedPairMutatesNothing(t *testing.T) {
	f := newAdmissionFixture(t)
	f.topology.RemoveLink("s2", "s4")
	f.topology.RemoveLink("s3", "s4")

	_, err := f.admit("h1", "h2", 2, 10)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoPathAvailable))
	assert.Contains(t, err.Error(), "h1 -> h2")

	for _, link := range f.topology.Links() {
		assert.Zero(t, link.Utilization, "%s-%s", link.A, link.B)
	}
	assert.Zero(t, f.flowTable.EntryCount())
	assert.Zero(t, f.flows.Len())
}

func TestFailedAdmissionDoesNotAdvanceSequence(t *testing.T) {
	f := newAdmissionFixture(t)

	flow, err := f.admit("h1", "h2", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "h1-h2-0", flow.ID)

	_, err = f.admit("h1", "ghost", 0, 10)
	require.ErrorIs(t, err, ErrNoPathAvailable)

	flow, err = f.admit("h2", "h1", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, "h2-h1-1", flow.ID)

	got, ok := f.flows.Get("h2-h1-1")
	require.True(t, ok)
	assert.Equal(t, flow.PrimaryPath, got.PrimaryPath)
	assert.Equal(t, 2, f.flows.Len())
}

func TestAdmitAfterLinkFailureUsesRemainingPath(t *testing.T) {
	f := newAdmissionFixture(t)
	f.topology.RemoveLink("s1", "s2")

	flow, err := f.admit("h1", "h2", 2, 10)
	require.NoError(t, err)
	assert.Equal(t, viaS3, flow.PrimaryPath)
	assert.Nil(t, flow.BackupPath)
}

func TestUtilizationMayExceedBandwidth(t *testing.T) {
	f := newAdmissionFixture(t)

	_, err := f.admit("h1", "s1", 0, 150)
	require.NoError(t, err)
	assert.Equal(t, 150.0, f.utilization("h1", "s1"))
}

func TestActiveFlowsListIsCopy(t *testing.T) {
	f := newAdmissionFixture(t)
	_, err := f.admit("h1", "h2", 0, 10)
	require.NoError(t, err)

	list := f.flows.List()
	require.Len(t, list, 1)
	list[0].PrimaryPath[0] = "changed"

	again := f.flows.List()
	assert.Equal(t, "h1", again[0].PrimaryPath[0])
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), again[0].CreatedAt)

	_, ok := f.flows.Get("nope")
	assert.False(t, ok)
}

func TestFlowID(t *testing.T) {
	assert.Equal(t, "h1-h2-7", FlowID("h1", "h2", 7))
}
