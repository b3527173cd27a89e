package flow_admission

import (
	"sync"
	"time"
)

// ActiveFlow is the immutable record of an admitted flow
type ActiveFlow struct {
	ID          string    `json:"id"`
	Src         string    `json:"src"`
	Dst         string    `json:"dst"`
	PrimaryPath []string  `json:"primary_path"`
	BackupPath  []string  `json:"backup_path,omitempty"`
	Bandwidth   float64   `json:"bandwidth"`
	Priority    int       `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasBackup reports whether a backup path was recorded
func (f ActiveFlow) HasBackup() bool {
	return len(f.BackupPath) > 0
}

func (f ActiveFlow) clone() ActiveFlow {
	f.PrimaryPath = append([]string(nil), f.PrimaryPath...)
	if f.BackupPath != nil {
		f.BackupPath = append([]string(nil), f.BackupPath...)
	}
	return f
}

// ActiveFlows is the append-only list of admitted flows. Its length is the
// sequence index of the next flow id.
type ActiveFlows struct {
	flows []ActiveFlow
	index map[string]int
	mutex sync.RWMutex
}

func NewActiveFlows() *ActiveFlows {
	return &ActiveFlows{index: make(map[string]int)}
}

func (af *ActiveFlows) Append(flow ActiveFlow) {
	af.mutex.Lock()
	defer af.mutex.Unlock()

	af.index[flow.ID] = len(af.flows)
	af.flows = append(af.flows, flow.clone())
}

func (af *ActiveFlows) Len() int {
	af.mutex.RLock()
	defer af.mutex.RUnlock()
	return len(af.flows)
}

// List returns copies of all flows in admission order
func (af *ActiveFlows) List() []ActiveFlow {
	af.mutex.RLock()
	defer af.mutex.RUnlock()

	flows := make([]ActiveFlow, len(af.flows))
	for i, flow := range af.flows {
		flows[i] = flow.clone()
	}
	return flows
}

func (af *ActiveFlows) Get(id string) (ActiveFlow, bool) {
	af.mutex.RLock()
	defer af.mutex.RUnlock()

	i, exists := af.index[id]
	if !exists {
		return ActiveFlow{}, false
	}
	return af.flows[i].clone(), true
}
