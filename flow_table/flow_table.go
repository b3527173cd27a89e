package flow_table

import (
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

const ActionForward = "forward"

// Action is the forwarding instruction installed for one flow on one switch
type Action struct {
	Type string   `json:"type"`
	Path []string `json:"path"`
}

func ForwardAction(path []string) Action {
	return Action{Type: ActionForward, Path: append([]string(nil), path...)}
}

// FlowTable maps switch -> flow id -> action. Entries are never removed.
type FlowTable struct {
	entries map[string]map[string]Action
	order   []string // switches in first-install order
	mutex   sync.RWMutex
}

func NewFlowTable() *FlowTable {
	return &FlowTable{entries: make(map[string]map[string]Action)}
}

// Install stores action for (switchID, flowID), replacing any previous entry
func (ft *FlowTable) Install(switchID, flowID string, action Action) {
	ft.mutex.Lock()
	defer ft.mutex.Unlock()

	table, exists := ft.entries[switchID]
	if !exists {
		table = make(map[string]Action)
		ft.entries[switchID] = table
		ft.order = append(ft.order, switchID)
	}
	table[flowID] = Action{Type: action.Type, Path: append([]string(nil), action.Path...)}
	log.Debugf("Install: switch=%s, flow=%s, action=%s, path=%v", switchID, flowID, action.Type, action.Path)
}

// InstallInterior installs a forward action for path on every node strictly
// between its endpoints and returns the switches that received an entry
func (ft *FlowTable) InstallInterior(flowID string, path []string) []string {
	if len(path) < 3 {
		return nil
	}
	interior := path[1 : len(path)-1]
	action := ForwardAction(path)
	for _, switchID := range interior {
		ft.Install(switchID, flowID, action)
	}
	return append([]string(nil), interior...)
}

// Lookup returns a copy of all entries installed on a switch
func (ft *FlowTable) Lookup(switchID string) map[string]Action {
	ft.mutex.RLock()
	defer ft.mutex.RUnlock()

	table := ft.entries[switchID]
	result := make(map[string]Action, len(table))
	for flowID, action := range table {
		result[flowID] = Action{Type: action.Type, Path: append([]string(nil), action.Path...)}
	}
	return result
}

func (ft *FlowTable) Entry(switchID, flowID string) (Action, bool) {
	ft.mutex.RLock()
	defer ft.mutex.RUnlock()

	action, exists := ft.entries[switchID][flowID]
	if !exists {
		return Action{}, false
	}
	return Action{Type: action.Type, Path: append([]string(nil), action.Path...)}, true
}

// Switches lists switches holding at least one entry, in first-install order
func (ft *FlowTable) Switches() []string {
	ft.mutex.RLock()
	defer ft.mutex.RUnlock()
	return append([]string(nil), ft.order...)
}

// FlowIDs lists the flows installed on a switch, sorted
func (ft *FlowTable) FlowIDs(switchID string) []string {
	ft.mutex.RLock()
	defer ft.mutex.RUnlock()

	ids := make([]string, 0, len(ft.entries[switchID]))
	for flowID := range ft.entries[switchID] {
		ids = append(ids, flowID)
	}
	sort.Strings(ids)
	return ids
}

func (ft *FlowTable) EntryCount() int {
	ft.mutex.RLock()
	defer ft.mutex.RUnlock()

	count := 0
	for _, table := range ft.entries {
		count += len(table)
	}
	return count
}

// Dump returns a deep copy of the whole table
func (ft *FlowTable) Dump() map[string]map[string]Action {
	ft.mutex.RLock()
	switches := append([]string(nil), ft.order...)
	ft.mutex.RUnlock()

	dump := make(map[string]map[string]Action, len(switches))
	for _, switchID := range switches {
		dump[switchID] = ft.Lookup(switchID)
	}
	return dump
}
