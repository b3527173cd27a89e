package controller_api

import (
	"sdncontrol/flow_admission"
	"sdncontrol/topology"
)

type AddNodeRequest struct {
	ID   string `json:"id" validate:"required,max=128"`
	Type string `json:"type" validate:"omitempty,oneof=switch host"`
}

type AddLinkRequest struct {
	A         string  `json:"a" validate:"required,max=128"`
	B         string  `json:"b" validate:"required,max=128,nefield=A"`
	Bandwidth float64 `json:"bandwidth" validate:"gte=0"` // 0 uses the controller default
}

// LinkRequest names an existing link for fail/restore
type LinkRequest struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required"`
}

type ComputePathsRequest struct {
	Src      string `json:"src" validate:"required"`
	Dst      string `json:"dst" validate:"required"`
	Priority int    `json:"priority" validate:"gte=0"`
}

type ComputePathsResponse struct {
	Paths [][]string `json:"paths"`
}

type InjectFlowRequest struct {
	Src       string  `json:"src" validate:"required"`
	Dst       string  `json:"dst" validate:"required"`
	Priority  int      `json:"priority" validate:"gte=0"`
	Bandwidth *float64 `json:"bandwidth,omitempty" validate:"omitempty,gte=0"` // nil uses the controller default
}

// InjectFlowResponse reports "no path" as Admitted=false with a Reason
type InjectFlowResponse struct {
	Admitted    bool     `json:"admitted"`
	FlowID      string   `json:"flow_id,omitempty"`
	PrimaryPath []string `json:"primary_path,omitempty"`
	BackupPath  []string `json:"backup_path,omitempty"`
	Reason      string   `json:"reason,omitempty"`
}

type ListRequest struct{}

type ListNodesResponse struct {
	Nodes []topology.Node `json:"nodes"`
}

type ListLinksResponse struct {
	Links []topology.Link `json:"links"`
}

type ListFlowsResponse struct {
	Flows []flow_admission.ActiveFlow `json:"flows"`
}

type Ack struct {
	// Found is false when a fail/restore named an unknown link
	Found bool `json:"found"`
}
