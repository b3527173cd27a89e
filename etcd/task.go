package etcd

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Task types understood by the controller worker
const (
	TaskNodeAdd     = "node.add"
	TaskLinkAdd     = "link.add"
	TaskLinkFail    = "link.fail"
	TaskLinkRestore = "link.restore"
	TaskFlowInject  = "flow.inject"
)

type Task struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
	Status    string    `json:"status"` // "pending", "processing", "completed", "failed"
}

type TaskResult struct {
	TaskID      string    `json:"task_id"`
	Result      string    `json:"result"`
	Error       string    `json:"error,omitempty"`
	CompletedAt time.Time `json:"completed_at"`
}

type NodePayload struct {
	ID   string `json:"id" validate:"required"`
	Type string `json:"type" validate:"omitempty,oneof=switch host"`
}

type LinkPayload struct {
	A         string  `json:"a" validate:"required"`
	B         string  `json:"b" validate:"required,nefield=A"`
	Bandwidth float64 `json:"bandwidth" validate:"gte=0"`
}

type FlowPayload struct {
	Src       string  `json:"src" validate:"required"`
	Dst       string  `json:"dst" validate:"required"`
	Priority  int      `json:"priority" validate:"gte=0"`
	Bandwidth *float64 `json:"bandwidth,omitempty" validate:"omitempty,gte=0"` // nil uses the controller default
}

// FlowOutcome is the result document of a flow.inject task
type FlowOutcome struct {
	FlowID      string   `json:"flow_id"`
	PrimaryPath []string `json:"primary_path"`
	BackupPath  []string `json:"backup_path,omitempty"`
}

type EtcdConfig struct {
	Endpoints   []string
	DialTimeout time.Duration
	Prefix      string // keys live under <Prefix>/tasks/ and <Prefix>/results/
}

func DefaultEtcdConfig() EtcdConfig {
	return EtcdConfig{
		Endpoints:   []string{"localhost:2379"},
		DialTimeout: 5 * time.Second,
		Prefix:      "/sdn",
	}
}

func (c EtcdConfig) TaskPrefix() string {
	return strings.TrimRight(c.Prefix, "/") + "/tasks/"
}

func (c EtcdConfig) ResultPrefix() string {
	return strings.TrimRight(c.Prefix, "/") + "/results/"
}

// NewTask builds a pending task with a JSON payload
func NewTask(taskType string, payload any) (Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Task{}, fmt.Errorf("failed to marshal %s payload: %w", taskType, err)
	}
	return Task{
		ID:        uuid.NewString(),
		Type:      taskType,
		Payload:   string(data),
		CreatedAt: time.Now(),
		Status:    StatusPending,
	}, nil
}
