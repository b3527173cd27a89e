package etcd

import (
	"encoding/json"
	"fmt"
	"time"

	"sdncontrol/flow_admission"
	"sdncontrol/topology"

	"github.com/go-playground/validator/v10"
)

type TaskProcessor func(task Task) (string, error)

// Core is the controller surface driven by tasks
type Core interface {
	AddNode(id string, nodeType topology.NodeType)
	AddLink(a, b string, bandwidth float64)
	RemoveLink(a, b string)
	RestoreLink(a, b string)
	Link(a, b string) (topology.Link, bool)
	Admit(src, dst string, priority int, bandwidth float64) (flow_admission.ActiveFlow, error)
	DefaultFlowBandwidth() float64
}

var validate = validator.New()

func decodePayload(task Task, payload any) error {
	if err := json.Unmarshal([]byte(task.Payload), payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := validate.Struct(payload); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}

// ControllerProcessors maps every controller task type to its processor
func ControllerProcessors(core Core) map[string]TaskProcessor {
	return map[string]TaskProcessor{
		TaskNodeAdd: func(task Task) (string, error) {
			var payload NodePayload
			if err := decodePayload(task, &payload); err != nil {
				return "", err
			}
			nodeType := topology.NodeType(payload.Type)
			if nodeType == "" {
				nodeType = topology.NodeTypeSwitch
			}
			core.AddNode(payload.ID, nodeType)
			return payload.ID, nil
		},

		TaskLinkAdd: func(task Task) (string, error) {
			var payload LinkPayload
			if err := decodePayload(task, &payload); err != nil {
				return "", err
			}
			core.AddLink(payload.A, payload.B, payload.Bandwidth)
			return fmt.Sprintf("%s-%s", payload.A, payload.B), nil
		},

		TaskLinkFail: linkToggle(core, core.RemoveLink),

		TaskLinkRestore: linkToggle(core, core.RestoreLink),

		TaskFlowInject: func(task Task) (string, error) {
			var payload FlowPayload
			if err := decodePayload(task, &payload); err != nil {
				return "", err
			}
			bandwidth := core.DefaultFlowBandwidth()
			if payload.Bandwidth != nil {
				bandwidth = *payload.Bandwidth
			}
			flow, err := core.Admit(payload.Src, payload.Dst, payload.Priority, bandwidth)
			if err != nil {
				return "", err
			}
			result, err := json.Marshal(FlowOutcome{
				FlowID:      flow.ID,
				PrimaryPath: flow.PrimaryPath,
				BackupPath:  flow.BackupPath,
			})
			if err != nil {
				return "", fmt.Errorf("failed to marshal flow outcome: %w", err)
			}
			return string(result), nil
		},
	}
}

// linkToggle reports "unknown" for a missing link; the toggle itself never fails
func linkToggle(core Core, toggle func(a, b string)) TaskProcessor {
	return func(task Task) (string, error) {
		var payload LinkPayload
		if err := decodePayload(task, &payload); err != nil {
			return "", err
		}
		_, found := core.Link(payload.A, payload.B)
		toggle(payload.A, payload.B)
		if !found {
			return "unknown", nil
		}
		return "ok", nil
	}
}

// runTask executes task with processor and returns the final task and result
func runTask(task Task, processor TaskProcessor, now func() time.Time) (Task, TaskResult) {
	result, err := processor(task)

	taskResult := TaskResult{
		TaskID:      task.ID,
		CompletedAt: now(),
	}
	if err != nil {
		task.Status = StatusFailed
		taskResult.Error = err.Error()
	} else {
		task.Status = StatusCompleted
		taskResult.Result = result
	}
	return task, taskResult
}
