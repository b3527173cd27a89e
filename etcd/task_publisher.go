package etcd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var ErrResultTimeout = errors.New("timeout waiting for result")

type TaskPublisher struct {
	store       taskStore
	publisherID string
	config      EtcdConfig
}

func NewTaskPublisher(config EtcdConfig) (*TaskPublisher, error) {
	store, err := newEtcdStore(config)
	if err != nil {
		return nil, err
	}
	return newTaskPublisher(store, config), nil
}

func newTaskPublisher(store taskStore, config EtcdConfig) *TaskPublisher {
	return &TaskPublisher{
		store:       store,
		publisherID: "publisher-" + uuid.NewString()[:8],
		config:      config,
	}
}

func (p *TaskPublisher) Close() {
	if p.store != nil {
		p.store.Close()
	}
}

func (p *TaskPublisher) PublishTask(ctx context.Context, task Task) error {
	taskJSON, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal task: %w", err)
	}

	taskKey := p.config.TaskPrefix() + task.ID
	if err := p.store.Put(ctx, taskKey, string(taskJSON)); err != nil {
		return fmt.Errorf("failed to publish task: %w", err)
	}

	log.Infof("[%s] Task published: %s (Type: %s)", p.publisherID, task.ID, task.Type)
	return nil
}

func (p *TaskPublisher) GetTaskResult(ctx context.Context, taskID string) (*TaskResult, error) {
	kv, err := p.store.Get(ctx, p.config.ResultPrefix()+taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to get task result: %w", err)
	}
	if kv == nil {
		return nil, fmt.Errorf("no result found for task: %s", taskID)
	}

	var result TaskResult
	if err := json.Unmarshal(kv.Value, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task result: %w", err)
	}
	return &result, nil
}

func (p *TaskPublisher) WatchTaskResults(ctx context.Context, taskID string) <-chan *TaskResult {
	resultKey := p.config.ResultPrefix() + taskID
	resultChan := make(chan *TaskResult)
	batches := p.store.Watch(ctx, resultKey, false, 0)

	go func() {
		defer close(resultChan)

		for batch := range batches {
			if batch.err != nil {
				log.Warnf("[%s] Result watch failed: %v", p.publisherID, batch.err)
				return
			}
			for _, kv := range batch.puts {
				var result TaskResult
				if err := json.Unmarshal(kv.Value, &result); err != nil {
					log.Warnf("[%s] Failed to unmarshal task result: %v", p.publisherID, err)
					continue
				}

				select {
				case resultChan <- &result:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return resultChan
}

func (p *TaskPublisher) WaitForResult(ctx context.Context, taskID string, timeout time.Duration) (*TaskResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resultChan := p.WatchTaskResults(ctx, taskID)

	// the worker may have finished before the watch was set up
	if result, err := p.GetTaskResult(ctx, taskID); err == nil {
		return result, nil
	}

	select {
	case result, ok := <-resultChan:
		if !ok {
			return nil, fmt.Errorf("result watch for %s closed", taskID)
		}
		return result, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: task %s", ErrResultTimeout, taskID)
		}
		return nil, ctx.Err()
	}
}

// Submit publishes a task built from payload and waits for its result
func (p *TaskPublisher) Submit(ctx context.Context, taskType string, payload any, timeout time.Duration) (*TaskResult, error) {
	task, err := NewTask(taskType, payload)
	if err != nil {
		return nil, err
	}
	if err := p.PublishTask(ctx, task); err != nil {
		return nil, err
	}
	return p.WaitForResult(ctx, task.ID, timeout)
}
