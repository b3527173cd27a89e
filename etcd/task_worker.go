package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"sdncontrol/metrics"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
	"go.etcd.io/etcd/api/v3/mvccpb"
)

// TaskWorker claims pending tasks and runs them against the controller one at
// a time, in the order they were published. Writing results back to etcd is
// handed to the pool.
type TaskWorker struct {
	store      taskStore
	workerID   string
	processors map[string]TaskProcessor
	config     EtcdConfig
	pool       *ants.Pool
	metrics    *metrics.Registry
	wg         sync.WaitGroup
}

// NewTaskWorker connects to etcd. Results are written on pool, or inline when pool is nil.
func NewTaskWorker(config EtcdConfig, pool *ants.Pool, registry *metrics.Registry) (*TaskWorker, error) {
	store, err := newEtcdStore(config)
	if err != nil {
		return nil, err
	}
	return newTaskWorker(store, config, pool, registry), nil
}

func newTaskWorker(store taskStore, config EtcdConfig, pool *ants.Pool, registry *metrics.Registry) *TaskWorker {
	return &TaskWorker{
		store:      store,
		workerID:   "worker-" + uuid.NewString()[:8],
		processors: make(map[string]TaskProcessor),
		config:     config,
		pool:       pool,
		metrics:    registry,
	}
}

func (w *TaskWorker) Close() {
	w.wg.Wait()
	if w.store != nil {
		w.store.Close()
	}
}

func (w *TaskWorker) RegisterProcessor(taskType string, processor TaskProcessor) {
	w.processors[taskType] = processor
}

func (w *TaskWorker) RegisterProcessors(processors map[string]TaskProcessor) {
	for taskType, processor := range processors {
		w.RegisterProcessor(taskType, processor)
	}
}

// Start handles tasks already pending, then watches for new ones until ctx is done
func (w *TaskWorker) Start(ctx context.Context) error {
	log.Infof("[%s] Worker starting, prefix=%s, processors=%d", w.workerID, w.config.TaskPrefix(), len(w.processors))

	existing, revision, err := w.store.List(ctx, w.config.TaskPrefix())
	if err != nil {
		return fmt.Errorf("failed to list pending tasks: %w", err)
	}
	for _, kv := range existing {
		w.handleTask(ctx, kv)
	}

	watchChan := w.store.Watch(ctx, w.config.TaskPrefix(), true, revision+1)

	for {
		select {
		case <-ctx.Done():
			log.Infof("[%s] Worker shutting down...", w.workerID)
			return nil

		case batch, ok := <-watchChan:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watch channel closed")
			}
			if batch.err != nil {
				return fmt.Errorf("watch failed: %w", batch.err)
			}
			for _, kv := range batch.puts {
				w.handleTask(ctx, kv)
			}
		}
	}
}

// handleTask claims and runs one task on the calling goroutine
func (w *TaskWorker) handleTask(ctx context.Context, kv *mvccpb.KeyValue) {
	var task Task
	if err := json.Unmarshal(kv.Value, &task); err != nil {
		log.Errorf("[%s] Failed to unmarshal task: %v", w.workerID, err)
		return
	}
	if task.Status != StatusPending {
		return
	}

	processor, ok := w.processors[task.Type]
	if !ok {
		log.Errorf("[%s] No processor registered for task type: %s", w.workerID, task.Type)
		processor = func(Task) (string, error) {
			return "", fmt.Errorf("no processor registered for task type %q", task.Type)
		}
	}

	// Claim the task only if nobody touched it since this revision
	task.Status = StatusProcessing
	taskJSON, _ := json.Marshal(task)
	claimed, err := w.store.CompareAndPut(ctx, string(kv.Key), kv.ModRevision, string(taskJSON))
	if err != nil {
		log.Errorf("[%s] Failed to update task status: %v", w.workerID, err)
		return
	}
	if !claimed {
		log.Debugf("[%s] Task %s claimed elsewhere", w.workerID, task.ID)
		return
	}

	log.Infof("[%s] Processing task: %s (Type: %s)", w.workerID, task.ID, task.Type)
	task, taskResult := runTask(task, processor, time.Now)
	w.metrics.RecordTask(task.Type, task.Status)

	if task.Status == StatusFailed {
		log.Errorf("[%s] Task processing failed: %s - %s", w.workerID, task.ID, taskResult.Error)
	} else {
		log.Infof("[%s] Task completed successfully: %s - Result: %s", w.workerID, task.ID, taskResult.Result)
	}

	w.wg.Add(1)
	publish := func() {
		defer w.wg.Done()
		w.storeResult(ctx, string(kv.Key), task, taskResult)
	}
	if w.pool == nil {
		publish()
		return
	}
	if err := w.pool.Submit(publish); err != nil {
		log.Warnf("[%s] Failed to submit result of %s to pool: %v, writing inline", w.workerID, task.ID, err)
		publish()
	}
}

func (w *TaskWorker) storeResult(ctx context.Context, taskKey string, task Task, taskResult TaskResult) {
	resultJSON, _ := json.Marshal(taskResult)
	if err := w.store.Put(ctx, w.config.ResultPrefix()+task.ID, string(resultJSON)); err != nil {
		log.Errorf("[%s] Failed to store task result: %v", w.workerID, err)
		return
	}

	taskJSON, _ := json.Marshal(task)
	if err := w.store.Put(ctx, taskKey, string(taskJSON)); err != nil {
		log.Errorf("[%s] Failed to update task status after completion: %v", w.workerID, err)
	}
}
