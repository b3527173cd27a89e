package etcd

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"sdncontrol/controller"
	"sdncontrol/metrics"

	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/mvccpb"
)

// memStore keeps revisions and watch semantics of etcd in memory
type memStore struct {
	mu       sync.Mutex
	revision int64
	kvs      map[string]*mvccpb.KeyValue
	history  []*mvccpb.KeyValue
	watchers []*memWatcher
}

type memWatcher struct {
	key     string
	prefix  bool
	pending []*mvccpb.KeyValue
	notify  chan struct{}
}

func (w *memWatcher) matches(key string) bool {
	if w.prefix {
		return strings.HasPrefix(key, w.key)
	}
	return key == w.key
}

func (w *memWatcher) push(kv *mvccpb.KeyValue) {
	w.pending = append(w.pending, kv)
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

func newMemStore() *memStore {
	return &memStore{kvs: make(map[string]*mvccpb.KeyValue)}
}

func (s *memStore) Get(ctx context.Context, key string) (*mvccpb.KeyValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kvs[key], nil
}

func (s *memStore) List(ctx context.Context, prefix string) ([]*mvccpb.KeyValue, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kvs []*mvccpb.KeyValue
	for key, kv := range s.kvs {
		if strings.HasPrefix(key, prefix) {
			kvs = append(kvs, kv)
		}
	}
	sort.Slice(kvs, func(i, j int) bool { return kvs[i].CreateRevision < kvs[j].CreateRevision })
	return kvs, s.revision, nil
}

func (s *memStore) Put(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.put(key, value)
	return nil
}

func (s *memStore) put(key, value string) {
	s.revision++
	kv := &mvccpb.KeyValue{
		Key:            []byte(key),
		Value:          []byte(value),
		CreateRevision: s.revision,
		ModRevision:    s.revision,
		Version:        1,
	}
	if prev, ok := s.kvs[key]; ok {
		kv.CreateRevision = prev.CreateRevision
		kv.Version = prev.Version + 1
	}
	s.kvs[key] = kv
	s.history = append(s.history, kv)
	for _, w := range s.watchers {
		if w.matches(key) {
			w.push(kv)
		}
	}
}

func (s *memStore) CompareAndPut(ctx context.Context, key string, modRevision int64, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if kv, ok := s.kvs[key]; ok {
		current = kv.ModRevision
	}
	if current != modRevision {
		return false, nil
	}
	s.put(key, value)
	return true, nil
}

func (s *memStore) Watch(ctx context.Context, key string, prefix bool, fromRevision int64) <-chan watchBatch {
	w := &memWatcher{key: key, prefix: prefix, notify: make(chan struct{}, 1)}

	s.mu.Lock()
	if fromRevision > 0 {
		for _, kv := range s.history {
			if kv.ModRevision >= fromRevision && w.matches(string(kv.Key)) {
				w.push(kv)
			}
		}
	}
	s.watchers = append(s.watchers, w)
	s.mu.Unlock()

	batches := make(chan watchBatch)
	go func() {
		defer close(batches)
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
			}

			s.mu.Lock()
			puts := w.pending
			w.pending = nil
			s.mu.Unlock()
			if len(puts) == 0 {
				continue
			}

			select {
			case batches <- watchBatch{puts: puts}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return batches
}

func (s *memStore) Close() error { return nil }

func (s *memStore) taskStatus(t *testing.T, config EtcdConfig, taskID string) string {
	t.Helper()
	kv, _ := s.Get(context.Background(), config.TaskPrefix()+taskID)
	require.NotNil(t, kv, taskID)

	var task Task
	require.NoError(t, json.Unmarshal(kv.Value, &task))
	return task.Status
}

type queueEnv struct {
	store     *memStore
	config    EtcdConfig
	core      *controller.Controller
	registry  *metrics.Registry
	worker    *TaskWorker
	publisher *TaskPublisher
	ctx       context.Context
}

func newQueueEnv(t *testing.T, pool *ants.Pool) *queueEnv {
	t.Helper()

	store := newMemStore()
	config := DefaultEtcdConfig()
	registry := metrics.NewRegistry()
	core := newCore(t)

	worker := newTaskWorker(store, config, pool, registry)
	worker.RegisterProcessors(ControllerProcessors(core))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	return &queueEnv{
		store:     store,
		config:    config,
		core:      core,
		registry:  registry,
		worker:    worker,
		publisher: newTaskPublisher(store, config),
		ctx:       ctx,
	}
}

// start runs the worker until the test ends
func (e *queueEnv) start(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithCancel(e.ctx)
	done := make(chan error, 1)
	go func() { done <- e.worker.Start(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		e.worker.Close()
	})
}

func (e *queueEnv) submit(t *testing.T, taskType string, payload any) *TaskResult {
	t.Helper()
	result, err := e.publisher.Submit(e.ctx, taskType, payload, 5*time.Second)
	require.NoError(t, err)
	return result
}

func (e *queueEnv) publish(t *testing.T, taskType string, payload any) Task {
	t.Helper()
	task := mustTask(t, taskType, payload)
	require.NoError(t, e.publisher.PublishTask(e.ctx, task))
	return task
}

func (e *queueEnv) wait(t *testing.T, task Task) *TaskResult {
	t.Helper()
	result, err := e.publisher.WaitForResult(e.ctx, task.ID, 5*time.Second)
	require.NoError(t, err)
	return result
}

var exampleLinks = [][2]string{{"h1", "s1"}, {"s1", "s2"}, {"s1", "s3"}, {"s2", "s4"}, {"s3", "s4"}, {"s4", "h2"}}

func flowOutcome(t *testing.T, result *TaskResult) FlowOutcome {
	t.Helper()
	require.Empty(t, result.Error)

	var outcome FlowOutcome
	require.NoError(t, json.Unmarshal([]byte(result.Result), &outcome))
	return outcome
}

func TestWorkerHandlesTasksPendingBeforeStart(t *testing.T) {
	env := newQueueEnv(t, nil)

	var tasks []Task
	for _, link := range exampleLinks {
		tasks = append(tasks, env.publish(t, TaskLinkAdd, LinkPayload{A: link[0], B: link[1]}))
	}
	assert.Empty(t, env.core.Links())

	env.start(t)
	for _, task := range tasks {
		result := env.wait(t, task)
		assert.Empty(t, result.Error)
		assert.Equal(t, task.ID, result.TaskID)
	}
	assert.Len(t, env.core.Links(), len(exampleLinks))

	outcome := flowOutcome(t, env.submit(t, TaskFlowInject, FlowPayload{Src: "h1", Dst: "h2"}))
	assert.Equal(t, "h1-h2-0", outcome.FlowID)
}

func TestWorkerRunsTasksInPublishOrder(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	t.Cleanup(pool.Release)

	env := newQueueEnv(t, pool)
	env.start(t)
	for _, link := range exampleLinks {
		env.submit(t, TaskLinkAdd, LinkPayload{A: link[0], B: link[1]})
	}

	// published back to back, nobody waits in between
	env.publish(t, TaskLinkFail, LinkPayload{A: "s1", B: "s2"})
	var injects []Task
	for i := 0; i < 3; i++ {
		injects = append(injects, env.publish(t, TaskFlowInject, FlowPayload{Src: "h1", Dst: "h2", Priority: i % 2}))
	}

	for i, task := range injects {
		outcome := flowOutcome(t, env.wait(t, task))
		assert.Equal(t, []string{"h1", "s1", "s3", "s4", "h2"}, outcome.PrimaryPath, "flow %d ran after the link failure", i)
		assert.Equal(t, fmt.Sprintf("h1-h2-%d", i), outcome.FlowID)
	}

	link, _ := env.core.Link("s1", "s2")
	assert.Zero(t, link.Utilization)
	assert.False(t, link.Available)
}

func TestWorkerMarksTaskStatus(t *testing.T) {
	env := newQueueEnv(t, nil)
	env.start(t)

	task := env.publish(t, TaskNodeAdd, NodePayload{ID: "s1"})
	result := env.wait(t, task)
	assert.Equal(t, "s1", result.Result)
	assert.Eventually(t, func() bool {
		return env.store.taskStatus(t, env.config, task.ID) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(
		env.registry.TasksProcessedTotal.WithLabelValues(TaskNodeAdd, StatusCompleted)))
}

func TestWorkerStoresProcessorError(t *testing.T) {
	env := newQueueEnv(t, nil)
	env.start(t)
	env.submit(t, TaskNodeAdd, NodePayload{ID: "h1", Type: "host"})
	env.submit(t, TaskNodeAdd, NodePayload{ID: "h2", Type: "host"})

	task := env.publish(t, TaskFlowInject, FlowPayload{Src: "h1", Dst: "h2"})
	result := env.wait(t, task)
	assert.Contains(t, result.Error, "no path available")
	assert.Empty(t, result.Result)
	assert.Eventually(t, func() bool {
		return env.store.taskStatus(t, env.config, task.ID) == StatusFailed
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, env.core.ActiveFlows())
}

func TestWorkerFailsUnknownTaskType(t *testing.T) {
	env := newQueueEnv(t, nil)
	env.start(t)

	task := env.publish(t, "topology.reset", struct{}{})
	result := env.wait(t, task)
	assert.Contains(t, result.Error, `no processor registered for task type "topology.reset"`)
	assert.Eventually(t, func() bool {
		return env.store.taskStatus(t, env.config, task.ID) == StatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWorkerSkipsTaskClaimedElsewhere(t *testing.T) {
	env := newQueueEnv(t, nil)
	calls := 0
	env.worker.RegisterProcessor("count", func(Task) (string, error) {
		calls++
		return "counted", nil
	})

	task := env.publish(t, "count", struct{}{})
	key := env.config.TaskPrefix() + task.ID
	stale, err := env.store.Get(env.ctx, key)
	require.NoError(t, err)

	other := task
	other.Status = StatusProcessing
	otherJSON, _ := json.Marshal(other)
	claimed, err := env.store.CompareAndPut(env.ctx, key, stale.ModRevision, string(otherJSON))
	require.NoError(t, err)
	require.True(t, claimed)

	env.worker.handleTask(env.ctx, stale)
	assert.Zero(t, calls)
	_, err = env.publisher.GetTaskResult(env.ctx, task.ID)
	assert.Error(t, err, "no result is written for a task claimed elsewhere")

	fresh := env.publish(t, "count", struct{}{})
	kv, err := env.store.Get(env.ctx, env.config.TaskPrefix()+fresh.ID)
	require.NoError(t, err)
	env.worker.handleTask(env.ctx, kv)
	assert.Equal(t, 1, calls)

	result, err := env.publisher.GetTaskResult(env.ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, "counted", result.Result)
	assert.Equal(t, StatusCompleted, env.store.taskStatus(t, env.config, fresh.ID))

	env.worker.handleTask(env.ctx, kv)
	assert.Equal(t, 1, calls, "a stale revision is never processed twice")
}

func TestWaitForResultTimeout(t *testing.T) {
	env := newQueueEnv(t, nil)
	task := env.publish(t, TaskNodeAdd, NodePayload{ID: "s1"})

	_, err := env.publisher.WaitForResult(env.ctx, task.ID, 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrResultTimeout)
	assert.Equal(t, StatusPending, env.store.taskStatus(t, env.config, task.ID))
}
