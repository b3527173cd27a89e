package etcd

import (
	"context"
	"fmt"

	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// taskStore is the part of the etcd API the task queue relies on
type taskStore interface {
	// Get returns nil when key does not exist
	Get(ctx context.Context, key string) (*mvccpb.KeyValue, error)
	// List returns keys under prefix in creation order, plus the store revision
	List(ctx context.Context, prefix string) ([]*mvccpb.KeyValue, int64, error)
	Put(ctx context.Context, key, value string) error
	// CompareAndPut writes value only if key is still at modRevision
	CompareAndPut(ctx context.Context, key string, modRevision int64, value string) (bool, error)
	// Watch streams puts on key (or under it when prefix is set). A positive
	// fromRevision replays history from that revision.
	Watch(ctx context.Context, key string, prefix bool, fromRevision int64) <-chan watchBatch
	Close() error
}

type watchBatch struct {
	puts []*mvccpb.KeyValue
	err  error
}

type etcdStore struct {
	client *clientv3.Client
}

func newEtcdStore(config EtcdConfig) (*etcdStore, error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   config.Endpoints,
		DialTimeout: config.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	return &etcdStore{client: client}, nil
}

func (s *etcdStore) Get(ctx context.Context, key string) (*mvccpb.KeyValue, error) {
	resp, err := s.client.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(resp.Kvs) == 0 {
		return nil, nil
	}
	return resp.Kvs[0], nil
}

func (s *etcdStore) List(ctx context.Context, prefix string) ([]*mvccpb.KeyValue, int64, error) {
	resp, err := s.client.Get(ctx, prefix, clientv3.WithPrefix(),
		clientv3.WithSort(clientv3.SortByCreateRevision, clientv3.SortAscend))
	if err != nil {
		return nil, 0, err
	}
	return resp.Kvs, resp.Header.Revision, nil
}

func (s *etcdStore) Put(ctx context.Context, key, value string) error {
	_, err := s.client.Put(ctx, key, value)
	return err
}

func (s *etcdStore) CompareAndPut(ctx context.Context, key string, modRevision int64, value string) (bool, error) {
	txn, err := s.client.Txn(ctx).
		If(clientv3.Compare(clientv3.ModRevision(key), "=", modRevision)).
		Then(clientv3.OpPut(key, value)).
		Commit()
	if err != nil {
		return false, err
	}
	return txn.Succeeded, nil
}

func (s *etcdStore) Watch(ctx context.Context, key string, prefix bool, fromRevision int64) <-chan watchBatch {
	var opts []clientv3.OpOption
	if prefix {
		opts = append(opts, clientv3.WithPrefix())
	}
	if fromRevision > 0 {
		opts = append(opts, clientv3.WithRev(fromRevision))
	}

	watchChan := s.client.Watch(ctx, key, opts...)
	batches := make(chan watchBatch)
	go func() {
		defer close(batches)
		for resp := range watchChan {
			batch := watchBatch{err: resp.Err()}
			for _, event := range resp.Events {
				if event.Type == mvccpb.PUT {
					batch.puts = append(batch.puts, event.Kv)
				}
			}
			select {
			case batches <- batch:
			case <-ctx.Done():
				return
			}
		}
	}()
	return batches
}

func (s *etcdStore) Close() error {
	return s.client.Close()
}
