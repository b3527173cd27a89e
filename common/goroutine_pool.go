package common

import (
	"fmt"

	"github.com/panjf2000/ants/v2"
	log "github.com/sirupsen/logrus"
)

const DefaultPoolWorkers = 16

type PoolConfig struct {
	MaxWorkers int `toml:"max_workers" validate:"gte=0,lte=10000"`
}

// NewPool creates the shared goroutine pool used for route previews and
// task handling. A non-positive size falls back to DefaultPoolWorkers.
func NewPool(config PoolConfig) (*ants.Pool, error) {
	size := config.MaxWorkers
	if size <= 0 {
		size = DefaultPoolWorkers
	}

	pool, err := ants.NewPool(size)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants goroutine pool: %w", err)
	}

	log.Infof("NewPool: goroutine pool created, size=%d", size)
	return pool, nil
}
