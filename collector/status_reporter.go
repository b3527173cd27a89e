package collector

import (
	"context"
	"sync"
	"time"

	"sdncontrol/metrics"

	log "github.com/sirupsen/logrus"
)

// StatusReporter samples host status periodically, keeps the latest sample
// and mirrors it into metrics
type StatusReporter struct {
	interval time.Duration
	metrics  *metrics.Registry
	collect  func() (HostStatus, error)

	latest HostStatus
	valid  bool
	mutex  sync.RWMutex
}

func NewStatusReporter(interval time.Duration, registry *metrics.Registry) *StatusReporter {
	return &StatusReporter{
		interval: interval,
		metrics:  registry,
		collect:  CollectHostStatus,
	}
}

// Refresh takes one sample now
func (r *StatusReporter) Refresh() (HostStatus, error) {
	status, err := r.collect()
	if err != nil {
		log.Warnf("Refresh: collect host status failed, err: %v", err)
		return HostStatus{}, err
	}

	r.mutex.Lock()
	r.latest = status
	r.valid = true
	r.mutex.Unlock()

	r.metrics.UpdateHostStatus(status.CPUPercent, status.MemoryPercent, status.Load1)
	return status, nil
}

// Latest returns the last successful sample
func (r *StatusReporter) Latest() (HostStatus, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return r.latest, r.valid
}

// Run samples until ctx is done
func (r *StatusReporter) Run(ctx context.Context) {
	if r.interval <= 0 {
		log.Infof("Run: host status sampling disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh()
	for {
		select {
		case <-ctx.Done():
			log.Infof("Run: host status reporter stopped")
			return
		case <-ticker.C:
			r.Refresh()
		}
	}
}
