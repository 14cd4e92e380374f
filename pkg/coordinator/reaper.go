package coordinator

import (
	"time"

	"vmstore/pkg/types"

	"go.uber.org/zap"
)

// ReapResult reports what one reaper pass changed.
type ReapResult struct {
	Offline []types.NodeID
	Evicted []string
}

func (c *Coordinator) reapLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.config.ReapInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.Reap()
		}
	}
}

// Reap marks every node whose last heartbeat is older than the offline
// timeout as offline, then evicts file entries left with no online owner.
// Both steps run in the same pass so a file never outlives its last owner
// by more than one interval.
func (c *Coordinator) Reap() ReapResult {
	var result ReapResult

	for _, rec := range c.registry.ExpireStale(c.config.OfflineTimeout.Std()) {
		c.logger.Info("Node marked offline",
			zap.String("node_id", string(rec.ID)),
			zap.String("address", rec.Endpoint()),
			zap.Time("last_seen", rec.LastSeen),
			zap.String("reason", "heartbeat timeout"))
		c.metrics.OfflineTransitions.WithLabelValues("timeout").Inc()
		result.Offline = append(result.Offline, rec.ID)
	}

	result.Evicted = c.directory.EvictOrphans()
	for _, name := range result.Evicted {
		c.logger.Info("File removed from directory, no owner online",
			zap.String("filename", name))
	}
	c.metrics.FilesEvicted.Add(float64(len(result.Evicted)))
	c.metrics.ReaperPasses.Inc()
	c.refreshGauges()

	if len(result.Offline) > 0 || len(result.Evicted) > 0 {
		c.logger.Debug("Reaper pass complete",
			zap.Int("offline", len(result.Offline)),
			zap.Int("evicted", len(result.Evicted)))
	}
	return result
}
