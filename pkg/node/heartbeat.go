package node

import (
	"time"

	"vmstore/pkg/protocol"

	"go.uber.org/zap"
)

func (n *Node) heartbeatLoop() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.config.HeartbeatInterval.Std())
	defer ticker.Stop()

	lastHeartbeat := time.Now()
	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			if err := n.sendHeartbeat(); err != nil {
				n.logger.Warn("Failed to send heartbeat",
					zap.Error(err),
					zap.Duration("since_last", time.Since(lastHeartbeat)))
				continue
			}
			lastHeartbeat = time.Now()
		}
	}
}

// sendHeartbeat refreshes liveness at the controller. A controller that no
// longer knows this node, for example after a restart, gets a fresh
// registration followed by the node's earlier announcements.
func (n *Node) sendHeartbeat() error {
	ctx, cancel := n.requestContext(n.ctx)
	defer cancel()

	resp, err := n.controllerClient.Heartbeat(ctx, n.nodeInfo())
	if err != nil {
		return err
	}
	if resp.Status != protocol.StatusNotFound {
		return nil
	}

	n.logger.Info("Controller does not know this node, re-registering")
	if err := n.register(n.ctx); err != nil {
		return err
	}
	n.reannounce()
	return nil
}

func (n *Node) reannounce() {
	n.uploadedMu.Lock()
	names := make([]string, 0, len(n.uploaded))
	for name := range n.uploaded {
		names = append(names, name)
	}
	n.uploadedMu.Unlock()

	for _, name := range names {
		if !n.store.Holds(name) {
			continue
		}
		if err := n.announce(n.ctx, name); err != nil {
			n.logger.Warn("Failed to re-announce file",
				zap.String("filename", name),
				zap.Error(err))
		}
	}
}
