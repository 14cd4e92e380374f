package coordinator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"vmstore/pkg/protocol"
	"vmstore/pkg/shared"
	"vmstore/pkg/types"

	"go.uber.org/zap"
)

// PeerNotifier delivers a duplicate hint for filename to a single peer.
// The announcer is the node that now holds the content.
type PeerNotifier interface {
	NotifyDuplicate(ctx context.Context, peer types.NodeRecord, filename string, announcer types.Location) error
}

type grpcNotifier struct {
	pool *shared.ConnectionPool
}

// NewGRPCNotifier returns a PeerNotifier that calls each node's
// NodeFileService over connections taken from pool.
func NewGRPCNotifier(pool *shared.ConnectionPool) PeerNotifier {
	return &grpcNotifier{pool: pool}
}

func (n *grpcNotifier) NotifyDuplicate(ctx context.Context, peer types.NodeRecord, filename string, announcer types.Location) error {
	endpoint := peer.Endpoint()
	conn, err := n.pool.GetConnection(ctx, endpoint)
	if err != nil {
		return fmt.Errorf("%w: %s at %s: %v", ErrUnreachable, peer.ID, endpoint, err)
	}

	client := protocol.NewNodeFileServiceClient(conn)
	resp, err := client.NotifyDuplicate(ctx, &protocol.FileAnnouncement{
		Id:       string(announcer.NodeID),
		Address:  announcer.Address,
		Port:     int32(announcer.Port),
		Filename: filename,
	})
	if err != nil {
		n.pool.Discard(endpoint)
		return fmt.Errorf("%w: %s at %s: %v", ErrUnreachable, peer.ID, endpoint, err)
	}
	if !resp.OK() {
		return fmt.Errorf("peer %s refused placeholder for %s: %s", peer.ID, filename, resp.Message)
	}
	return nil
}

// FanOutResult lists which peers acknowledged a duplicate hint.
type FanOutResult struct {
	Notified []types.NodeID
	Failed   []types.NodeID
}

// FanOut sends duplicate hints to peers with bounded parallelism. Each
// peer gets its own timeout and the whole broadcast is capped by a
// deadline, so one hung peer cannot stall an announcement.
type FanOut struct {
	notifier    PeerNotifier
	workers     int
	peerTimeout time.Duration
	deadline    time.Duration
	logger      *zap.Logger
	metrics     *Metrics
}

func NewFanOut(notifier PeerNotifier, workers int, peerTimeout, deadline time.Duration, logger *zap.Logger, metrics *Metrics) *FanOut {
	if workers < 1 {
		workers = 1
	}
	return &FanOut{
		notifier:    notifier,
		workers:     workers,
		peerTimeout: peerTimeout,
		deadline:    deadline,
		logger:      logger,
		metrics:     metrics,
	}
}

// Broadcast notifies every peer and waits until all have answered or the
// deadline expires. Peers that had not answered by then count as failed.
func (f *FanOut) Broadcast(ctx context.Context, peers []types.NodeRecord, filename string, announcer types.Location) FanOutResult {
	if len(peers) == 0 {
		return FanOutResult{}
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, f.deadline)
	defer cancel()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		settled = make(map[types.NodeID]bool, len(peers))
		sem     = make(chan struct{}, f.workers)
	)

dispatch:
	for _, peer := range peers {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}

		wg.Add(1)
		go func(peer types.NodeRecord) {
			defer wg.Done()
			defer func() { <-sem }()

			peerCtx, peerCancel := context.WithTimeout(ctx, f.peerTimeout)
			err := f.notifier.NotifyDuplicate(peerCtx, peer, filename, announcer)
			peerCancel()

			if err != nil {
				f.logger.Warn("Failed to notify peer of duplicate",
					zap.String("peer_id", string(peer.ID)),
					zap.String("peer_address", peer.Endpoint()),
					zap.String("filename", filename),
					zap.Error(err))
			} else {
				f.logger.Debug("Peer notified of duplicate",
					zap.String("peer_id", string(peer.ID)),
					zap.String("filename", filename))
			}

			mu.Lock()
			settled[peer.ID] = err == nil
			mu.Unlock()
		}(peer)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		f.logger.Warn("Fan-out deadline reached before all peers answered",
			zap.String("filename", filename),
			zap.Duration("deadline", f.deadline))
	}

	mu.Lock()
	var result FanOutResult
	for _, peer := range peers {
		if settled[peer.ID] {
			result.Notified = append(result.Notified, peer.ID)
		} else {
			result.Failed = append(result.Failed, peer.ID)
		}
	}
	mu.Unlock()

	sortIDs(result.Notified)
	sortIDs(result.Failed)

	if f.metrics != nil {
		f.metrics.FanoutNotifications.WithLabelValues("delivered").Add(float64(len(result.Notified)))
		f.metrics.FanoutNotifications.WithLabelValues("failed").Add(float64(len(result.Failed)))
		f.metrics.FanoutDuration.Observe(time.Since(start).Seconds())
	}

	return result
}

func sortIDs(ids []types.NodeID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
