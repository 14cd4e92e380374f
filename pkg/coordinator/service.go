package coordinator

import (
	"context"
	"fmt"

	"vmstore/pkg/protocol"
	"vmstore/pkg/types"

	"go.uber.org/zap"
)

const maxPort = 65535

func validateNode(id, address string, port int32) error {
	if id == "" {
		return fmt.Errorf("%w: node id is required", ErrInvalidRequest)
	}
	if address == "" {
		return fmt.Errorf("%w: node address is required", ErrInvalidRequest)
	}
	if port <= 0 || port > maxPort {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidRequest, port)
	}
	return nil
}

func validateFilename(name string) error {
	if name == "" {
		return fmt.Errorf("%w: filename is required", ErrInvalidRequest)
	}
	return nil
}

func (c *Coordinator) RegisterNode(ctx context.Context, req *protocol.NodeInfo) (*protocol.Response, error) {
	c.logger.Debug("RegisterNode request",
		zap.String("node_id", req.Id),
		zap.String("address", req.Address),
		zap.Int32("port", req.Port))

	if err := validateNode(req.Id, req.Address, req.Port); err != nil {
		return reply(err.Error(), err), nil
	}

	rec := c.registry.Register(types.NodeID(req.Id), req.Address, int(req.Port))
	c.refreshGauges()

	c.logger.Info("Node registered",
		zap.String("node_id", req.Id),
		zap.String("address", rec.Endpoint()))

	return reply(fmt.Sprintf("Node %s registered successfully at %s", req.Id, c.timestamp()), nil), nil
}

// Heartbeat acknowledges unknown ids with StatusNotFound so the sender
// knows to register again.
func (c *Coordinator) Heartbeat(ctx context.Context, req *protocol.NodeInfo) (*protocol.Response, error) {
	if req.Id == "" {
		err := fmt.Errorf("%w: node id is required", ErrInvalidRequest)
		return reply(err.Error(), err), nil
	}

	wasOnline := c.registry.IsOnline(types.NodeID(req.Id))
	if !c.registry.Heartbeat(types.NodeID(req.Id)) {
		c.logger.Debug("Heartbeat from unregistered node", zap.String("node_id", req.Id))
		return reply("Heartbeat received", fmt.Errorf("%w: node %s", ErrNotFound, req.Id)), nil
	}

	if !wasOnline {
		c.logger.Info("Node back online", zap.String("node_id", req.Id))
		c.refreshGauges()
	}
	return reply("Heartbeat received", nil), nil
}

func (c *Coordinator) SetOffline(ctx context.Context, req *protocol.NodeInfo) (*protocol.Response, error) {
	if req.Id == "" {
		err := fmt.Errorf("%w: node id is required", ErrInvalidRequest)
		return reply(err.Error(), err), nil
	}

	if !c.registry.SetOffline(types.NodeID(req.Id)) {
		return reply("Node not found", ErrNotFound), nil
	}

	c.metrics.OfflineTransitions.WithLabelValues("signoff").Inc()
	c.refreshGauges()
	c.logger.Info("Node set offline", zap.String("node_id", req.Id))

	return reply(fmt.Sprintf("Node %s set offline at %s", req.Id, c.timestamp()), nil), nil
}

// AnnounceFile records the sender as an owner of the file and then hints
// every other online node that a copy exists. The announcement succeeds
// even when some peers cannot be reached.
func (c *Coordinator) AnnounceFile(ctx context.Context, req *protocol.FileAnnouncement) (*protocol.Response, error) {
	c.logger.Debug("AnnounceFile request",
		zap.String("node_id", req.Id),
		zap.String("filename", req.Filename))

	if err := validateNode(req.Id, req.Address, req.Port); err != nil {
		return reply(err.Error(), err), nil
	}
	if err := validateFilename(req.Filename); err != nil {
		return reply(err.Error(), err), nil
	}

	id := types.NodeID(req.Id)
	if _, known := c.registry.Get(id); !known {
		return reply("Node not registered", ErrNotFound), nil
	}

	owner := types.Location{NodeID: id, Address: req.Address, Port: int(req.Port)}
	uploaded := c.directory.Announce(req.Filename, owner)
	c.refreshGauges()

	peers := c.registry.OnlinePeers(id)
	result := c.fanout.Broadcast(c.ctx, peers, req.Filename, owner)

	c.logger.Info("File announced",
		zap.String("filename", req.Filename),
		zap.String("node_id", req.Id),
		zap.Int("peers_notified", len(result.Notified)),
		zap.Int("peers_failed", len(result.Failed)))

	return reply(fmt.Sprintf("File %s announced by %s at %s",
		req.Filename, req.Id, uploaded.Format(types.TimeFormat)), nil), nil
}

// GetFileLocations returns the online owners of a file. Unknown names and
// files whose owners are all offline both yield an empty list.
func (c *Coordinator) GetFileLocations(ctx context.Context, req *protocol.FileName) (*protocol.NodeLocationList, error) {
	locations := c.directory.Locations(req.Filename)

	list := &protocol.NodeLocationList{Nodes: make([]*protocol.NodeLocation, 0, len(locations))}
	for _, loc := range locations {
		list.Nodes = append(list.Nodes, &protocol.NodeLocation{
			Id:      string(loc.NodeID),
			Address: loc.Address,
			Port:    int32(loc.Port),
		})
	}
	return list, nil
}

// ListFiles ignores the caller identity; every node sees the same listing.
func (c *Coordinator) ListFiles(ctx context.Context, req *protocol.NodeInfo) (*protocol.FileList, error) {
	return &protocol.FileList{Filenames: c.directory.ListVisible()}, nil
}

// DeleteFile drops the directory entry. Nodes keep their local copies.
func (c *Coordinator) DeleteFile(ctx context.Context, req *protocol.FileName) (*protocol.Response, error) {
	if err := validateFilename(req.Filename); err != nil {
		return reply(err.Error(), err), nil
	}

	if !c.directory.Delete(req.Filename) {
		return reply("File not found", ErrNotFound), nil
	}

	c.refreshGauges()
	c.logger.Info("File deleted from directory", zap.String("filename", req.Filename))
	return reply(fmt.Sprintf("Deleted %s", req.Filename), nil), nil
}

func (c *Coordinator) ModifyFile(ctx context.Context, req *protocol.FileName) (*protocol.Response, error) {
	return reply("Modify not supported at controller", ErrRejected), nil
}

// CreateFile is accepted for interface compatibility and changes nothing;
// files enter the directory through AnnounceFile.
func (c *Coordinator) CreateFile(ctx context.Context, req *protocol.FileName) (*protocol.Response, error) {
	if err := validateFilename(req.Filename); err != nil {
		return reply(err.Error(), err), nil
	}
	return reply(fmt.Sprintf("File %s create requested (noop)", req.Filename), ErrRejected), nil
}
