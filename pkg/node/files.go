package node

import (
	"context"
	"errors"
	"fmt"

	"vmstore/pkg/protocol"
	"vmstore/pkg/storage"
	"vmstore/pkg/types"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Create writes a new local file. Nothing is announced until Upload.
func (n *Node) Create(name string, content []byte) error {
	if err := n.store.Create(name, content); err != nil {
		return err
	}
	n.logger.Info("File created", zap.String("filename", name), zap.Int("size", len(content)))
	return nil
}

func (n *Node) Modify(name string, content []byte) error {
	if err := n.store.Modify(name, content); err != nil {
		return mapStoreError(err)
	}
	n.logger.Info("File modified", zap.String("filename", name), zap.Int("size", len(content)))
	return nil
}

// Delete removes the local copy only; the controller keeps any entry.
func (n *Node) Delete(name string) error {
	if err := n.store.Delete(name); err != nil {
		return mapStoreError(err)
	}
	n.uploadedMu.Lock()
	delete(n.uploaded, name)
	n.uploadedMu.Unlock()

	n.logger.Info("File deleted", zap.String("filename", name))
	return nil
}

func (n *Node) Cat(name string) ([]byte, error) {
	data, err := n.store.Read(name)
	if err != nil {
		return nil, mapStoreError(err)
	}
	return data, nil
}

// LocalFiles lists files created or downloaded on this node.
func (n *Node) LocalFiles() []string {
	return n.store.Files(storage.OriginCreated, storage.OriginDownloaded)
}

// Ghosts lists placeholders recorded for files held elsewhere.
func (n *Node) Ghosts() []string {
	return n.store.Ghosts()
}

// Upload announces a locally held file to the controller, which hints every
// other online node that a copy exists here.
func (n *Node) Upload(ctx context.Context, name string) (string, error) {
	if !n.store.Holds(name) {
		return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}

	resp, err := n.announceResponse(ctx, name)
	if err != nil {
		return "", err
	}

	n.uploadedMu.Lock()
	n.uploaded[name] = struct{}{}
	n.uploadedMu.Unlock()

	n.logger.Info("File uploaded", zap.String("filename", name), zap.String("message", resp.Message))
	return resp.Message, nil
}

func (n *Node) announce(ctx context.Context, name string) error {
	_, err := n.announceResponse(ctx, name)
	return err
}

func (n *Node) announceResponse(ctx context.Context, name string) (*protocol.Response, error) {
	ctx, cancel := n.requestContext(ctx)
	defer cancel()

	resp, err := n.controllerClient.AnnounceFile(ctx, &protocol.FileAnnouncement{
		Id:       string(n.nodeID),
		Address:  n.host,
		Port:     int32(n.port),
		Filename: name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to announce %s: %w", name, err)
	}
	if resp.Status == protocol.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, resp.Message)
	}
	if !resp.OK() {
		return nil, fmt.Errorf("announce of %s rejected: %s", name, resp.Message)
	}
	return resp, nil
}

// Download fetches a file from one randomly chosen online owner other than
// this node and stores it locally. A failed attempt is returned as is; the
// caller decides whether to try again.
func (n *Node) Download(ctx context.Context, name string) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}

	owners, err := n.Locate(ctx, name)
	if err != nil {
		return err
	}

	candidates := owners[:0]
	for _, loc := range owners {
		if types.NodeID(loc.Id) != n.nodeID {
			candidates = append(candidates, loc)
		}
	}
	if len(candidates) == 0 {
		return fmt.Errorf("%w: %s", ErrNoOwners, name)
	}

	loc := n.pick(candidates)
	data, err := n.fetch(ctx, loc, name)
	if err != nil {
		n.logger.Warn("Download from peer failed",
			zap.String("filename", name),
			zap.String("peer_id", loc.Id),
			zap.Error(err))
		return err
	}

	if err := n.store.Materialize(name, data); err != nil {
		return fmt.Errorf("failed to store %s: %w", name, err)
	}
	n.logger.Info("File downloaded",
		zap.String("filename", name),
		zap.String("peer_id", loc.Id),
		zap.Int("size", len(data)))
	return nil
}

func (n *Node) fetch(ctx context.Context, loc *protocol.NodeLocation, name string) ([]byte, error) {
	endpoint := types.Location{NodeID: types.NodeID(loc.Id), Address: loc.Address, Port: int(loc.Port)}.Endpoint()

	ctx, cancel := n.requestContext(ctx)
	defer cancel()

	conn, err := n.peers.GetConnection(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPeerUnavailable, loc.Id, err)
	}

	content, err := protocol.NewNodeFileServiceClient(conn).DownloadFile(ctx, &protocol.FileDownloadRequest{Filename: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("%w: %s on %s", ErrFileNotFound, name, loc.Id)
		}
		n.peers.Discard(endpoint)
		return nil, fmt.Errorf("%w: %s: %v", ErrPeerUnavailable, loc.Id, err)
	}
	return content.Content, nil
}

// Locate returns the online owners the controller reports for name.
func (n *Node) Locate(ctx context.Context, name string) ([]*protocol.NodeLocation, error) {
	ctx, cancel := n.requestContext(ctx)
	defer cancel()

	list, err := n.controllerClient.GetFileLocations(ctx, &protocol.FileName{Filename: name})
	if err != nil {
		return nil, fmt.Errorf("failed to query locations of %s: %w", name, err)
	}
	return list.Nodes, nil
}

// ListCloud returns every file the controller currently shows as visible.
func (n *Node) ListCloud(ctx context.Context) ([]string, error) {
	ctx, cancel := n.requestContext(ctx)
	defer cancel()

	list, err := n.controllerClient.ListFiles(ctx, n.nodeInfo())
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return list.Filenames, nil
}

func mapStoreError(err error) error {
	if errors.Is(err, storage.ErrNotExist) {
		return fmt.Errorf("%w: %v", ErrFileNotFound, err)
	}
	return err
}
