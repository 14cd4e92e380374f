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

// NotifyDuplicate records a placeholder for a file announced by another
// node. No bytes are fetched.
func (n *Node) NotifyDuplicate(ctx context.Context, req *protocol.FileAnnouncement) (*protocol.Response, error) {
	if req.Filename == "" || req.Id == "" {
		return &protocol.Response{
			Message: "filename and announcer id are required",
			Status:  protocol.StatusInvalidRequest,
		}, nil
	}

	if err := n.store.Ghost(req.Filename, types.NodeID(req.Id)); err != nil {
		st := protocol.StatusRejected
		if errors.Is(err, storage.ErrInvalidName) {
			st = protocol.StatusInvalidRequest
		}
		n.logger.Warn("Failed to record placeholder",
			zap.String("filename", req.Filename),
			zap.String("announcer", req.Id),
			zap.Error(err))
		return &protocol.Response{Message: err.Error(), Status: st}, nil
	}

	n.logger.Info("File replicated by controller, accessible while its owner is online",
		zap.String("filename", req.Filename),
		zap.String("announcer", req.Id))

	return &protocol.Response{
		Message: fmt.Sprintf("Replicated file %s stored.", req.Filename),
		Status:  protocol.StatusOK,
	}, nil
}

// DownloadFile serves the bytes of a file this node holds. Placeholders
// answer NotFound.
func (n *Node) DownloadFile(ctx context.Context, req *protocol.FileDownloadRequest) (*protocol.FileContent, error) {
	data, err := n.store.Read(req.Filename)
	switch {
	case errors.Is(err, storage.ErrInvalidName):
		return nil, status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, storage.ErrNotExist):
		return nil, status.Error(codes.NotFound, "File not found on node")
	case err != nil:
		n.logger.Error("Failed to read file for peer", zap.String("filename", req.Filename), zap.Error(err))
		return nil, status.Error(codes.Internal, "failed to read file")
	}

	n.logger.Debug("Serving file to peer",
		zap.String("filename", req.Filename),
		zap.Int("size", len(data)))

	return &protocol.FileContent{Filename: req.Filename, Content: data}, nil
}
