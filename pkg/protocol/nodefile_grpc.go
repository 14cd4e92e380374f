package protocol

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	NodeFileService_NotifyDuplicate_FullMethodName = "/storage.NodeFileService/NotifyDuplicate"
	NodeFileService_DownloadFile_FullMethodName    = "/storage.NodeFileService/DownloadFile"
)

// NodeFileServiceClient is the client API for the service every node runs.
type NodeFileServiceClient interface {
	NotifyDuplicate(ctx context.Context, in *FileAnnouncement, opts ...grpc.CallOption) (*Response, error)
	DownloadFile(ctx context.Context, in *FileDownloadRequest, opts ...grpc.CallOption) (*FileContent, error)
}

type nodeFileServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewNodeFileServiceClient(cc grpc.ClientConnInterface) NodeFileServiceClient {
	return &nodeFileServiceClient{cc}
}

func (c *nodeFileServiceClient) NotifyDuplicate(ctx context.Context, in *FileAnnouncement, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	if err := invoke(ctx, c.cc, NodeFileService_NotifyDuplicate_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *nodeFileServiceClient) DownloadFile(ctx context.Context, in *FileDownloadRequest, opts ...grpc.CallOption) (*FileContent, error) {
	out := new(FileContent)
	if err := invoke(ctx, c.cc, NodeFileService_DownloadFile_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// NodeFileServiceServer is the server API for the node peer service.
// Implementations must embed UnimplementedNodeFileServiceServer.
type NodeFileServiceServer interface {
	NotifyDuplicate(context.Context, *FileAnnouncement) (*Response, error)
	DownloadFile(context.Context, *FileDownloadRequest) (*FileContent, error)
	mustEmbedUnimplementedNodeFileServiceServer()
}

type UnimplementedNodeFileServiceServer struct{}

func (UnimplementedNodeFileServiceServer) NotifyDuplicate(context.Context, *FileAnnouncement) (*Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method NotifyDuplicate not implemented")
}
func (UnimplementedNodeFileServiceServer) DownloadFile(context.Context, *FileDownloadRequest) (*FileContent, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DownloadFile not implemented")
}
func (UnimplementedNodeFileServiceServer) mustEmbedUnimplementedNodeFileServiceServer() {}

func RegisterNodeFileServiceServer(s grpc.ServiceRegistrar, srv NodeFileServiceServer) {
	s.RegisterService(&NodeFileService_ServiceDesc, srv)
}

var NodeFileService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "storage.NodeFileService",
	HandlerType: (*NodeFileServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "NotifyDuplicate",
			Handler: unaryHandler(NodeFileService_NotifyDuplicate_FullMethodName, func() wireMessage { return new(FileAnnouncement) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return srv.(NodeFileServiceServer).NotifyDuplicate(ctx, in.(*FileAnnouncement))
			}),
		},
		{
			MethodName: "DownloadFile",
			Handler: unaryHandler(NodeFileService_DownloadFile_FullMethodName, func() wireMessage { return new(FileDownloadRequest) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return srv.(NodeFileServiceServer).DownloadFile(ctx, in.(*FileDownloadRequest))
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storage.proto",
}
