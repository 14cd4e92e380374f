package protocol

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	StorageController_RegisterNode_FullMethodName     = "/storage.StorageController/RegisterNode"
	StorageController_Heartbeat_FullMethodName        = "/storage.StorageController/Heartbeat"
	StorageController_SetOffline_FullMethodName       = "/storage.StorageController/SetOffline"
	StorageController_AnnounceFile_FullMethodName     = "/storage.StorageController/AnnounceFile"
	StorageController_GetFileLocations_FullMethodName = "/storage.StorageController/GetFileLocations"
	StorageController_ListFiles_FullMethodName        = "/storage.StorageController/ListFiles"
	StorageController_DeleteFile_FullMethodName       = "/storage.StorageController/DeleteFile"
	StorageController_ModifyFile_FullMethodName       = "/storage.StorageController/ModifyFile"
	StorageController_CreateFile_FullMethodName       = "/storage.StorageController/CreateFile"
)

// StorageControllerClient is the client API for the directory service.
type StorageControllerClient interface {
	RegisterNode(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*Response, error)
	Heartbeat(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*Response, error)
	SetOffline(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*Response, error)
	AnnounceFile(ctx context.Context, in *FileAnnouncement, opts ...grpc.CallOption) (*Response, error)
	GetFileLocations(ctx context.Context, in *FileName, opts ...grpc.CallOption) (*NodeLocationList, error)
	ListFiles(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*FileList, error)
	DeleteFile(ctx context.Context, in *FileName, opts ...grpc.CallOption) (*Response, error)
	ModifyFile(ctx context.Context, in *FileName, opts ...grpc.CallOption) (*Response, error)
	CreateFile(ctx context.Context, in *FileName, opts ...grpc.CallOption) (*Response, error)
}

type storageControllerClient struct {
	cc grpc.ClientConnInterface
}

func NewStorageControllerClient(cc grpc.ClientConnInterface) StorageControllerClient {
	return &storageControllerClient{cc}
}

func (c *storageControllerClient) RegisterNode(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	if err := invoke(ctx, c.cc, StorageController_RegisterNode_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageControllerClient) Heartbeat(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	if err := invoke(ctx, c.cc, StorageController_Heartbeat_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageControllerClient) SetOffline(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	if err := invoke(ctx, c.cc, StorageController_SetOffline_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageControllerClient) AnnounceFile(ctx context.Context, in *FileAnnouncement, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	if err := invoke(ctx, c.cc, StorageController_AnnounceFile_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageControllerClient) GetFileLocations(ctx context.Context, in *FileName, opts ...grpc.CallOption) (*NodeLocationList, error) {
	out := new(NodeLocationList)
	if err := invoke(ctx, c.cc, StorageController_GetFileLocations_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageControllerClient) ListFiles(ctx context.Context, in *NodeInfo, opts ...grpc.CallOption) (*FileList, error) {
	out := new(FileList)
	if err := invoke(ctx, c.cc, StorageController_ListFiles_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageControllerClient) DeleteFile(ctx context.Context, in *FileName, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	if err := invoke(ctx, c.cc, StorageController_DeleteFile_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageControllerClient) ModifyFile(ctx context.Context, in *FileName, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	if err := invoke(ctx, c.cc, StorageController_ModifyFile_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *storageControllerClient) CreateFile(ctx context.Context, in *FileName, opts ...grpc.CallOption) (*Response, error) {
	out := new(Response)
	if err := invoke(ctx, c.cc, StorageController_CreateFile_FullMethodName, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

// StorageControllerServer is the server API for the directory service.
// Implementations must embed UnimplementedStorageControllerServer.
type StorageControllerServer interface {
	RegisterNode(context.Context, *NodeInfo) (*Response, error)
	Heartbeat(context.Context, *NodeInfo) (*Response, error)
	SetOffline(context.Context, *NodeInfo) (*Response, error)
	AnnounceFile(context.Context, *FileAnnouncement) (*Response, error)
	GetFileLocations(context.Context, *FileName) (*NodeLocationList, error)
	ListFiles(context.Context, *NodeInfo) (*FileList, error)
	DeleteFile(context.Context, *FileName) (*Response, error)
	ModifyFile(context.Context, *FileName) (*Response, error)
	CreateFile(context.Context, *FileName) (*Response, error)
	mustEmbedUnimplementedStorageControllerServer()
}

type UnimplementedStorageControllerServer struct{}

func (UnimplementedStorageControllerServer) RegisterNode(context.Context, *NodeInfo) (*Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method RegisterNode not implemented")
}
func (UnimplementedStorageControllerServer) Heartbeat(context.Context, *NodeInfo) (*Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method Heartbeat not implemented")
}
func (UnimplementedStorageControllerServer) SetOffline(context.Context, *NodeInfo) (*Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method SetOffline not implemented")
}
func (UnimplementedStorageControllerServer) AnnounceFile(context.Context, *FileAnnouncement) (*Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method AnnounceFile not implemented")
}
func (UnimplementedStorageControllerServer) GetFileLocations(context.Context, *FileName) (*NodeLocationList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method GetFileLocations not implemented")
}
func (UnimplementedStorageControllerServer) ListFiles(context.Context, *NodeInfo) (*FileList, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ListFiles not implemented")
}
func (UnimplementedStorageControllerServer) DeleteFile(context.Context, *FileName) (*Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method DeleteFile not implemented")
}
func (UnimplementedStorageControllerServer) ModifyFile(context.Context, *FileName) (*Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method ModifyFile not implemented")
}
func (UnimplementedStorageControllerServer) CreateFile(context.Context, *FileName) (*Response, error) {
	return nil, status.Errorf(codes.Unimplemented, "method CreateFile not implemented")
}
func (UnimplementedStorageControllerServer) mustEmbedUnimplementedStorageControllerServer() {}

func RegisterStorageControllerServer(s grpc.ServiceRegistrar, srv StorageControllerServer) {
	s.RegisterService(&StorageController_ServiceDesc, srv)
}

func controller(srv interface{}) StorageControllerServer {
	return srv.(StorageControllerServer)
}

var StorageController_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "storage.StorageController",
	HandlerType: (*StorageControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RegisterNode",
			Handler: unaryHandler(StorageController_RegisterNode_FullMethodName, func() wireMessage { return new(NodeInfo) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).RegisterNode(ctx, in.(*NodeInfo))
			}),
		},
		{
			MethodName: "Heartbeat",
			Handler: unaryHandler(StorageController_Heartbeat_FullMethodName, func() wireMessage { return new(NodeInfo) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).Heartbeat(ctx, in.(*NodeInfo))
			}),
		},
		{
			MethodName: "SetOffline",
			Handler: unaryHandler(StorageController_SetOffline_FullMethodName, func() wireMessage { return new(NodeInfo) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).SetOffline(ctx, in.(*NodeInfo))
			}),
		},
		{
			MethodName: "AnnounceFile",
			Handler: unaryHandler(StorageController_AnnounceFile_FullMethodName, func() wireMessage { return new(FileAnnouncement) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).AnnounceFile(ctx, in.(*FileAnnouncement))
			}),
		},
		{
			MethodName: "GetFileLocations",
			Handler: unaryHandler(StorageController_GetFileLocations_FullMethodName, func() wireMessage { return new(FileName) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).GetFileLocations(ctx, in.(*FileName))
			}),
		},
		{
			MethodName: "ListFiles",
			Handler: unaryHandler(StorageController_ListFiles_FullMethodName, func() wireMessage { return new(NodeInfo) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).ListFiles(ctx, in.(*NodeInfo))
			}),
		},
		{
			MethodName: "DeleteFile",
			Handler: unaryHandler(StorageController_DeleteFile_FullMethodName, func() wireMessage { return new(FileName) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).DeleteFile(ctx, in.(*FileName))
			}),
		},
		{
			MethodName: "ModifyFile",
			Handler: unaryHandler(StorageController_ModifyFile_FullMethodName, func() wireMessage { return new(FileName) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).ModifyFile(ctx, in.(*FileName))
			}),
		},
		{
			MethodName: "CreateFile",
			Handler: unaryHandler(StorageController_CreateFile_FullMethodName, func() wireMessage { return new(FileName) }, func(srv interface{}, ctx context.Context, in wireMessage) (wireMessage, error) {
				return controller(srv).CreateFile(ctx, in.(*FileName))
			}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storage.proto",
}
